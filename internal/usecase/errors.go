package usecase

import (
	"context"
	"errors"
	"fmt"

	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
)

var (
	ErrUserNotInContext = errors.New("user not found in context")
	ErrForbiddenRole    = errors.New("your role is not allowed to perform this action")
)

// SlotConflictError reports the active appointments a requested interval overlaps.
// ConflictingIDs is empty when the conflict was caught by the unique index.
type SlotConflictError struct {
	ConflictingIDs []uuid.UUID
}

func (e *SlotConflictError) Error() string {
	if len(e.ConflictingIDs) == 0 {
		return ErrSlotConflict.Error()
	}
	return fmt.Sprintf("%s (%d conflicting)", ErrSlotConflict.Error(), len(e.ConflictingIDs))
}

func (e *SlotConflictError) Unwrap() error {
	return ErrSlotConflict
}

// businessErrors are expected outcomes of validation or contention.
// They are never retried and never logged as incidents.
var businessErrors = []error{
	ErrUserNotInContext,
	ErrForbiddenRole,
	ErrAppointmentNotFound,
	ErrAppointmentNotOwned,
	ErrInvalidDuration,
	ErrReasonRequired,
	ErrInvalidDateTime,
	ErrSlotInPast,
	ErrSlotUnavailable,
	ErrSlotConflict,
	ErrTooManyReschedules,
	ErrTooSoonToReschedule,
	ErrInvalidNewTime,
	ErrInvalidDateRange,
	ErrOverlappingWindows,
	ErrQueueEntryNotFound,
	ErrQueueEntryNotOwned,
	ErrAlreadyInProgress,
	ErrQueueEmpty,
	ErrAlreadyQueued,
	ErrEntryNotWaiting,
	ErrEntryNotInProgress,
	ErrInvalidDoctorStatus,
	ErrAppointmentNotActive,
	ErrCheckInNotToday,
	ErrAuditLogNotFound,
	entity.ErrInvalidTransition,
	entity.ErrInvalidQueueTransition,
	entity.ErrRescheduleLimit,
	entity.ErrInvalidWindow,
	timeslot.ErrInvalidTimeFormat,
}

// IsBusinessError reports whether err is an expected, non-retryable outcome
func IsBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func actorFromContext(ctx context.Context) (entity.Actor, error) {
	actor, ok := middleware.GetActorFromContext(ctx)
	if !ok {
		return entity.Actor{}, ErrUserNotInContext
	}
	return actor, nil
}

// DoctorLocker serializes per-doctor mutations within this process
type DoctorLocker interface {
	Lock(doctorID uuid.UUID) func()
}
