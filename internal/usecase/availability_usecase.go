package usecase

import (
	"context"
	"errors"
	"sort"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/internal/infrastructure/database"
	"clinic-scheduling/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrOverlappingWindows = errors.New("availability windows on the same day must not overlap")
)

type AvailabilityUsecase interface {
	GetWindows(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityResponse, error)
	ReplaceWindows(ctx context.Context, req *dto.ReplaceAvailabilityRequest) (*dto.AvailabilityResponse, error)
}

type availabilityUsecase struct {
	tx               database.Transactor
	log              *logrus.Logger
	availabilityRepo repository.AvailabilityRepository
	doctorStatusRepo repository.DoctorStatusRepository
	auditService     service.AuditService
	locks            DoctorLocker
}

func NewAvailabilityUsecase(
	tx database.Transactor,
	log *logrus.Logger,
	availabilityRepo repository.AvailabilityRepository,
	doctorStatusRepo repository.DoctorStatusRepository,
	auditService service.AuditService,
	locks DoctorLocker,
) AvailabilityUsecase {
	return &availabilityUsecase{
		tx:               tx,
		log:              log,
		availabilityRepo: availabilityRepo,
		doctorStatusRepo: doctorStatusRepo,
		auditService:     auditService,
		locks:            locks,
	}
}

func (u *availabilityUsecase) GetWindows(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityResponse, error) {
	windows, err := u.availabilityRepo.FindByDoctorID(u.tx.Reader(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return converter.AvailabilityWindowsToResponse(doctorID, windows), nil
}

// ReplaceWindows swaps the calling doctor's weekly template. Existing
// appointments are left as they are; only new bookings see the new hours.
func (u *availabilityUsecase) ReplaceWindows(ctx context.Context, req *dto.ReplaceAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, ErrForbiddenRole
	}
	doctorID := actor.UserID

	windows := converter.AvailabilityRequestToEntities(doctorID, req)
	parsed, err := service.ParseWindows(windows)
	if err != nil {
		return nil, err
	}
	if err := checkWindowOverlap(parsed); err != nil {
		return nil, err
	}

	unlock := u.locks.Lock(doctorID)
	defer unlock()

	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		// Bookings validate against the template under the same row lock.
		if _, err := u.doctorStatusRepo.LockForUpdate(tx, doctorID); err != nil {
			return err
		}

		previous, err := u.availabilityRepo.FindByDoctorID(tx, doctorID)
		if err != nil {
			return err
		}
		if err := u.availabilityRepo.ReplaceForDoctor(tx, doctorID, windows); err != nil {
			return err
		}

		return u.auditService.LogUpdate(tx, actor, entity.AuditActionAvailabilityReplace, service.AuditEntityAvailability,
			doctorID.String(),
			converter.AvailabilityWindowsToResponse(doctorID, previous).Windows,
			converter.AvailabilityWindowsToResponse(doctorID, windows).Windows)
	})
	if err != nil {
		u.log.Errorf("Failed to replace availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	u.log.Infof("Availability replaced: doctor=%s, windows=%d", doctorID, len(windows))
	return converter.AvailabilityWindowsToResponse(doctorID, windows), nil
}

// checkWindowOverlap rejects two windows of the same weekday sharing any minute
func checkWindowOverlap(windows []entity.ParsedWindow) error {
	sorted := make([]entity.ParsedWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.DayOfWeek == cur.DayOfWeek && prev.Span.Overlaps(cur.Span.Start, cur.Span.End) {
			return ErrOverlappingWindows
		}
	}
	return nil
}
