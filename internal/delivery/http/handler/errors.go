package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/response"
	"clinic-scheduling/pkg/retry"
	"clinic-scheduling/pkg/timeslot"

	"github.com/sirupsen/logrus"
)

// NewRetryConfig retries only fatal usecase errors, transaction timeouts
// included. Business outcomes are returned on the first attempt.
func NewRetryConfig(base retry.Config, log *logrus.Logger) retry.Config {
	base.Retryable = func(err error) bool {
		return !usecase.IsBusinessError(err)
	}
	base.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Warnf("Attempt %d failed, retrying in %s: %+v", attempt, nextDelay, err)
	}
	return base
}

// withRetry runs fn under cfg and hands back its last result. Once the
// request itself is cancelled or past its deadline nothing is retried.
func withRetry[T any](ctx context.Context, cfg retry.Config, fn func() (T, error)) (T, error) {
	retryable := cfg.Retryable
	cfg.Retryable = func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		return retryable == nil || retryable(err)
	}

	var out T
	err := retry.Do(ctx, cfg, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// respondError maps a usecase error to its HTTP status. Anything unknown is a
// 500 carrying fallback as the message.
func respondError(w http.ResponseWriter, err error, fallback string) {
	var conflict *usecase.SlotConflictError
	if errors.As(err, &conflict) {
		response.Conflict(w, conflict.Error(), dto.SlotConflictDetail{ConflictingAppointmentIDs: conflict.ConflictingIDs})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrUserNotInContext):
		response.Unauthorized(w, "")

	case errors.Is(err, usecase.ErrForbiddenRole),
		errors.Is(err, usecase.ErrAppointmentNotOwned),
		errors.Is(err, usecase.ErrQueueEntryNotOwned):
		response.Forbidden(w, err.Error())

	case errors.Is(err, usecase.ErrAppointmentNotFound),
		errors.Is(err, usecase.ErrQueueEntryNotFound),
		errors.Is(err, usecase.ErrAuditLogNotFound):
		response.NotFound(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidDuration),
		errors.Is(err, usecase.ErrReasonRequired),
		errors.Is(err, usecase.ErrInvalidDateTime),
		errors.Is(err, usecase.ErrInvalidDateRange),
		errors.Is(err, usecase.ErrInvalidDoctorStatus),
		errors.Is(err, usecase.ErrOverlappingWindows),
		errors.Is(err, entity.ErrInvalidWindow),
		errors.Is(err, timeslot.ErrInvalidTimeFormat):
		response.BadRequest(w, err.Error())

	case errors.Is(err, usecase.ErrAlreadyInProgress),
		errors.Is(err, usecase.ErrQueueEmpty),
		errors.Is(err, usecase.ErrAlreadyQueued):
		response.Conflict(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrSlotUnavailable),
		errors.Is(err, usecase.ErrSlotInPast),
		errors.Is(err, usecase.ErrTooManyReschedules),
		errors.Is(err, usecase.ErrTooSoonToReschedule),
		errors.Is(err, usecase.ErrInvalidNewTime),
		errors.Is(err, usecase.ErrEntryNotWaiting),
		errors.Is(err, usecase.ErrEntryNotInProgress),
		errors.Is(err, usecase.ErrAppointmentNotActive),
		errors.Is(err, usecase.ErrCheckInNotToday),
		errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrInvalidQueueTransition):
		response.UnprocessableEntity(w, err.Error())

	default:
		response.InternalServerError(w, fallback)
	}
}
