package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/internal/infrastructure/database"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentNotOwned = errors.New("appointment does not belong to you")
	ErrInvalidDuration     = errors.New("duration must be between 15 and 480 minutes")
	ErrReasonRequired      = errors.New("reason is required")
	ErrInvalidDateTime     = errors.New("date_time must fall on a whole minute")
	ErrSlotInPast          = errors.New("cannot book a time in the past")
	ErrSlotUnavailable     = errors.New("requested time is outside the doctor's availability")
	ErrSlotConflict        = errors.New("requested time overlaps an existing appointment")
	ErrTooManyReschedules  = errors.New("appointment has been rescheduled the maximum number of times")
	ErrTooSoonToReschedule = errors.New("appointment starts too soon to be rescheduled")
	ErrInvalidNewTime      = errors.New("new time must be in the future")
	ErrInvalidDateRange    = errors.New("invalid date range")
)

// Appointment lifecycle events exported to the notification collaborator
const (
	EventAppointmentCreated     = "appointment.created"
	EventAppointmentAccepted    = "appointment.accepted"
	EventAppointmentRejected    = "appointment.rejected"
	EventAppointmentConfirmed   = "appointment.confirmed"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCompleted   = "appointment.completed"
	EventAppointmentNoShow      = "appointment.no_show"
	EventAppointmentCancelled   = "appointment.cancelled"
)

// maxSlotRangeDays bounds a single availableSlots request
const maxSlotRangeDays = 31

// AppointmentNotifier exports lifecycle events after commit
type AppointmentNotifier interface {
	Notify(ctx context.Context, eventType string, appointment *entity.Appointment) error
}

// SchedulingOptions are the clinic-wide scheduling rules
type SchedulingOptions struct {
	Location       *time.Location
	SlotStep       int
	RescheduleLead time.Duration
}

type AppointmentUsecase interface {
	Validate(ctx context.Context, req *dto.ValidateBookingRequest) (*dto.ValidateBookingResponse, error)
	Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, id uuid.UUID, req *dto.RescheduleBookingRequest) (*dto.RescheduleResponse, error)
	Accept(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Reject(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Confirm(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Complete(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListMine(ctx context.Context) (*dto.AppointmentListResponse, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, to string, duration int, forReschedule bool) (*dto.SlotListResponse, error)
}

type appointmentUsecase struct {
	tx               database.Transactor
	log              *logrus.Logger
	appointmentRepo  repository.AppointmentRepository
	doctorStatusRepo repository.DoctorStatusRepository
	calendar         *service.AvailabilityCalendar
	resolver         *service.ConflictResolver
	auditService     service.AuditService
	locks            DoctorLocker
	notifier         AppointmentNotifier
	opts             SchedulingOptions
	now              func() time.Time
}

func NewAppointmentUsecase(
	tx database.Transactor,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorStatusRepo repository.DoctorStatusRepository,
	calendar *service.AvailabilityCalendar,
	resolver *service.ConflictResolver,
	auditService service.AuditService,
	locks DoctorLocker,
	notifier AppointmentNotifier,
	opts SchedulingOptions,
) AppointmentUsecase {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &appointmentUsecase{
		tx:               tx,
		log:              log,
		appointmentRepo:  appointmentRepo,
		doctorStatusRepo: doctorStatusRepo,
		calendar:         calendar,
		resolver:         resolver,
		auditService:     auditService,
		locks:            locks,
		notifier:         notifier,
		opts:             opts,
		now:              time.Now,
	}
}

// Validate is an advisory pre-check. It takes no locks; Create re-checks
// everything inside its own transaction.
func (u *appointmentUsecase) Validate(ctx context.Context, req *dto.ValidateBookingRequest) (*dto.ValidateBookingResponse, error) {
	if err := u.checkSlotRequest(req.DateTime, req.Duration); err != nil {
		return &dto.ValidateBookingResponse{Valid: false, Reason: err.Error()}, nil
	}

	err := u.checkSlot(u.tx.Reader(ctx), req.DoctorID, req.DateTime.UTC(), req.Duration, nil)
	if err == nil {
		return &dto.ValidateBookingResponse{Valid: true}, nil
	}

	var conflict *SlotConflictError
	switch {
	case errors.As(err, &conflict):
		return &dto.ValidateBookingResponse{Valid: false, Reason: err.Error(), Conflicts: conflict.ConflictingIDs}, nil
	case IsBusinessError(err):
		return &dto.ValidateBookingResponse{Valid: false, Reason: err.Error()}, nil
	default:
		u.log.Errorf("Failed to validate slot for doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
}

// Create books a pending appointment.
//
// Flow:
// 1. Validate input outside any transaction
// 2. Acquire the in-process doctor lock
// 3. In one transaction: lock the doctor status row, check availability
//    and conflicts, insert
// 4. A unique index violation is demoted to a slot conflict
func (u *appointmentUsecase) Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.AppointmentResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, ErrForbiddenRole
	}

	if err := u.checkSlotRequest(req.DateTime, req.Duration); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	appointment := &entity.Appointment{
		DoctorID:          req.DoctorID,
		PatientID:         actor.UserID,
		DateTime:          req.DateTime.UTC(),
		Duration:          req.Duration,
		Reason:            reason,
		Notes:             strings.TrimSpace(req.Notes),
		Status:            entity.AppointmentStatusPending,
		RescheduleHistory: entity.RescheduleHistory{},
	}

	unlock := u.locks.Lock(req.DoctorID)
	defer unlock()

	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := u.doctorStatusRepo.LockForUpdate(tx, req.DoctorID); err != nil {
			return err
		}
		if err := u.checkSlot(tx, req.DoctorID, appointment.DateTime, appointment.Duration, nil); err != nil {
			return err
		}
		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogCreate(tx, actor, entity.AuditActionAppointmentCreate, service.AuditEntityAppointment,
			appointment.ID.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		return nil, u.writeError("create appointment", err)
	}

	u.notify(ctx, EventAppointmentCreated, appointment)
	u.log.Infof("Appointment created: id=%s, doctor=%s, start=%s", appointment.ID, appointment.DoctorID, appointment.DateTime.Format(time.RFC3339))
	return converter.AppointmentToResponse(appointment), nil
}

// Reschedule moves an appointment owned by the calling patient.
// Every rule is evaluated inside the transaction holding the doctor row lock
// and the appointment row lock.
func (u *appointmentUsecase) Reschedule(ctx context.Context, id uuid.UUID, req *dto.RescheduleBookingRequest) (*dto.RescheduleResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, ErrForbiddenRole
	}

	newStart := req.NewDateTime.UTC()
	if !newStart.Truncate(time.Minute).Equal(newStart) {
		return nil, ErrInvalidDateTime
	}

	// The doctor never changes, so it is safe to read it before locking.
	current, err := u.appointmentRepo.FindByID(u.tx.Reader(ctx), id)
	if err != nil {
		u.log.Errorf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if current == nil {
		return nil, ErrAppointmentNotFound
	}

	unlock := u.locks.Lock(current.DoctorID)
	defer unlock()

	var appointment *entity.Appointment
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := u.doctorStatusRepo.LockForUpdate(tx, current.DoctorID); err != nil {
			return err
		}

		a, err := u.appointmentRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}
		if a.PatientID != actor.UserID {
			return ErrAppointmentNotOwned
		}
		if !a.IsActive() {
			return entity.ErrInvalidTransition
		}

		now := u.now()
		if len(a.RescheduleHistory) >= entity.MaxRescheduleHistory {
			return ErrTooManyReschedules
		}
		if !now.Before(a.DateTime.Add(-u.opts.RescheduleLead)) {
			return ErrTooSoonToReschedule
		}
		if !newStart.After(now) {
			return ErrInvalidNewTime
		}
		if err := u.checkSlot(tx, a.DoctorID, newStart, a.Duration, &a.ID); err != nil {
			return err
		}

		before := converter.AppointmentToResponse(a)
		if err := a.Reschedule(newStart, strings.TrimSpace(req.Reason), actor.UserID.String(), now); err != nil {
			if errors.Is(err, entity.ErrRescheduleLimit) {
				return ErrTooManyReschedules
			}
			return err
		}
		if err := u.appointmentRepo.Update(tx, a); err != nil {
			return err
		}

		appointment = a
		return u.auditService.LogUpdate(tx, actor, entity.AuditActionAppointmentReschedule, service.AuditEntityAppointment,
			a.ID.String(), before, converter.AppointmentToResponse(a))
	})
	if err != nil {
		return nil, u.writeError("reschedule appointment", err)
	}

	u.notify(ctx, EventAppointmentRescheduled, appointment)
	u.log.Infof("Appointment rescheduled: id=%s, start=%s, remaining=%d", appointment.ID, appointment.DateTime.Format(time.RFC3339), appointment.RemainingReschedules())

	resp := converter.AppointmentToResponse(appointment)
	return &dto.RescheduleResponse{
		Appointment:          *resp,
		RescheduleHistory:    resp.RescheduleHistory,
		RemainingReschedules: resp.RemainingReschedules,
	}, nil
}

func (u *appointmentUsecase) Accept(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:    entity.AuditActionAppointmentAccept,
		event:     EventAppointmentAccepted,
		authorize: ownedByDoctor,
		apply:     (*entity.Appointment).Accept,
	})
}

func (u *appointmentUsecase) Reject(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:    entity.AuditActionAppointmentReject,
		event:     EventAppointmentRejected,
		authorize: ownedByDoctor,
		apply:     (*entity.Appointment).Reject,
	})
}

func (u *appointmentUsecase) Confirm(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:    entity.AuditActionAppointmentConfirm,
		event:     EventAppointmentConfirmed,
		authorize: ownedByDoctor,
		apply:     (*entity.Appointment).Confirm,
	})
}

func (u *appointmentUsecase) Complete(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:    entity.AuditActionAppointmentComplete,
		event:     EventAppointmentCompleted,
		authorize: ownedByDoctor,
		apply:     (*entity.Appointment).Complete,
	})
}

func (u *appointmentUsecase) MarkNoShow(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:    entity.AuditActionAppointmentNoShow,
		event:     EventAppointmentNoShow,
		authorize: ownedByDoctor,
		apply:     (*entity.Appointment).MarkNoShow,
	})
}

// Cancel may be called by the owning patient or the owning doctor
func (u *appointmentUsecase) Cancel(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, transition{
		action:    entity.AuditActionAppointmentCancel,
		event:     EventAppointmentCancelled,
		authorize: ownedByParticipant,
		apply:     (*entity.Appointment).Cancel,
	})
}

func (u *appointmentUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	appointment, err := u.appointmentRepo.FindByID(u.tx.Reader(ctx), id)
	if err != nil {
		u.log.Errorf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !actor.IsAdmin() {
		if err := ownedByParticipant(actor, appointment); err != nil {
			return nil, err
		}
	}

	return converter.AppointmentToResponse(appointment), nil
}

// ListMine returns the caller's appointments, as patient or as doctor
func (u *appointmentUsecase) ListMine(ctx context.Context) (*dto.AppointmentListResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var appointments []entity.Appointment
	db := u.tx.Reader(ctx)
	switch {
	case actor.IsPatient():
		appointments, err = u.appointmentRepo.FindByPatientID(db, actor.UserID)
	case actor.IsDoctor():
		appointments, err = u.appointmentRepo.FindByDoctorID(db, actor.UserID)
	default:
		return nil, ErrForbiddenRole
	}
	if err != nil {
		u.log.Errorf("Failed to list appointments for %s %s: %+v", actor.RoleName(), actor.UserID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// AvailableSlots lists free slots between two clinic-local dates (inclusive).
// Reschedule listings apply the reschedule lead time.
func (u *appointmentUsecase) AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, to string, duration int, forReschedule bool) (*dto.SlotListResponse, error) {
	if duration < entity.MinAppointmentDuration || duration > entity.MaxAppointmentDuration {
		return nil, ErrInvalidDuration
	}

	loc := u.opts.Location
	fromDay, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return nil, ErrInvalidDateRange
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return nil, ErrInvalidDateRange
	}
	if toDay.Before(fromDay) || toDay.After(fromDay.AddDate(0, 0, maxSlotRangeDays)) {
		return nil, ErrInvalidDateRange
	}

	earliest := u.now()
	if forReschedule {
		earliest = earliest.Add(u.opts.RescheduleLead)
	}

	db := u.tx.Reader(ctx)
	slots, err := u.calendar.Slots(db, doctorID, service.SlotQuery{
		From:     fromDay,
		To:       toDay,
		Duration: duration,
		Step:     u.opts.SlotStep,
		Earliest: earliest,
	})
	if err != nil {
		u.log.Errorf("Failed to load availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	booked, err := u.appointmentRepo.FindActiveOverlapping(db, doctorID, fromDay, toDay.AddDate(0, 0, 1), nil)
	if err != nil {
		u.log.Errorf("Failed to load appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	responses := make([]dto.SlotResponse, 0)
	for slot := range slots {
		if overlapsAny(slot, booked) {
			continue
		}
		local := slot.Start.In(loc)
		responses = append(responses, dto.SlotResponse{
			Date:     local.Format("2006-01-02"),
			Time:     local.Format("15:04"),
			StartsAt: slot.Start,
			Duration: slot.Duration,
		})
	}

	return &dto.SlotListResponse{
		DoctorID: doctorID,
		Slots:    responses,
		Total:    len(responses),
	}, nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

type transition struct {
	action    string
	event     string
	authorize func(entity.Actor, *entity.Appointment) error
	apply     func(*entity.Appointment) error
}

func (u *appointmentUsecase) transition(ctx context.Context, id uuid.UUID, t transition) (*dto.AppointmentResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var appointment *entity.Appointment
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		a, err := u.appointmentRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}
		if err := t.authorize(actor, a); err != nil {
			return err
		}

		before := a.Status
		if err := t.apply(a); err != nil {
			return err
		}
		if err := u.appointmentRepo.Update(tx, a); err != nil {
			return err
		}

		appointment = a
		return u.auditService.LogUpdate(tx, actor, t.action, service.AuditEntityAppointment, a.ID.String(),
			map[string]string{"status": string(before)},
			map[string]string{"status": string(a.Status)})
	})
	if err != nil {
		return nil, u.writeError(t.action, err)
	}

	u.notify(ctx, t.event, appointment)
	u.log.Infof("Appointment %s: id=%s, status=%s", t.action, appointment.ID, appointment.Status)
	return converter.AppointmentToResponse(appointment), nil
}

func ownedByDoctor(actor entity.Actor, a *entity.Appointment) error {
	if !actor.IsDoctor() {
		return ErrForbiddenRole
	}
	if a.DoctorID != actor.UserID {
		return ErrAppointmentNotOwned
	}
	return nil
}

func ownedByParticipant(actor entity.Actor, a *entity.Appointment) error {
	switch {
	case actor.IsPatient() && a.PatientID == actor.UserID:
		return nil
	case actor.IsDoctor() && a.DoctorID == actor.UserID:
		return nil
	default:
		return ErrAppointmentNotOwned
	}
}

// checkSlotRequest holds the rules that need no database
func (u *appointmentUsecase) checkSlotRequest(start time.Time, duration int) error {
	if duration < entity.MinAppointmentDuration || duration > entity.MaxAppointmentDuration {
		return ErrInvalidDuration
	}
	if !start.Truncate(time.Minute).Equal(start) {
		return ErrInvalidDateTime
	}
	if !start.After(u.now()) {
		return ErrSlotInPast
	}
	return nil
}

// checkSlot runs both conflict resolver checks through db
func (u *appointmentUsecase) checkSlot(db *gorm.DB, doctorID uuid.UUID, start time.Time, duration int, excludeID *uuid.UUID) error {
	ok, err := u.resolver.IsWithinAvailability(db, doctorID, start, duration)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotUnavailable
	}

	conflicts, err := u.resolver.FindConflicts(db, doctorID, start, duration, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		ids := make([]uuid.UUID, len(conflicts))
		for i, c := range conflicts {
			ids[i] = c.ID
		}
		return &SlotConflictError{ConflictingIDs: ids}
	}
	return nil
}

// writeError classifies a failed transaction. A unique index violation means
// a concurrent booking won the slot.
func (u *appointmentUsecase) writeError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		u.log.Infof("%s: slot taken by a concurrent booking", op)
		return &SlotConflictError{}
	}
	if IsBusinessError(err) {
		u.log.Debugf("%s rejected: %v", op, err)
		return err
	}
	u.log.Errorf("Failed to %s: %+v", op, err)
	return err
}

func (u *appointmentUsecase) notify(ctx context.Context, event string, appointment *entity.Appointment) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, event, appointment); err != nil {
		u.log.Warnf("Failed to export %s for appointment %s: %+v", event, appointment.ID, err)
	}
}

func overlapsAny(slot service.Slot, appointments []entity.Appointment) bool {
	for i := range appointments {
		if timeslot.Overlaps(slot.Start, slot.End(), appointments[i].DateTime, appointments[i].EndTime()) {
			return true
		}
	}
	return false
}
