package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/internal/infrastructure/database"
	"clinic-scheduling/internal/realtime"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrQueueEntryNotFound   = errors.New("queue entry not found")
	ErrQueueEntryNotOwned   = errors.New("queue entry does not belong to you")
	ErrAlreadyInProgress    = errors.New("doctor already has a patient in progress")
	ErrQueueEmpty           = errors.New("no patients waiting")
	ErrAlreadyQueued        = errors.New("patient already has a live entry in this queue")
	ErrEntryNotWaiting      = errors.New("queue entry is not waiting")
	ErrEntryNotInProgress   = errors.New("queue entry is not in progress")
	ErrInvalidDoctorStatus  = errors.New("invalid doctor status")
	ErrAppointmentNotActive = errors.New("appointment is no longer active")
	ErrCheckInNotToday      = errors.New("check-in is only open on the day of the appointment")
)

// QueueOptions tune position estimates and call order
type QueueOptions struct {
	Location  *time.Location
	Estimator service.WaitTimeEstimator
	Policy    service.OrderingPolicy
}

type QueueUsecase interface {
	Enqueue(ctx context.Context, doctorID uuid.UUID) (*dto.QueueEntryResponse, error)
	CheckIn(ctx context.Context, appointmentID uuid.UUID) (*dto.QueueEntryResponse, error)
	CallNext(ctx context.Context) (*dto.QueueEntryResponse, error)
	Complete(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error)
	NoShow(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error)
	Cancel(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error)
	Snapshot(ctx context.Context, doctorID uuid.UUID) (*dto.QueueSnapshotResponse, error)
	GetDoctorStatus(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorStatusResponse, error)
	SetDoctorStatus(ctx context.Context, req *dto.UpdateDoctorStatusRequest) (*dto.DoctorStatusResponse, error)
	Resync(ctx context.Context, actor entity.Actor) ([]realtime.Event, error)
}

type queueUsecase struct {
	tx               database.Transactor
	log              *logrus.Logger
	queueRepo        repository.QueueEntryRepository
	doctorStatusRepo repository.DoctorStatusRepository
	appointmentRepo  repository.AppointmentRepository
	auditService     service.AuditService
	locks            DoctorLocker
	publisher        realtime.Publisher
	notifier         AppointmentNotifier
	opts             QueueOptions
	now              func() time.Time
}

func NewQueueUsecase(
	tx database.Transactor,
	log *logrus.Logger,
	queueRepo repository.QueueEntryRepository,
	doctorStatusRepo repository.DoctorStatusRepository,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	locks DoctorLocker,
	publisher realtime.Publisher,
	notifier AppointmentNotifier,
	opts QueueOptions,
) QueueUsecase {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Estimator == nil {
		opts.Estimator = service.FixedWaitTime(15)
	}
	if opts.Policy == nil {
		opts.Policy = service.FIFO
	}
	return &queueUsecase{
		tx:               tx,
		log:              log,
		queueRepo:        queueRepo,
		doctorStatusRepo: doctorStatusRepo,
		appointmentRepo:  appointmentRepo,
		auditService:     auditService,
		locks:            locks,
		publisher:        publisher,
		notifier:         notifier,
		opts:             opts,
		now:              time.Now,
	}
}

// Enqueue adds the calling patient to a doctor's queue as a walk-in
func (u *queueUsecase) Enqueue(ctx context.Context, doctorID uuid.UUID) (*dto.QueueEntryResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, ErrForbiddenRole
	}

	entry := &entity.QueueEntry{
		DoctorID:  doctorID,
		PatientID: actor.UserID,
		QueueType: entity.QueueTypeWalkIn,
	}
	return u.enqueue(ctx, actor, entry, nil)
}

// CheckIn turns the calling patient's active appointment into a queue entry
func (u *queueUsecase) CheckIn(ctx context.Context, appointmentID uuid.UUID) (*dto.QueueEntryResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, ErrForbiddenRole
	}

	appointment, err := u.appointmentRepo.FindByID(u.tx.Reader(ctx), appointmentID)
	if err != nil {
		u.log.Errorf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.PatientID != actor.UserID {
		return nil, ErrAppointmentNotOwned
	}

	entry := &entity.QueueEntry{
		DoctorID:      appointment.DoctorID,
		PatientID:     actor.UserID,
		AppointmentID: &appointment.ID,
		QueueType:     entity.QueueTypeAppointment,
	}

	// Status may have changed since the unlocked read above.
	recheck := func(tx *gorm.DB) error {
		a, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAppointmentNotFound
		}
		if !a.IsActive() {
			return ErrAppointmentNotActive
		}
		// Check-in opens only on the appointment's clinic-local day.
		today := timeslot.StartOfDay(u.now(), u.opts.Location)
		if !timeslot.StartOfDay(a.DateTime, u.opts.Location).Equal(today) {
			return ErrCheckInNotToday
		}
		existing, err := u.queueRepo.FindLiveByAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyQueued
		}
		scheduled := a.DateTime
		entry.ScheduledTime = &scheduled
		return nil
	}

	return u.enqueue(ctx, actor, entry, recheck)
}

// CallNext promotes the head of the calling doctor's queue. It refuses while
// another entry is in progress and then leaves the waiting list untouched.
func (u *queueUsecase) CallNext(ctx context.Context) (*dto.QueueEntryResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, ErrForbiddenRole
	}
	doctorID := actor.UserID

	unlock := u.locks.Lock(doctorID)
	defer unlock()

	var called *entity.QueueEntry
	var status *entity.DoctorStatus
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		s, err := u.doctorStatusRepo.LockForUpdate(tx, doctorID)
		if err != nil {
			return err
		}

		current, err := u.queueRepo.FindInProgress(tx, doctorID)
		if err != nil {
			return err
		}
		if current != nil {
			return ErrAlreadyInProgress
		}

		waiting, err := u.queueRepo.FindWaiting(tx, doctorID)
		if err != nil {
			return err
		}
		service.SortByEnqueueOrder(waiting)
		idx := u.opts.Policy(waiting)
		if idx < 0 || idx >= len(waiting) {
			return ErrQueueEmpty
		}

		next := waiting[idx]
		if err := next.Call(u.now()); err != nil {
			return err
		}
		if err := u.queueRepo.Update(tx, &next); err != nil {
			return err
		}

		s.AvailabilityStatus = entity.AvailabilityStatusBusy
		s.CurrentQueueEntryID = &next.ID
		if err := u.doctorStatusRepo.Save(tx, s); err != nil {
			return err
		}

		called, status = &next, s
		return u.auditService.LogUpdate(tx, actor, entity.AuditActionQueueCallNext, service.AuditEntityQueueEntry, next.ID.String(),
			map[string]string{"status": string(entity.QueueStatusWaiting)},
			map[string]string{"status": string(next.Status)})
	})
	if err != nil {
		return nil, u.writeError("call next patient", err)
	}

	u.log.Infof("Patient called: doctor=%s, entry=%s, serial=%d", doctorID, called.ID, called.SerialNumber)

	u.publishCalled(ctx, called)
	u.publishStatus(ctx, doctorID, status)
	u.broadcastQueue(ctx, doctorID)
	return converter.QueueEntryToResponse(called), nil
}

func (u *queueUsecase) Complete(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error) {
	return u.finish(ctx, entryID, entity.AuditActionQueueComplete, (*entity.QueueEntry).Complete,
		(*entity.Appointment).Complete, EventAppointmentCompleted)
}

func (u *queueUsecase) NoShow(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error) {
	return u.finish(ctx, entryID, entity.AuditActionQueueNoShow, (*entity.QueueEntry).MarkNoShow,
		(*entity.Appointment).MarkNoShow, EventAppointmentNoShow)
}

// Cancel withdraws the calling patient's waiting entry
func (u *queueUsecase) Cancel(ctx context.Context, entryID uuid.UUID) (*dto.QueueEntryResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, ErrForbiddenRole
	}

	doctorID, err := u.entryDoctor(ctx, entryID)
	if err != nil {
		return nil, err
	}

	unlock := u.locks.Lock(doctorID)
	defer unlock()

	var cancelled *entity.QueueEntry
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := u.doctorStatusRepo.LockForUpdate(tx, doctorID); err != nil {
			return err
		}

		entry, err := u.queueRepo.FindByID(tx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrQueueEntryNotFound
		}
		if entry.PatientID != actor.UserID {
			return ErrQueueEntryNotOwned
		}
		if err := entry.Cancel(u.now()); err != nil {
			return ErrEntryNotWaiting
		}
		if err := u.queueRepo.Update(tx, entry); err != nil {
			return err
		}

		cancelled = entry
		return u.auditService.LogUpdate(tx, actor, entity.AuditActionQueueCancel, service.AuditEntityQueueEntry, entry.ID.String(),
			map[string]string{"status": string(entity.QueueStatusWaiting)},
			map[string]string{"status": string(entry.Status)})
	})
	if err != nil {
		return nil, u.writeError("cancel queue entry", err)
	}

	u.log.Infof("Queue entry cancelled: doctor=%s, entry=%s", doctorID, cancelled.ID)

	u.broadcastQueue(ctx, doctorID, *cancelled)
	return converter.QueueEntryToResponse(cancelled), nil
}

// Snapshot returns a doctor's queue. The owning doctor and admins see the
// full waiting list and the entry in progress; a patient sees the doctor's
// status, the waiting count and only their own entries.
func (u *queueUsecase) Snapshot(ctx context.Context, doctorID uuid.UUID) (*dto.QueueSnapshotResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if actor.IsDoctor() && actor.UserID != doctorID {
		return nil, ErrForbiddenRole
	}
	if !actor.IsDoctor() && !actor.IsPatient() && !actor.IsAdmin() {
		return nil, ErrForbiddenRole
	}

	status, inProgress, waiting, err := u.loadQueue(u.tx.Reader(ctx), doctorID)
	if err != nil {
		u.log.Errorf("Failed to load queue for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	if !actor.IsPatient() {
		return converter.QueueSnapshotToResponse(doctorID, status, inProgress, waiting), nil
	}

	if inProgress != nil && inProgress.PatientID != actor.UserID {
		inProgress = nil
	}
	own := make([]entity.QueueEntry, 0, 1)
	for _, w := range waiting {
		if w.PatientID == actor.UserID {
			own = append(own, w)
		}
	}
	snapshot := converter.QueueSnapshotToResponse(doctorID, status, inProgress, own)
	snapshot.TotalWaiting = len(waiting)
	if inProgress == nil {
		snapshot.DoctorStatus.CurrentQueueEntryID = nil
	}
	return snapshot, nil
}

func (u *queueUsecase) GetDoctorStatus(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorStatusResponse, error) {
	status, err := u.doctorStatusRepo.FindByDoctorID(u.tx.Reader(ctx), doctorID)
	if err != nil {
		u.log.Errorf("Failed to find status for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return converter.DoctorStatusToResponse(doctorID, status), nil
}

// SetDoctorStatus changes the calling doctor's availability. The current
// queue entry is left alone; only Complete and NoShow clear it.
func (u *queueUsecase) SetDoctorStatus(ctx context.Context, req *dto.UpdateDoctorStatusRequest) (*dto.DoctorStatusResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, ErrForbiddenRole
	}

	next := entity.AvailabilityStatus(req.Status)
	if !next.IsValid() {
		return nil, ErrInvalidDoctorStatus
	}
	doctorID := actor.UserID

	unlock := u.locks.Lock(doctorID)
	defer unlock()

	var status *entity.DoctorStatus
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		s, err := u.doctorStatusRepo.LockForUpdate(tx, doctorID)
		if err != nil {
			return err
		}

		previous := s.AvailabilityStatus
		s.AvailabilityStatus = next
		if err := u.doctorStatusRepo.Save(tx, s); err != nil {
			return err
		}

		status = s
		return u.auditService.LogUpdate(tx, actor, entity.AuditActionDoctorStatus, service.AuditEntityDoctorStatus, doctorID.String(),
			map[string]string{"status": string(previous)},
			map[string]string{"status": string(next)})
	})
	if err != nil {
		return nil, u.writeError("set doctor status", err)
	}

	u.log.Infof("Doctor status changed: doctor=%s, status=%s", doctorID, status.AvailabilityStatus)

	u.publishStatus(ctx, doctorID, status)
	return converter.DoctorStatusToResponse(doctorID, status), nil
}

// Resync builds the full-state events for a freshly connected or recovering
// client. Doctors get their queue and status, patients one event per live entry.
func (u *queueUsecase) Resync(ctx context.Context, actor entity.Actor) ([]realtime.Event, error) {
	db := u.tx.Reader(ctx)

	switch {
	case actor.IsDoctor():
		status, inProgress, waiting, err := u.loadQueue(db, actor.UserID)
		if err != nil {
			return nil, err
		}
		snapshot := converter.QueueSnapshotToResponse(actor.UserID, status, inProgress, waiting)

		queueEvent, err := realtime.NewDoctorEvent(realtime.EventQueueUpdated, actor.UserID, snapshot)
		if err != nil {
			return nil, err
		}
		statusEvent, err := realtime.NewDoctorEvent(realtime.EventDoctorStatusChanged, actor.UserID, snapshot.DoctorStatus)
		if err != nil {
			return nil, err
		}
		return []realtime.Event{queueEvent, statusEvent}, nil

	case actor.IsPatient():
		live, err := u.queueRepo.FindLiveForPatient(db, actor.UserID)
		if err != nil {
			return nil, err
		}

		events := make([]realtime.Event, 0, len(live))
		for _, entry := range live {
			if entry.IsWaiting() {
				waiting, err := u.queueRepo.FindWaiting(db, entry.DoctorID)
				if err != nil {
					return nil, err
				}
				for _, w := range service.RecomputePositions(waiting, u.opts.Estimator) {
					if w.ID == entry.ID {
						entry = w
						break
					}
				}
			}
			event, err := realtime.NewPatientEvent(realtime.EventQueueEntryUpdated, entry.DoctorID, entry.PatientID,
				converter.QueueEntryToResponse(&entry))
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}
		return events, nil

	default:
		return nil, ErrForbiddenRole
	}
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// enqueue inserts entry under the doctor lock. recheck, when set, runs inside
// the transaction after the doctor row is locked.
func (u *queueUsecase) enqueue(ctx context.Context, actor entity.Actor, entry *entity.QueueEntry, recheck func(tx *gorm.DB) error) (*dto.QueueEntryResponse, error) {
	doctorID := entry.DoctorID

	unlock := u.locks.Lock(doctorID)
	defer unlock()

	err := u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := u.doctorStatusRepo.LockForUpdate(tx, doctorID); err != nil {
			return err
		}

		if recheck != nil {
			if err := recheck(tx); err != nil {
				return err
			}
		}

		existing, err := u.queueRepo.FindLiveByPatient(tx, doctorID, entry.PatientID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyQueued
		}

		now := u.now()
		queueDate := timeslot.StartOfDay(now, u.opts.Location)
		serial, err := u.queueRepo.MaxSerialNumber(tx, doctorID, queueDate)
		if err != nil {
			return err
		}

		entry.QueueDate = queueDate
		entry.SerialNumber = serial + 1
		entry.Status = entity.QueueStatusWaiting
		entry.EnqueuedAt = now
		if err := u.queueRepo.Create(tx, entry); err != nil {
			return err
		}

		return u.auditService.LogCreate(tx, actor, entity.AuditActionQueueEnqueue, service.AuditEntityQueueEntry,
			entry.ID.String(), converter.QueueEntryToResponse(entry))
	})
	if err != nil {
		return nil, u.writeError("enqueue patient", err)
	}

	u.log.Infof("Patient enqueued: doctor=%s, entry=%s, type=%s, serial=%d", doctorID, entry.ID, entry.QueueType, entry.SerialNumber)

	positioned := u.broadcastQueue(ctx, doctorID)
	for _, w := range positioned {
		if w.ID == entry.ID {
			entry.Position = w.Position
			entry.EstimatedWaitTime = w.EstimatedWaitTime
			break
		}
	}
	return converter.QueueEntryToResponse(entry), nil
}

// finish moves the doctor's in-progress entry to a terminal status, clears the
// doctor's current entry and mirrors the outcome into a linked appointment.
func (u *queueUsecase) finish(
	ctx context.Context,
	entryID uuid.UUID,
	action string,
	apply func(*entity.QueueEntry, time.Time) error,
	mirror func(*entity.Appointment) error,
	event string,
) (*dto.QueueEntryResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, ErrForbiddenRole
	}
	doctorID := actor.UserID

	unlock := u.locks.Lock(doctorID)
	defer unlock()

	var finished *entity.QueueEntry
	var status *entity.DoctorStatus
	var appointment *entity.Appointment
	err = u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		s, err := u.doctorStatusRepo.LockForUpdate(tx, doctorID)
		if err != nil {
			return err
		}

		entry, err := u.queueRepo.FindByID(tx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrQueueEntryNotFound
		}
		if entry.DoctorID != doctorID {
			return ErrQueueEntryNotOwned
		}
		if err := apply(entry, u.now()); err != nil {
			return ErrEntryNotInProgress
		}
		if err := u.queueRepo.Update(tx, entry); err != nil {
			return err
		}

		if s.CurrentQueueEntryID != nil && *s.CurrentQueueEntryID == entry.ID {
			s.CurrentQueueEntryID = nil
			if err := u.doctorStatusRepo.Save(tx, s); err != nil {
				return err
			}
		}

		if entry.AppointmentID != nil {
			a, err := u.appointmentRepo.FindByIDForUpdate(tx, *entry.AppointmentID)
			if err != nil {
				return err
			}
			// A linked appointment already closed elsewhere is left as it is.
			if a != nil && a.IsActive() {
				if err := mirror(a); err != nil {
					return err
				}
				if err := u.appointmentRepo.Update(tx, a); err != nil {
					return err
				}
				appointment = a
			}
		}

		finished, status = entry, s
		return u.auditService.LogUpdate(tx, actor, action, service.AuditEntityQueueEntry, entry.ID.String(),
			map[string]string{"status": string(entity.QueueStatusInProgress)},
			map[string]string{"status": string(entry.Status)})
	})
	if err != nil {
		return nil, u.writeError(action, err)
	}

	u.log.Infof("Queue entry finished: doctor=%s, entry=%s, status=%s", doctorID, finished.ID, finished.Status)

	if appointment != nil && u.notifier != nil {
		if err := u.notifier.Notify(ctx, event, appointment); err != nil {
			u.log.Warnf("Failed to export %s for appointment %s: %+v", event, appointment.ID, err)
		}
	}
	u.publishStatus(ctx, doctorID, status)
	u.broadcastQueue(ctx, doctorID, *finished)
	return converter.QueueEntryToResponse(finished), nil
}

// entryDoctor reads the doctor owning an entry; the doctor never changes
func (u *queueUsecase) entryDoctor(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error) {
	entry, err := u.queueRepo.FindByID(u.tx.Reader(ctx), entryID)
	if err != nil {
		u.log.Errorf("Failed to find queue entry %s: %+v", entryID, err)
		return uuid.Nil, err
	}
	if entry == nil {
		return uuid.Nil, ErrQueueEntryNotFound
	}
	return entry.DoctorID, nil
}

func (u *queueUsecase) loadQueue(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, *entity.QueueEntry, []entity.QueueEntry, error) {
	status, err := u.doctorStatusRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		return nil, nil, nil, err
	}
	inProgress, err := u.queueRepo.FindInProgress(db, doctorID)
	if err != nil {
		return nil, nil, nil, err
	}
	waiting, err := u.queueRepo.FindWaiting(db, doctorID)
	if err != nil {
		return nil, nil, nil, err
	}
	return status, inProgress, service.RecomputePositions(waiting, u.opts.Estimator), nil
}

// broadcastQueue publishes the committed queue state: the full snapshot to the
// doctor and one entry update to each affected patient. It returns the
// waiting list with positions.
func (u *queueUsecase) broadcastQueue(ctx context.Context, doctorID uuid.UUID, changed ...entity.QueueEntry) []entity.QueueEntry {
	status, inProgress, waiting, err := u.loadQueue(u.tx.Reader(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to load queue for broadcast, doctor=%s: %+v", doctorID, err)
		return nil
	}

	event, err := realtime.NewDoctorEvent(realtime.EventQueueUpdated, doctorID,
		converter.QueueSnapshotToResponse(doctorID, status, inProgress, waiting))
	u.publish(ctx, event, err)

	entries := make([]entity.QueueEntry, 0, len(waiting)+len(changed)+1)
	entries = append(entries, changed...)
	if inProgress != nil {
		entries = append(entries, *inProgress)
	}
	entries = append(entries, waiting...)

	for i := range entries {
		entry := &entries[i]
		event, err := realtime.NewPatientEvent(realtime.EventQueueEntryUpdated, doctorID, entry.PatientID,
			converter.QueueEntryToResponse(entry))
		u.publish(ctx, event, err)
	}
	return waiting
}

func (u *queueUsecase) publishCalled(ctx context.Context, entry *entity.QueueEntry) {
	event, err := realtime.NewPatientEvent(realtime.EventPatientCalled, entry.DoctorID, entry.PatientID,
		dto.PatientCalledPayload{
			PatientID:    entry.PatientID,
			DoctorID:     entry.DoctorID,
			QueueEntryID: entry.ID,
			SerialNumber: entry.SerialNumber,
			Message:      "The doctor is ready to see you",
		})
	u.publish(ctx, event, err)
}

func (u *queueUsecase) publishStatus(ctx context.Context, doctorID uuid.UUID, status *entity.DoctorStatus) {
	event, err := realtime.NewDoctorEvent(realtime.EventDoctorStatusChanged, doctorID,
		converter.DoctorStatusToResponse(doctorID, status))
	u.publish(ctx, event, err)
}

// publish is best-effort; the mutation has already committed
func (u *queueUsecase) publish(ctx context.Context, event realtime.Event, err error) {
	if err != nil {
		u.log.Warnf("Failed to build realtime event: %+v", err)
		return
	}
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.log.Warnf("Failed to publish %s to %s: %+v", event.Type, event.Topic, err)
	}
}

func (u *queueUsecase) writeError(op string, err error) error {
	if IsBusinessError(err) {
		u.log.Debugf("%s rejected: %v", op, err)
		return err
	}
	u.log.Errorf("Failed to %s: %+v", op, err)
	return err
}
