package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/realtime"
	"clinic-scheduling/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// memStore backs every fake repository. All access goes through mu so the
// fakes are safe under the concurrent tests.
type memStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]entity.Appointment
	windows      []entity.AvailabilityWindow
	entries      map[uuid.UUID]entity.QueueEntry
	statuses     map[uuid.UUID]entity.DoctorStatus
	audits       []entity.AuditLog

	// forceDuplicate makes the next appointment insert fail like the unique index would
	forceDuplicate bool
}

func newMemStore() *memStore {
	return &memStore{
		appointments: make(map[uuid.UUID]entity.Appointment),
		entries:      make(map[uuid.UUID]entity.QueueEntry),
		statuses:     make(map[uuid.UUID]entity.DoctorStatus),
	}
}

// fakeAppointmentRepo

type fakeAppointmentRepo struct{ s *memStore }

func (r *fakeAppointmentRepo) Create(_ *gorm.DB, a *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.forceDuplicate {
		r.s.forceDuplicate = false
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range r.s.appointments {
		if existing.DoctorID == a.DoctorID && existing.DateTime.Equal(a.DateTime) && existing.IsActive() {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.s.appointments[a.ID] = cloneAppointment(*a)
	return nil
}

func (r *fakeAppointmentRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, nil
	}
	out := cloneAppointment(a)
	return &out, nil
}

func (r *fakeAppointmentRepo) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.FindByID(db, id)
}

func (r *fakeAppointmentRepo) FindActiveOverlapping(_ *gorm.DB, doctorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if a.DoctorID != doctorID || !a.IsActive() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DateTime.Before(to) && a.EndTime().After(from) {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func (r *fakeAppointmentRepo) FindByPatientID(_ *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	return r.filter(func(a entity.Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *fakeAppointmentRepo) FindByDoctorID(_ *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	return r.filter(func(a entity.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *fakeAppointmentRepo) Update(_ *gorm.DB, a *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a.UpdatedAt = time.Now()
	r.s.appointments[a.ID] = cloneAppointment(*a)
	return nil
}

func (r *fakeAppointmentRepo) filter(keep func(entity.Appointment) bool) []entity.Appointment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if keep(a) {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}

func cloneAppointment(a entity.Appointment) entity.Appointment {
	history := make(entity.RescheduleHistory, len(a.RescheduleHistory))
	copy(history, a.RescheduleHistory)
	a.RescheduleHistory = history
	return a
}

// fakeAvailabilityRepo

type fakeAvailabilityRepo struct{ s *memStore }

func (r *fakeAvailabilityRepo) FindByDoctorID(_ *gorm.DB, doctorID uuid.UUID) ([]entity.AvailabilityWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.AvailabilityWindow
	for _, w := range r.s.windows {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) FindByDoctorAndDay(_ *gorm.DB, doctorID uuid.UUID, dayOfWeek int) ([]entity.AvailabilityWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.AvailabilityWindow
	for _, w := range r.s.windows {
		if w.DoctorID == doctorID && w.DayOfWeek == dayOfWeek {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) ReplaceForDoctor(_ *gorm.DB, doctorID uuid.UUID, windows []entity.AvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.windows[:0]
	for _, w := range r.s.windows {
		if w.DoctorID != doctorID {
			kept = append(kept, w)
		}
	}
	for i := range windows {
		windows[i].ID = len(kept) + i + 1
	}
	r.s.windows = append(kept, windows...)
	return nil
}

// fakeQueueRepo

type fakeQueueRepo struct{ s *memStore }

func (r *fakeQueueRepo) Create(_ *gorm.DB, e *entity.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.s.entries[e.ID] = *e
	return nil
}

func (r *fakeQueueRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *fakeQueueRepo) FindWaiting(_ *gorm.DB, doctorID uuid.UUID) ([]entity.QueueEntry, error) {
	out := r.filter(func(e entity.QueueEntry) bool { return e.DoctorID == doctorID && e.IsWaiting() })
	service.SortByEnqueueOrder(out)
	return out, nil
}

func (r *fakeQueueRepo) FindInProgress(_ *gorm.DB, doctorID uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(func(e entity.QueueEntry) bool { return e.DoctorID == doctorID && e.IsInProgress() }), nil
}

func (r *fakeQueueRepo) FindLiveByPatient(_ *gorm.DB, doctorID, patientID uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(func(e entity.QueueEntry) bool {
		return e.DoctorID == doctorID && e.PatientID == patientID && !e.Status.IsTerminal()
	}), nil
}

func (r *fakeQueueRepo) FindLiveByAppointment(_ *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(func(e entity.QueueEntry) bool {
		return e.AppointmentID != nil && *e.AppointmentID == appointmentID && !e.Status.IsTerminal()
	}), nil
}

func (r *fakeQueueRepo) FindLiveForPatient(_ *gorm.DB, patientID uuid.UUID) ([]entity.QueueEntry, error) {
	out := r.filter(func(e entity.QueueEntry) bool { return e.PatientID == patientID && !e.Status.IsTerminal() })
	service.SortByEnqueueOrder(out)
	return out, nil
}

func (r *fakeQueueRepo) MaxSerialNumber(_ *gorm.DB, doctorID uuid.UUID, queueDate time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	day := queueDate.Format("2006-01-02")
	highest := 0
	for _, e := range r.s.entries {
		if e.DoctorID == doctorID && e.QueueDate.Format("2006-01-02") == day && e.SerialNumber > highest {
			highest = e.SerialNumber
		}
	}
	return highest, nil
}

func (r *fakeQueueRepo) Update(_ *gorm.DB, e *entity.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.entries[e.ID] = *e
	return nil
}

func (r *fakeQueueRepo) filter(keep func(entity.QueueEntry) bool) []entity.QueueEntry {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.QueueEntry
	for _, e := range r.s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *fakeQueueRepo) first(keep func(entity.QueueEntry) bool) *entity.QueueEntry {
	matches := r.filter(keep)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// fakeDoctorStatusRepo

type fakeDoctorStatusRepo struct{ s *memStore }

func (r *fakeDoctorStatusRepo) LockForUpdate(_ *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	status, ok := r.s.statuses[doctorID]
	if !ok {
		status = entity.DoctorStatus{DoctorID: doctorID, AvailabilityStatus: entity.AvailabilityStatusOffDuty}
		r.s.statuses[doctorID] = status
	}
	return &status, nil
}

func (r *fakeDoctorStatusRepo) FindByDoctorID(_ *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	status, ok := r.s.statuses[doctorID]
	if !ok {
		return nil, nil
	}
	return &status, nil
}

func (r *fakeDoctorStatusRepo) Save(_ *gorm.DB, status *entity.DoctorStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	status.UpdatedAt = time.Now()
	r.s.statuses[status.DoctorID] = *status
	return nil
}

// fakeAuditRepo

type fakeAuditRepo struct{ s *memStore }

func (r *fakeAuditRepo) Create(_ *gorm.DB, log *entity.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	log.ID = int64(len(r.s.audits) + 1)
	log.CreatedAt = time.Now()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

func (r *fakeAuditRepo) FindByEntity(_ *gorm.DB, entityName string, entityID string) ([]entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.AuditLog
	for _, l := range r.s.audits {
		if l.Metadata["entity"] == entityName && l.Metadata["entity_id"] == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) FindByID(_ *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, l := range r.s.audits {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

// fakeTransactor runs one unit of work at a time, standing in for the doctor row lock

type fakeTransactor struct {
	mu sync.Mutex
}

func (t *fakeTransactor) WithinTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(nil)
}

func (t *fakeTransactor) Reader(_ context.Context) *gorm.DB {
	return nil
}

// recordingPublisher keeps every published event

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t realtime.EventType) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []realtime.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// recordingNotifier keeps every exported lifecycle event type

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, eventType string, _ *entity.Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// harness wires real services and usecases onto the fakes

type harness struct {
	store        *memStore
	now          time.Time
	publisher    *recordingPublisher
	notifier     *recordingNotifier
	appointments *appointmentUsecase
	queue        *queueUsecase
	availability AvailabilityUsecase
	audit        AuditLogUsecase
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newHarness pins the clock to now, in UTC
func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	store := newMemStore()
	log := quietLogger()
	tx := &fakeTransactor{}
	loc := time.UTC

	appointmentRepo := &fakeAppointmentRepo{s: store}
	availabilityRepo := &fakeAvailabilityRepo{s: store}
	queueRepo := &fakeQueueRepo{s: store}
	statusRepo := &fakeDoctorStatusRepo{s: store}
	auditRepo := &fakeAuditRepo{s: store}

	locks := service.NewDoctorLocks(log)
	t.Cleanup(locks.Stop)
	auditService := service.NewAuditService(log, auditRepo)
	publisher := &recordingPublisher{}
	notifier := &recordingNotifier{}
	clock := func() time.Time { return now }

	appointments := NewAppointmentUsecase(tx, log, appointmentRepo, statusRepo,
		service.NewAvailabilityCalendar(availabilityRepo, loc),
		service.NewConflictResolver(availabilityRepo, appointmentRepo, loc),
		auditService, locks, notifier,
		SchedulingOptions{Location: loc, SlotStep: 15, RescheduleLead: 2 * time.Hour},
	).(*appointmentUsecase)
	appointments.now = clock

	queue := NewQueueUsecase(tx, log, queueRepo, statusRepo, appointmentRepo, auditService, locks, publisher, notifier,
		QueueOptions{Location: loc, Estimator: service.FixedWaitTime(15)},
	).(*queueUsecase)
	queue.now = clock

	return &harness{
		store:        store,
		now:          now,
		publisher:    publisher,
		notifier:     notifier,
		appointments: appointments,
		queue:        queue,
		availability: NewAvailabilityUsecase(tx, log, availabilityRepo, statusRepo, auditService, locks),
		audit:        NewAuditLogUsecase(tx, log, auditRepo),
	}
}

// addWindow stores a window for the doctor, with an optional break
func (h *harness) addWindow(doctorID uuid.UUID, day time.Weekday, start, end string, breakRange ...string) {
	w := entity.AvailabilityWindow{
		ID:        len(h.store.windows) + 1,
		DoctorID:  doctorID,
		DayOfWeek: int(day),
		StartTime: start,
		EndTime:   end,
	}
	if len(breakRange) == 2 {
		w.BreakStart = &breakRange[0]
		w.BreakEnd = &breakRange[1]
	}
	h.store.windows = append(h.store.windows, w)
}

// seedAppointment stores an appointment directly, bypassing the usecase
func (h *harness) seedAppointment(a entity.Appointment) entity.Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = entity.AppointmentStatusPending
	}
	if a.Duration == 0 {
		a.Duration = 30
	}
	if a.Reason == "" {
		a.Reason = "checkup"
	}
	h.store.appointments[a.ID] = cloneAppointment(a)
	return a
}

func patientCtx(id uuid.UUID) context.Context {
	return middleware.WithActor(context.Background(), entity.Actor{UserID: id, RoleID: entity.RoleIDPatient})
}

func doctorCtx(id uuid.UUID) context.Context {
	return middleware.WithActor(context.Background(), entity.Actor{UserID: id, RoleID: entity.RoleIDDoctor})
}

func adminCtx() context.Context {
	return middleware.WithActor(context.Background(), entity.Actor{UserID: uuid.New(), RoleID: entity.RoleIDAdmin})
}
