package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusAccepted  AppointmentStatus = "accepted"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

const (
	MinAppointmentDuration = 15
	MaxAppointmentDuration = 480
	MaxRescheduleHistory   = 3
)

var (
	ErrInvalidTransition = errors.New("appointment status does not allow this transition")
	ErrRescheduleLimit   = errors.New("reschedule history is full")
	ErrMalformedHistory  = errors.New("malformed reschedule history")
	ErrHistoryTooLong    = errors.New("reschedule history exceeds maximum length")
)

// ActiveAppointmentStatuses are the statuses that still occupy a time slot.
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusAccepted,
	AppointmentStatusConfirmed,
	AppointmentStatusScheduled,
}

// IsActive reports whether the status still occupies a time slot.
func (s AppointmentStatus) IsActive() bool {
	for _, a := range ActiveAppointmentStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Appointment is a booked consultation between a patient and a doctor.
// Appointments are never deleted; cancellation is a status transition.
type Appointment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_doctor_time" json:"doctor_id"`
	PatientID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DateTime          time.Time         `gorm:"type:timestamptz;not null;index:idx_appointments_doctor_time" json:"date_time"`
	Duration          int               `gorm:"not null" json:"duration"`
	Reason            string            `gorm:"type:text;not null" json:"reason"`
	Notes             string            `gorm:"type:text" json:"notes,omitempty"`
	Status            AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RescheduleHistory RescheduleHistory `gorm:"type:jsonb;not null;default:'[]'" json:"reschedule_history"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// EndTime returns the exclusive end of the appointment interval
func (a *Appointment) EndTime() time.Time {
	return a.DateTime.Add(time.Duration(a.Duration) * time.Minute)
}

// IsActive checks if the appointment still occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status.IsActive()
}

// IsPending checks if appointment is awaiting doctor approval
func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

// RemainingReschedules returns how many more reschedules are allowed
func (a *Appointment) RemainingReschedules() int {
	remaining := MaxRescheduleHistory - len(a.RescheduleHistory)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Accept moves a pending appointment to accepted
func (a *Appointment) Accept() error {
	if a.Status != AppointmentStatusPending {
		return ErrInvalidTransition
	}
	a.Status = AppointmentStatusAccepted
	return nil
}

// Reject cancels a pending appointment on the doctor's behalf
func (a *Appointment) Reject() error {
	if a.Status != AppointmentStatusPending {
		return ErrInvalidTransition
	}
	a.Status = AppointmentStatusCancelled
	return nil
}

// Confirm moves an accepted appointment to confirmed
func (a *Appointment) Confirm() error {
	if a.Status != AppointmentStatusAccepted {
		return ErrInvalidTransition
	}
	a.Status = AppointmentStatusConfirmed
	return nil
}

// Complete finishes an active appointment
func (a *Appointment) Complete() error {
	return a.finish(AppointmentStatusCompleted)
}

// MarkNoShow records that the patient did not attend
func (a *Appointment) MarkNoShow() error {
	return a.finish(AppointmentStatusNoShow)
}

// Cancel releases the slot of an active appointment
func (a *Appointment) Cancel() error {
	return a.finish(AppointmentStatusCancelled)
}

func (a *Appointment) finish(to AppointmentStatus) error {
	if !a.IsActive() {
		return ErrInvalidTransition
	}
	a.Status = to
	return nil
}

// Reschedule moves the appointment to newStart, appends a history record and
// resets the status to pending so the doctor approves the new time again.
// Time-based rules are enforced by the caller; this only guards state and the cap.
func (a *Appointment) Reschedule(newStart time.Time, reason string, by string, at time.Time) error {
	if !a.IsActive() {
		return ErrInvalidTransition
	}
	if len(a.RescheduleHistory) >= MaxRescheduleHistory {
		return ErrRescheduleLimit
	}
	a.RescheduleHistory = append(a.RescheduleHistory, RescheduleRecord{
		PreviousDateTime: a.DateTime,
		NewDateTime:      newStart,
		Reason:           reason,
		RescheduledAt:    at,
		RescheduledBy:    by,
	})
	a.DateTime = newStart
	a.Status = AppointmentStatusPending
	return nil
}

// RescheduleRecord is one entry of an appointment's reschedule trail
type RescheduleRecord struct {
	PreviousDateTime time.Time `json:"previous_date_time"`
	NewDateTime      time.Time `json:"new_date_time"`
	Reason           string    `json:"reason,omitempty"`
	RescheduledAt    time.Time `json:"rescheduled_at"`
	RescheduledBy    string    `json:"rescheduled_by"`
}

// RescheduleHistory is stored as a JSONB array with a fixed schema.
// Unlike a free-text blob, malformed stored data is a scan error, never "no history".
type RescheduleHistory []RescheduleRecord

// Value implements driver.Valuer
func (h RescheduleHistory) Value() (driver.Value, error) {
	if len(h) > MaxRescheduleHistory {
		return nil, ErrHistoryTooLong
	}
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (h *RescheduleHistory) Scan(value interface{}) error {
	if value == nil {
		*h = RescheduleHistory{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrMalformedHistory, value)
	}

	var records []RescheduleRecord
	if err := json.Unmarshal(bytes, &records); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHistory, err)
	}
	if len(records) > MaxRescheduleHistory {
		return ErrHistoryTooLong
	}
	*h = records
	return nil
}
