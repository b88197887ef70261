package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QueueType distinguishes walk-ins from checked-in appointments
type QueueType string

const (
	QueueTypeWalkIn      QueueType = "walk_in"
	QueueTypeAppointment QueueType = "appointment"
)

// QueueStatus represents the state of a queue entry
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "waiting"
	QueueStatusInProgress QueueStatus = "in_progress"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusNoShow     QueueStatus = "no_show"
	QueueStatusCancelled  QueueStatus = "cancelled"
)

var ErrInvalidQueueTransition = errors.New("queue entry status does not allow this transition")

// IsTerminal reports whether the entry has left position accounting
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusNoShow || s == QueueStatusCancelled
}

// QueueEntry is a patient's ticket in a doctor's in-clinic queue.
// Position and EstimatedWaitTime are derived on every read, never persisted.
type QueueEntry struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_queue_doctor_status" json:"doctor_id"`
	PatientID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"patient_id"`
	AppointmentID *uuid.UUID  `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	QueueType     QueueType   `gorm:"type:varchar(20);not null" json:"queue_type"`
	QueueDate     time.Time   `gorm:"type:date;not null" json:"queue_date"`
	SerialNumber  int         `gorm:"not null" json:"serial_number"`
	Status        QueueStatus `gorm:"type:varchar(20);not null;default:'waiting';index:idx_queue_doctor_status" json:"status"`
	ScheduledTime *time.Time  `gorm:"type:timestamptz" json:"scheduled_time,omitempty"`
	EnqueuedAt    time.Time   `gorm:"type:timestamptz;not null" json:"enqueued_at"`
	CalledAt      *time.Time  `gorm:"type:timestamptz" json:"called_at,omitempty"`
	FinishedAt    *time.Time  `gorm:"type:timestamptz" json:"finished_at,omitempty"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	Position          int `gorm:"-" json:"position,omitempty"`
	EstimatedWaitTime int `gorm:"-" json:"estimated_wait_time,omitempty"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

// IsWaiting checks if the entry still counts towards positions
func (q *QueueEntry) IsWaiting() bool {
	return q.Status == QueueStatusWaiting
}

// IsInProgress checks if the doctor is currently seeing this patient
func (q *QueueEntry) IsInProgress() bool {
	return q.Status == QueueStatusInProgress
}

// Call promotes a waiting entry to in progress
func (q *QueueEntry) Call(at time.Time) error {
	if q.Status != QueueStatusWaiting {
		return ErrInvalidQueueTransition
	}
	q.Status = QueueStatusInProgress
	q.CalledAt = &at
	q.Position = 0
	q.EstimatedWaitTime = 0
	return nil
}

// Complete finishes an in-progress consultation
func (q *QueueEntry) Complete(at time.Time) error {
	return q.finishFromInProgress(QueueStatusCompleted, at)
}

// MarkNoShow records that a called patient did not present
func (q *QueueEntry) MarkNoShow(at time.Time) error {
	return q.finishFromInProgress(QueueStatusNoShow, at)
}

// Cancel withdraws a waiting entry
func (q *QueueEntry) Cancel(at time.Time) error {
	if q.Status != QueueStatusWaiting {
		return ErrInvalidQueueTransition
	}
	q.Status = QueueStatusCancelled
	q.FinishedAt = &at
	q.Position = 0
	q.EstimatedWaitTime = 0
	return nil
}

func (q *QueueEntry) finishFromInProgress(to QueueStatus, at time.Time) error {
	if q.Status != QueueStatusInProgress {
		return ErrInvalidQueueTransition
	}
	q.Status = to
	q.FinishedAt = &at
	return nil
}
