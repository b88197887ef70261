package dto

import (
	"time"

	"github.com/google/uuid"
)

// Response DTOs

type QueueEntryResponse struct {
	ID                uuid.UUID  `json:"id"`
	DoctorID          uuid.UUID  `json:"doctor_id"`
	PatientID         uuid.UUID  `json:"patient_id"`
	AppointmentID     *uuid.UUID `json:"appointment_id,omitempty"`
	QueueType         string     `json:"queue_type"`
	QueueDate         string     `json:"queue_date"`
	SerialNumber      int        `json:"serial_number"`
	Status            string     `json:"status"`
	Position          int        `json:"position,omitempty"`
	EstimatedWaitTime int        `json:"estimated_wait_time,omitempty"`
	ScheduledTime     *time.Time `json:"scheduled_time,omitempty"`
	EnqueuedAt        time.Time  `json:"enqueued_at"`
	CalledAt          *time.Time `json:"called_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// QueueSnapshotResponse is the full state of one doctor's queue.
// It is also the payload of queue.updated events.
type QueueSnapshotResponse struct {
	DoctorID     uuid.UUID            `json:"doctor_id"`
	DoctorStatus DoctorStatusResponse `json:"doctor_status"`
	InProgress   *QueueEntryResponse  `json:"in_progress"`
	Waiting      []QueueEntryResponse `json:"waiting"`
	TotalWaiting int                  `json:"total_waiting"`
}

// PatientCalledPayload is the payload of patient.called events
type PatientCalledPayload struct {
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	QueueEntryID uuid.UUID `json:"queue_entry_id"`
	SerialNumber int       `json:"serial_number"`
	Message      string    `json:"message"`
}
