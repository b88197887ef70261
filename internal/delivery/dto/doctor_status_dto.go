package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type UpdateDoctorStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available busy break off_duty"`
}

// Response DTOs

// DoctorStatusResponse is also the payload of doctor.status.changed events
type DoctorStatusResponse struct {
	DoctorID            uuid.UUID  `json:"doctor_id"`
	Status              string     `json:"status"`
	IsAvailable         bool       `json:"is_available"`
	CurrentQueueEntryID *uuid.UUID `json:"current_queue_entry_id,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
