package entity

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityStatus is a doctor's live presence in the clinic
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "available"
	AvailabilityStatusBusy      AvailabilityStatus = "busy"
	AvailabilityStatusBreak     AvailabilityStatus = "break"
	AvailabilityStatusOffDuty   AvailabilityStatus = "off_duty"
)

// IsValid checks the status against the known set
func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case AvailabilityStatusAvailable, AvailabilityStatusBusy, AvailabilityStatusBreak, AvailabilityStatusOffDuty:
		return true
	}
	return false
}

// DoctorStatus is the per-doctor live state. Its row doubles as the lock
// that serializes bookings and queue mutations for the doctor.
type DoctorStatus struct {
	DoctorID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"doctor_id"`
	AvailabilityStatus  AvailabilityStatus `gorm:"type:varchar(20);not null;default:'off_duty'" json:"availability_status"`
	CurrentQueueEntryID *uuid.UUID         `gorm:"type:uuid" json:"current_queue_entry_id,omitempty"`
	UpdatedAt           time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DoctorStatus) TableName() string {
	return "doctor_statuses"
}

// IsAvailable is derived from the availability status
func (d *DoctorStatus) IsAvailable() bool {
	return d.AvailabilityStatus == AvailabilityStatusAvailable
}
