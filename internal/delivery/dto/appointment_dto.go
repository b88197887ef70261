package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type ValidateBookingRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" validate:"required"`
	DateTime time.Time `json:"date_time" validate:"required"`
	Duration int       `json:"duration" validate:"required,gte=15,lte=480"`
}

type CreateBookingRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" validate:"required"`
	DateTime time.Time `json:"date_time" validate:"required"`
	Duration int       `json:"duration" validate:"required,gte=15,lte=480"`
	Reason   string    `json:"reason" validate:"required,max=1000"`
	Notes    string    `json:"notes" validate:"max=2000"`
}

type RescheduleBookingRequest struct {
	NewDateTime time.Time `json:"new_date_time" validate:"required"`
	Reason      string    `json:"reason" validate:"max=1000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                   uuid.UUID                  `json:"id"`
	DoctorID             uuid.UUID                  `json:"doctor_id"`
	PatientID            uuid.UUID                  `json:"patient_id"`
	DateTime             time.Time                  `json:"date_time"`
	EndTime              time.Time                  `json:"end_time"`
	Duration             int                        `json:"duration"`
	Reason               string                     `json:"reason"`
	Notes                string                     `json:"notes,omitempty"`
	Status               string                     `json:"status"`
	RescheduleHistory    []RescheduleRecordResponse `json:"reschedule_history"`
	RemainingReschedules int                        `json:"remaining_reschedules"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
}

type RescheduleRecordResponse struct {
	PreviousDateTime time.Time `json:"previous_date_time"`
	NewDateTime      time.Time `json:"new_date_time"`
	Reason           string    `json:"reason,omitempty"`
	RescheduledAt    time.Time `json:"rescheduled_at"`
	RescheduledBy    string    `json:"rescheduled_by"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// ValidateBookingResponse is advisory; create re-checks inside its transaction.
type ValidateBookingResponse struct {
	Valid     bool        `json:"valid"`
	Reason    string      `json:"reason,omitempty"`
	Conflicts []uuid.UUID `json:"conflicts,omitempty"`
}

type RescheduleResponse struct {
	Appointment          AppointmentResponse        `json:"appointment"`
	RescheduleHistory    []RescheduleRecordResponse `json:"reschedule_history"`
	RemainingReschedules int                        `json:"remaining_reschedules"`
}

type SlotResponse struct {
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	StartsAt time.Time `json:"starts_at"`
	Duration int       `json:"duration"`
}

type SlotListResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Slots    []SlotResponse `json:"slots"`
	Total    int            `json:"total"`
}

// SlotConflictDetail is returned in the error field of a 409
type SlotConflictDetail struct {
	ConflictingAppointmentIDs []uuid.UUID `json:"conflicting_appointment_ids"`
}
