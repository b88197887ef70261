package dto

import (
	"github.com/google/uuid"
)

// Request DTOs

type AvailabilityWindowRequest struct {
	DayOfWeek  *int    `json:"day_of_week" validate:"required,gte=0,lte=6"`
	StartTime  string  `json:"start_time" validate:"required,timeofday"`
	EndTime    string  `json:"end_time" validate:"required,timeofday"`
	BreakStart *string `json:"break_start" validate:"omitempty,timeofday,required_with=BreakEnd"`
	BreakEnd   *string `json:"break_end" validate:"omitempty,timeofday,required_with=BreakStart"`
}

// ReplaceAvailabilityRequest replaces the whole weekly template; an empty list closes every day.
type ReplaceAvailabilityRequest struct {
	Windows []AvailabilityWindowRequest `json:"windows" validate:"max=50,dive"`
}

// Response DTOs

type AvailabilityWindowResponse struct {
	ID         int     `json:"id"`
	DayOfWeek  int     `json:"day_of_week"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID                    `json:"doctor_id"`
	Windows  []AvailabilityWindowResponse `json:"windows"`
}
