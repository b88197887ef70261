package converter

import (
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

// AvailabilityWindowsToResponse converts a doctor's windows to AvailabilityResponse DTO
func AvailabilityWindowsToResponse(doctorID uuid.UUID, windows []entity.AvailabilityWindow) *dto.AvailabilityResponse {
	responses := make([]dto.AvailabilityWindowResponse, len(windows))
	for i, w := range windows {
		responses[i] = dto.AvailabilityWindowResponse{
			ID:         w.ID,
			DayOfWeek:  w.DayOfWeek,
			StartTime:  w.StartTime,
			EndTime:    w.EndTime,
			BreakStart: w.BreakStart,
			BreakEnd:   w.BreakEnd,
		}
	}

	return &dto.AvailabilityResponse{
		DoctorID: doctorID,
		Windows:  responses,
	}
}

// AvailabilityRequestToEntities converts request windows to entities owned by doctorID
func AvailabilityRequestToEntities(doctorID uuid.UUID, req *dto.ReplaceAvailabilityRequest) []entity.AvailabilityWindow {
	windows := make([]entity.AvailabilityWindow, 0, len(req.Windows))
	for _, w := range req.Windows {
		window := entity.AvailabilityWindow{
			DoctorID:   doctorID,
			StartTime:  w.StartTime,
			EndTime:    w.EndTime,
			BreakStart: w.BreakStart,
			BreakEnd:   w.BreakEnd,
		}
		if w.DayOfWeek != nil {
			window.DayOfWeek = *w.DayOfWeek
		}
		windows = append(windows, window)
	}
	return windows
}
