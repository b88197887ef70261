package converter

import (
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:                   appointment.ID,
		DoctorID:             appointment.DoctorID,
		PatientID:            appointment.PatientID,
		DateTime:             appointment.DateTime,
		EndTime:              appointment.EndTime(),
		Duration:             appointment.Duration,
		Reason:               appointment.Reason,
		Notes:                appointment.Notes,
		Status:               string(appointment.Status),
		RescheduleHistory:    RescheduleHistoryToResponses(appointment.RescheduleHistory),
		RemainingReschedules: appointment.RemainingReschedules(),
		CreatedAt:            appointment.CreatedAt,
		UpdatedAt:            appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

// RescheduleHistoryToResponses never returns nil so the field encodes as []
func RescheduleHistoryToResponses(history entity.RescheduleHistory) []dto.RescheduleRecordResponse {
	responses := make([]dto.RescheduleRecordResponse, len(history))
	for i, record := range history {
		responses[i] = dto.RescheduleRecordResponse{
			PreviousDateTime: record.PreviousDateTime,
			NewDateTime:      record.NewDateTime,
			Reason:           record.Reason,
			RescheduledAt:    record.RescheduledAt,
			RescheduledBy:    record.RescheduledBy,
		}
	}
	return responses
}
