package converter

import (
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

// QueueEntryToResponse converts a QueueEntry entity to QueueEntryResponse DTO
func QueueEntryToResponse(entry *entity.QueueEntry) *dto.QueueEntryResponse {
	if entry == nil {
		return nil
	}

	return &dto.QueueEntryResponse{
		ID:                entry.ID,
		DoctorID:          entry.DoctorID,
		PatientID:         entry.PatientID,
		AppointmentID:     entry.AppointmentID,
		QueueType:         string(entry.QueueType),
		QueueDate:         entry.QueueDate.Format("2006-01-02"),
		SerialNumber:      entry.SerialNumber,
		Status:            string(entry.Status),
		Position:          entry.Position,
		EstimatedWaitTime: entry.EstimatedWaitTime,
		ScheduledTime:     entry.ScheduledTime,
		EnqueuedAt:        entry.EnqueuedAt,
		CalledAt:          entry.CalledAt,
		FinishedAt:        entry.FinishedAt,
	}
}

// QueueEntriesToResponses converts a slice of QueueEntry entities to slice of QueueEntryResponse DTOs
func QueueEntriesToResponses(entries []entity.QueueEntry) []dto.QueueEntryResponse {
	responses := make([]dto.QueueEntryResponse, len(entries))
	for i := range entries {
		responses[i] = *QueueEntryToResponse(&entries[i])
	}
	return responses
}

// QueueSnapshotToResponse assembles a doctor's queue state; waiting must already carry positions
func QueueSnapshotToResponse(doctorID uuid.UUID, status *entity.DoctorStatus, inProgress *entity.QueueEntry, waiting []entity.QueueEntry) *dto.QueueSnapshotResponse {
	return &dto.QueueSnapshotResponse{
		DoctorID:     doctorID,
		DoctorStatus: *DoctorStatusToResponse(doctorID, status),
		InProgress:   QueueEntryToResponse(inProgress),
		Waiting:      QueueEntriesToResponses(waiting),
		TotalWaiting: len(waiting),
	}
}
