package converter

import (
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

// DoctorStatusToResponse treats a doctor without a status row as off duty
func DoctorStatusToResponse(doctorID uuid.UUID, status *entity.DoctorStatus) *dto.DoctorStatusResponse {
	if status == nil {
		return &dto.DoctorStatusResponse{
			DoctorID: doctorID,
			Status:   string(entity.AvailabilityStatusOffDuty),
		}
	}

	return &dto.DoctorStatusResponse{
		DoctorID:            status.DoctorID,
		Status:              string(status.AvailabilityStatus),
		IsAvailable:         status.IsAvailable(),
		CurrentQueueEntryID: status.CurrentQueueEntryID,
		UpdatedAt:           status.UpdatedAt,
	}
}
