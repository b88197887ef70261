package repository

import (
	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorStatusRepository interface {
	// LockForUpdate loads the doctor's status row with a row lock, creating it
	// first if the doctor has none. All per-doctor write paths start here.
	LockForUpdate(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, error)
	Save(db *gorm.DB, status *entity.DoctorStatus) error
}
