package repository

import (
	"errors"

	"clinic-scheduling/internal/domain/entity"
	domainRepo "clinic-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type doctorStatusRepository struct{}

func NewDoctorStatusRepository() domainRepo.DoctorStatusRepository {
	return &doctorStatusRepository{}
}

func (r *doctorStatusRepository) LockForUpdate(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, error) {
	seed := &entity.DoctorStatus{
		DoctorID:           doctorID,
		AvailabilityStatus: entity.AvailabilityStatusOffDuty,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	var status entity.DoctorStatus
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ?", doctorID).
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *doctorStatusRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) (*entity.DoctorStatus, error) {
	var status entity.DoctorStatus
	err := db.Where("doctor_id = ?", doctorID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

func (r *doctorStatusRepository) Save(db *gorm.DB, status *entity.DoctorStatus) error {
	return db.Save(status).Error
}
