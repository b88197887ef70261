package repository

import (
	"errors"
	"time"

	"clinic-scheduling/internal/domain/entity"
	domainRepo "clinic-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queueEntryRepository struct{}

func NewQueueEntryRepository() domainRepo.QueueEntryRepository {
	return &queueEntryRepository{}
}

func (r *queueEntryRepository) Create(db *gorm.DB, entry *entity.QueueEntry) error {
	return db.Create(entry).Error
}

func (r *queueEntryRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(db.Where("id = ?", id))
}

func (r *queueEntryRepository) FindWaiting(db *gorm.DB, doctorID uuid.UUID) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := db.Where("doctor_id = ? AND status = ?", doctorID, entity.QueueStatusWaiting).
		Order("enqueued_at ASC, serial_number ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) FindInProgress(db *gorm.DB, doctorID uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(db.Where("doctor_id = ? AND status = ?", doctorID, entity.QueueStatusInProgress))
}

func (r *queueEntryRepository) FindLiveByPatient(db *gorm.DB, doctorID, patientID uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(db.Where("doctor_id = ? AND patient_id = ? AND status IN ?",
		doctorID, patientID, []entity.QueueStatus{entity.QueueStatusWaiting, entity.QueueStatusInProgress}))
}

func (r *queueEntryRepository) FindLiveByAppointment(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	return r.first(db.Where("appointment_id = ? AND status IN ?",
		appointmentID, []entity.QueueStatus{entity.QueueStatusWaiting, entity.QueueStatusInProgress}))
}

func (r *queueEntryRepository) FindLiveForPatient(db *gorm.DB, patientID uuid.UUID) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := db.Where("patient_id = ? AND status IN ?",
		patientID, []entity.QueueStatus{entity.QueueStatusWaiting, entity.QueueStatusInProgress}).
		Order("enqueued_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) MaxSerialNumber(db *gorm.DB, doctorID uuid.UUID, queueDate time.Time) (int, error) {
	var maxSerial int
	err := db.Model(&entity.QueueEntry{}).
		Select("COALESCE(MAX(serial_number), 0)").
		Where("doctor_id = ? AND queue_date = ?", doctorID, queueDate.Format("2006-01-02")).
		Scan(&maxSerial).Error
	return maxSerial, err
}

func (r *queueEntryRepository) Update(db *gorm.DB, entry *entity.QueueEntry) error {
	return db.Save(entry).Error
}

func (r *queueEntryRepository) first(query *gorm.DB) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := query.First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
