package repository

import (
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueEntryRepository interface {
	Create(db *gorm.DB, entry *entity.QueueEntry) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error)
	// FindWaiting returns the doctor's waiting entries in enqueue order.
	FindWaiting(db *gorm.DB, doctorID uuid.UUID) ([]entity.QueueEntry, error)
	FindInProgress(db *gorm.DB, doctorID uuid.UUID) (*entity.QueueEntry, error)
	// FindLiveByPatient returns the patient's waiting or in-progress entry with the doctor, if any.
	FindLiveByPatient(db *gorm.DB, doctorID, patientID uuid.UUID) (*entity.QueueEntry, error)
	FindLiveByAppointment(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error)
	// FindLiveForPatient returns the patient's waiting or in-progress entries across doctors.
	FindLiveForPatient(db *gorm.DB, patientID uuid.UUID) ([]entity.QueueEntry, error)
	MaxSerialNumber(db *gorm.DB, doctorID uuid.UUID, queueDate time.Time) (int, error)
	Update(db *gorm.DB, entry *entity.QueueEntry) error
}
