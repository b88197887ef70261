package service

import (
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Audit entity names
const (
	AuditEntityAppointment  = "appointment"
	AuditEntityAvailability = "availability"
	AuditEntityQueueEntry   = "queue_entry"
	AuditEntityDoctorStatus = "doctor_status"
)

// AuditService writes audit trail rows inside the caller's transaction, so a
// rolled back transition leaves no trail.
type AuditService interface {
	LogCreate(tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, newValue interface{}) error
	LogUpdate(tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue, newValue interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, newValue interface{}) error {
	return s.write(tx, actor, action, entityName, entityID, nil, newValue)
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue, newValue interface{}) error {
	return s.write(tx, actor, action, entityName, entityID, oldValue, newValue)
}

func (s *auditService) write(tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue, newValue interface{}) error {
	userID := actor.UserID
	auditLog := &entity.AuditLog{
		UserID: &userID,
		Action: action,
		Metadata: entity.JSON{
			"entity":     entityName,
			"entity_id":  entityID,
			"actor_role": actor.RoleName(),
			"old_value":  oldValue,
			"new_value":  newValue,
		},
	}

	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
