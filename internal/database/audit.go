package database

import (
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Auditor writes audit log entries. Failures are logged, never returned.
type Auditor struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewAuditor(db *gorm.DB, log logrus.FieldLogger) *Auditor {
	return &Auditor{db: db, log: log}
}

func (a *Auditor) Record(userID uuid.UUID, entity, entityID, action, details string) {
	if a == nil || a.db == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := a.db.Create(&record).Error; err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"entity":    entity,
			"entity_id": entityID,
			"action":    action,
		}).Warn("failed to write audit log")
	}
}

func (a *Auditor) List(entity, entityID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	q := a.db.Preload("User").Order("created_at desc").Limit(limit)
	if entity != "" {
		q = q.Where("entity = ?", entity)
	}
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}
	var logs []models.AuditLog
	err := q.Find(&logs).Error
	return logs, err
}
