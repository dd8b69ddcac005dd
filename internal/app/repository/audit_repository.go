package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(entry *model.AuditLog) error
	FindByEntity(entityType string, entityID uint) ([]model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(entry *model.AuditLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to create audit log in database", err, map[string]interface{}{
			"action":      entry.Action,
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
		})
		return err
	}
	return nil
}

func (r *auditRepository) FindByEntity(entityType string, entityID uint) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	if err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		logger.Error("Failed to find audit logs in database", err, map[string]interface{}{
			"entity_type": entityType,
			"entity_id":   entityID,
		})
		return nil, err
	}
	return entries, nil
}
