package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type ChecklistRepository interface {
	FindByApplicationID(applicationID uint) ([]model.ComplianceChecklistRecord, error)
	Replace(applicationID uint, records []model.ComplianceChecklistRecord) error
}

type checklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) ChecklistRepository {
	return &checklistRepository{db: db}
}

func (r *checklistRepository) FindByApplicationID(applicationID uint) ([]model.ComplianceChecklistRecord, error) {
	logger.Debug("Finding checklist records in database", map[string]interface{}{
		"application_id": applicationID,
	})

	var records []model.ComplianceChecklistRecord
	if err := r.db.Preload("ChecklistItem").
		Where("application_id = ?", applicationID).
		Order("checklist_item_id ASC").
		Find(&records).Error; err != nil {
		logger.Error("Failed to find checklist records in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, err
	}
	return records, nil
}

// Replace deletes every record of the application and inserts records in one transaction.
// Concurrent replaces for the same application are last-writer-wins.
func (r *checklistRepository) Replace(applicationID uint, records []model.ComplianceChecklistRecord) error {
	logger.Debug("Replacing checklist records in database", map[string]interface{}{
		"application_id": applicationID,
		"count":          len(records),
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", applicationID).
			Delete(&model.ComplianceChecklistRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].ApplicationID = applicationID
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		logger.Error("Failed to replace checklist records in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return err
	}

	logger.Debug("Checklist records replaced in database", map[string]interface{}{
		"application_id": applicationID,
		"count":          len(records),
	})
	return nil
}
