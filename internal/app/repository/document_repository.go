package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(documents []model.ApplicationDocument) error
	FindByApplicationID(applicationID uint) ([]model.ApplicationDocument, error)
	FindTypesByApplicationID(applicationID uint) ([]model.DocumentType, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(documents []model.ApplicationDocument) error {
	if len(documents) == 0 {
		return nil
	}
	logger.Debug("Creating application documents in database", map[string]interface{}{
		"application_id": documents[0].ApplicationID,
		"count":          len(documents),
	})

	if err := r.db.Create(&documents).Error; err != nil {
		logger.Error("Failed to create application documents in database", err, map[string]interface{}{
			"application_id": documents[0].ApplicationID,
		})
		return err
	}
	return nil
}

func (r *documentRepository) FindByApplicationID(applicationID uint) ([]model.ApplicationDocument, error) {
	var documents []model.ApplicationDocument
	if err := r.db.Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&documents).Error; err != nil {
		logger.Error("Failed to find application documents in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, err
	}
	return documents, nil
}

// FindTypesByApplicationID returns the distinct document types uploaded for an application.
func (r *documentRepository) FindTypesByApplicationID(applicationID uint) ([]model.DocumentType, error) {
	logger.Debug("Finding uploaded document types in database", map[string]interface{}{
		"application_id": applicationID,
	})

	var types []model.DocumentType
	if err := r.db.Model(&model.ApplicationDocument{}).
		Where("application_id = ?", applicationID).
		Distinct().Order("document_type").
		Pluck("document_type", &types).Error; err != nil {
		logger.Error("Failed to find uploaded document types in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, err
	}

	logger.Debug("Uploaded document types found in database", map[string]interface{}{
		"application_id": applicationID,
		"types":          types,
	})
	return types, nil
}
