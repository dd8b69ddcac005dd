package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(template *model.CertificateTemplate) error
	FindByID(id uint) (*model.CertificateTemplate, error)
	FindByPropertyTypeID(propertyTypeID uint) ([]model.CertificateTemplate, error)
	FindActiveByPropertyTypeID(propertyTypeID uint) ([]model.CertificateTemplate, error)
	Activate(id uint) (*model.CertificateTemplate, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(template *model.CertificateTemplate) error {
	logger.Debug("Creating certificate template in database", map[string]interface{}{
		"property_type_id": template.PropertyTypeID,
		"validity_months":  template.ValidityMonths,
	})

	if err := r.db.Omit("PropertyType").Create(template).Error; err != nil {
		logger.Error("Failed to create certificate template in database", err, map[string]interface{}{
			"property_type_id": template.PropertyTypeID,
		})
		return err
	}

	logger.Debug("Certificate template created in database", map[string]interface{}{
		"template_id":      template.ID,
		"property_type_id": template.PropertyTypeID,
	})
	return nil
}

func (r *templateRepository) FindByID(id uint) (*model.CertificateTemplate, error) {
	var template model.CertificateTemplate
	if err := r.db.First(&template, id).Error; err != nil {
		logger.Error("Failed to find certificate template by ID in database", err, map[string]interface{}{
			"template_id": id,
		})
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) FindByPropertyTypeID(propertyTypeID uint) ([]model.CertificateTemplate, error) {
	var templates []model.CertificateTemplate
	query := r.db.Order("property_type_id ASC").Order("id ASC")
	if propertyTypeID != 0 {
		query = query.Where("property_type_id = ?", propertyTypeID)
	}
	if err := query.Find(&templates).Error; err != nil {
		logger.Error("Failed to find certificate templates in database", err, map[string]interface{}{
			"property_type_id": propertyTypeID,
		})
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) FindActiveByPropertyTypeID(propertyTypeID uint) ([]model.CertificateTemplate, error) {
	logger.Debug("Finding active certificate templates in database", map[string]interface{}{
		"property_type_id": propertyTypeID,
	})

	var templates []model.CertificateTemplate
	if err := r.db.Where("property_type_id = ? AND is_active = ?", propertyTypeID, true).
		Find(&templates).Error; err != nil {
		logger.Error("Failed to find active certificate templates in database", err, map[string]interface{}{
			"property_type_id": propertyTypeID,
		})
		return nil, err
	}

	logger.Debug("Active certificate templates found in database", map[string]interface{}{
		"property_type_id": propertyTypeID,
		"count":            len(templates),
	})
	return templates, nil
}

// Activate deactivates every other template of the same property type and activates id
// in one transaction. The one-active partial unique index rejects concurrent activations.
func (r *templateRepository) Activate(id uint) (*model.CertificateTemplate, error) {
	logger.Debug("Activating certificate template in database", map[string]interface{}{
		"template_id": id,
	})

	var template model.CertificateTemplate
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&template, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.CertificateTemplate{}).
			Where("property_type_id = ? AND id <> ? AND is_active = ?", template.PropertyTypeID, id, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&template).Update("is_active", true).Error; err != nil {
			return err
		}
		template.IsActive = true
		return nil
	})
	if err != nil {
		logger.Error("Failed to activate certificate template in database", err, map[string]interface{}{
			"template_id": id,
		})
		return nil, err
	}

	logger.Debug("Certificate template activated in database", map[string]interface{}{
		"template_id":      template.ID,
		"property_type_id": template.PropertyTypeID,
	})
	return &template, nil
}
