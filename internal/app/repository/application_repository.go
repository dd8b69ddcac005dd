package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository interface {
	Create(application *model.Application) error
	FindByID(id uint) (*model.Application, error)
	FindByHostID(hostID uint) ([]model.Application, error)
	FindByStatuses(statuses []model.ApplicationStatus) ([]model.Application, error)
	Update(application *model.Application) error
	Delete(id uint) error
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(application *model.Application) error {
	logger.Debug("Creating application in database", map[string]interface{}{
		"host_id":          application.HostID,
		"property_type_id": application.PropertyDetails.PropertyTypeID,
	})

	if err := r.db.Omit(clause.Associations).Create(application).Error; err != nil {
		logger.Error("Failed to create application in database", err, map[string]interface{}{
			"host_id": application.HostID,
		})
		return err
	}

	logger.Debug("Application created in database", map[string]interface{}{
		"application_id": application.ID,
		"host_id":        application.HostID,
		"status":         application.Status,
	})
	return nil
}

func (r *applicationRepository) FindByID(id uint) (*model.Application, error) {
	logger.Debug("Finding application by ID in database", map[string]interface{}{
		"application_id": id,
	})

	var application model.Application
	if err := r.db.Preload("Documents").Preload("ChecklistRecords").
		First(&application, id).Error; err != nil {
		logger.Error("Failed to find application by ID in database", err, map[string]interface{}{
			"application_id": id,
		})
		return nil, err
	}

	logger.Debug("Application found by ID in database", map[string]interface{}{
		"application_id": application.ID,
		"status":         application.Status,
		"current_step":   application.CurrentStep,
	})
	return &application, nil
}

func (r *applicationRepository) FindByHostID(hostID uint) ([]model.Application, error) {
	logger.Debug("Finding applications by host ID in database", map[string]interface{}{
		"host_id": hostID,
	})

	var applications []model.Application
	if err := r.db.Where("host_id = ?", hostID).
		Order("created_at DESC").Order("id DESC").
		Find(&applications).Error; err != nil {
		logger.Error("Failed to find applications by host ID in database", err, map[string]interface{}{
			"host_id": hostID,
		})
		return nil, err
	}

	logger.Debug("Applications found by host ID in database", map[string]interface{}{
		"host_id": hostID,
		"count":   len(applications),
	})
	return applications, nil
}

// FindByStatuses returns applications in any of statuses, oldest submission first.
func (r *applicationRepository) FindByStatuses(statuses []model.ApplicationStatus) ([]model.Application, error) {
	logger.Debug("Finding applications by statuses in database", map[string]interface{}{
		"statuses": statuses,
	})

	var applications []model.Application
	if err := r.db.Where("status IN ?", statuses).
		Order("submitted_at ASC").Order("id ASC").
		Find(&applications).Error; err != nil {
		logger.Error("Failed to find applications by statuses in database", err, map[string]interface{}{
			"statuses": statuses,
		})
		return nil, err
	}

	logger.Debug("Applications found by statuses in database", map[string]interface{}{
		"count": len(applications),
	})
	return applications, nil
}

// Update saves the application row only. Documents and checklist records have their own
// repositories, and certification_id is written solely by the certification repository.
func (r *applicationRepository) Update(application *model.Application) error {
	logger.Debug("Updating application in database", map[string]interface{}{
		"application_id": application.ID,
		"status":         application.Status,
		"current_step":   application.CurrentStep,
	})

	if err := r.db.Omit(clause.Associations, "CertificationID").Save(application).Error; err != nil {
		logger.Error("Failed to update application in database", err, map[string]interface{}{
			"application_id": application.ID,
		})
		return err
	}

	logger.Debug("Application updated in database", map[string]interface{}{
		"application_id": application.ID,
		"status":         application.Status,
		"current_step":   application.CurrentStep,
	})
	return nil
}

// Delete soft-deletes the application.
func (r *applicationRepository) Delete(id uint) error {
	logger.Debug("Deleting application in database", map[string]interface{}{
		"application_id": id,
	})

	result := r.db.Delete(&model.Application{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete application in database", result.Error, map[string]interface{}{
			"application_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Application deleted in database", map[string]interface{}{
		"application_id": id,
	})
	return nil
}
