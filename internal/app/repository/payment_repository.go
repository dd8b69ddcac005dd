package repository

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(payment *model.Payment) error
	FindByApplicationID(applicationID uint) ([]model.Payment, error)
	HasCompleted(applicationID uint) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *model.Payment) error {
	logger.Debug("Creating payment in database", map[string]interface{}{
		"application_id": payment.ApplicationID,
		"status":         payment.Status,
	})

	if err := r.db.Create(payment).Error; err != nil {
		logger.Error("Failed to create payment in database", err, map[string]interface{}{
			"application_id": payment.ApplicationID,
		})
		return err
	}
	return nil
}

func (r *paymentRepository) FindByApplicationID(applicationID uint) ([]model.Payment, error) {
	var payments []model.Payment
	if err := r.db.Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		logger.Error("Failed to find payments in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) HasCompleted(applicationID uint) (bool, error) {
	logger.Debug("Checking completed payment in database", map[string]interface{}{
		"application_id": applicationID,
	})

	var count int64
	if err := r.db.Model(&model.Payment{}).
		Where("application_id = ? AND status = ?", applicationID, model.PaymentStatusCompleted).
		Count(&count).Error; err != nil {
		logger.Error("Failed to check completed payment in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return false, err
	}
	return count > 0, nil
}
