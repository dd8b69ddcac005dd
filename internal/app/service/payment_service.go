package service

import (
	"errors"
	"strings"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidPaymentAmount = apperrors.Validation(apperrors.ValidationInvalidInput, "payment amount must be positive")
	ErrInvalidPaymentStatus = apperrors.Validation(apperrors.ValidationInvalidInput, "unsupported payment status")
)

// RecordPaymentInput is a payment outcome reported by the gateway integration.
type RecordPaymentInput struct {
	Amount        float64             `json:"amount" binding:"required"`
	Currency      string              `json:"currency"`
	Status        model.PaymentStatus `json:"status" binding:"required"`
	Provider      string              `json:"provider"`
	TransactionID string              `json:"transaction_id"`
}

type PaymentService interface {
	PaymentChecker
	RecordPayment(applicationID uint, input RecordPaymentInput) (*model.Payment, error)
	ListPayments(applicationID uint) ([]model.Payment, error)
}

type paymentService struct {
	repo    repository.PaymentRepository
	appRepo repository.ApplicationRepository
	now     func() time.Time
}

func NewPaymentService(repo repository.PaymentRepository, appRepo repository.ApplicationRepository) PaymentService {
	return &paymentService{
		repo:    repo,
		appRepo: appRepo,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// HasCompletedPayment is true when any payment row for the application is COMPLETED.
func (s *paymentService) HasCompletedPayment(applicationID uint) (bool, error) {
	return s.repo.HasCompleted(applicationID)
}

func (s *paymentService) RecordPayment(applicationID uint, input RecordPaymentInput) (*model.Payment, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}
	switch input.Status {
	case model.PaymentStatusPending, model.PaymentStatusCompleted, model.PaymentStatusFailed, model.PaymentStatusRefunded:
	default:
		return nil, ErrInvalidPaymentStatus.WithDetails(string(input.Status))
	}

	if _, err := s.appRepo.FindByID(applicationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}

	payment := &model.Payment{
		ApplicationID: applicationID,
		Amount:        input.Amount,
		Currency:      currency,
		Status:        input.Status,
		Provider:      input.Provider,
		TransactionID: input.TransactionID,
	}
	if input.Status == model.PaymentStatusCompleted {
		paidAt := s.now()
		payment.PaidAt = &paidAt
	}

	if err := s.repo.Create(payment); err != nil {
		return nil, err
	}

	logger.Info("Payment recorded", map[string]interface{}{
		"application_id": applicationID,
		"payment_id":     payment.ID,
		"status":         payment.Status,
	})
	return payment, nil
}

func (s *paymentService) ListPayments(applicationID uint) ([]model.Payment, error) {
	return s.repo.FindByApplicationID(applicationID)
}
