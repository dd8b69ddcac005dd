package repository

import (
	"errors"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrApplicationAlreadyBound is returned when the application row already references a certification.
var ErrApplicationAlreadyBound = errors.New("application already bound to a certification")

type CertificationRepository interface {
	CreateAndBind(certification *model.Certification) error
	FindByID(id uint) (*model.Certification, error)
	FindByApplicationID(applicationID uint) (*model.Certification, error)
	FindByVerificationCode(code string) (*model.Certification, error)
	ExistsForApplication(applicationID uint) (bool, error)
	UpdateAssets(id uint, badgeURL, qrCodeURL string) error
	Revoke(id, revokedBy uint, reason string, at time.Time) (bool, error)
	Renew(id uint, expiresAt, renewedAt time.Time) error
	FindActiveExpiringBefore(cutoff time.Time) ([]model.Certification, error)
	MarkExpired(ids []uint) ([]uint, error)
}

type certificationRepository struct {
	db *gorm.DB
}

func NewCertificationRepository(db *gorm.DB) CertificationRepository {
	return &certificationRepository{db: db}
}

// CreateAndBind inserts certification and links it from its application in one transaction.
// Unique violations on application_id, certificate_number or verification_token are returned
// unchanged so callers can tell them apart.
func (r *certificationRepository) CreateAndBind(certification *model.Certification) error {
	logger.Debug("Creating certification in database", map[string]interface{}{
		"application_id":     certification.ApplicationID,
		"certificate_number": certification.CertificateNumber,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(certification).Error; err != nil {
			return err
		}

		result := tx.Model(&model.Application{}).
			Where("id = ? AND certification_id IS NULL", certification.ApplicationID).
			Update("certification_id", certification.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrApplicationAlreadyBound
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create certification in database", err, map[string]interface{}{
			"application_id":     certification.ApplicationID,
			"certificate_number": certification.CertificateNumber,
		})
		certification.ID = 0
		return err
	}

	logger.Debug("Certification created in database", map[string]interface{}{
		"certification_id":   certification.ID,
		"application_id":     certification.ApplicationID,
		"certificate_number": certification.CertificateNumber,
	})
	return nil
}

func (r *certificationRepository) FindByID(id uint) (*model.Certification, error) {
	logger.Debug("Finding certification by ID in database", map[string]interface{}{
		"certification_id": id,
	})

	var certification model.Certification
	if err := r.db.First(&certification, id).Error; err != nil {
		logger.Error("Failed to find certification by ID in database", err, map[string]interface{}{
			"certification_id": id,
		})
		return nil, err
	}
	return &certification, nil
}

func (r *certificationRepository) FindByApplicationID(applicationID uint) (*model.Certification, error) {
	var certification model.Certification
	if err := r.db.Where("application_id = ?", applicationID).First(&certification).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find certification by application ID in database", err, map[string]interface{}{
				"application_id": applicationID,
			})
		}
		return nil, err
	}
	return &certification, nil
}

// FindByVerificationCode matches the verification token first, then the certificate number.
func (r *certificationRepository) FindByVerificationCode(code string) (*model.Certification, error) {
	logger.Debug("Finding certification by verification code in database")

	var certification model.Certification
	err := r.db.Where("verification_token = ?", code).First(&certification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.Where("certificate_number = ?", code).First(&certification).Error
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find certification by verification code in database", err)
		}
		return nil, err
	}

	logger.Debug("Certification found by verification code in database", map[string]interface{}{
		"certification_id": certification.ID,
		"status":           certification.Status,
	})
	return &certification, nil
}

func (r *certificationRepository) ExistsForApplication(applicationID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Certification{}).
		Where("application_id = ?", applicationID).
		Count(&count).Error; err != nil {
		logger.Error("Failed to check certification existence in database", err, map[string]interface{}{
			"application_id": applicationID,
		})
		return false, err
	}
	return count > 0, nil
}

func (r *certificationRepository) UpdateAssets(id uint, badgeURL, qrCodeURL string) error {
	if err := r.db.Model(&model.Certification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"badge_url":   badgeURL,
		"qr_code_url": qrCodeURL,
	}).Error; err != nil {
		logger.Error("Failed to update certification assets in database", err, map[string]interface{}{
			"certification_id": id,
		})
		return err
	}
	return nil
}

// Revoke moves an ACTIVE, unexpired certification to REVOKED.
// It reports false when no row was in a revocable state.
func (r *certificationRepository) Revoke(id, revokedBy uint, reason string, at time.Time) (bool, error) {
	logger.Debug("Revoking certification in database", map[string]interface{}{
		"certification_id": id,
		"revoked_by":       revokedBy,
	})

	result := r.db.Model(&model.Certification{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, model.CertificationStatusActive, at).
		Updates(map[string]interface{}{
			"status":            model.CertificationStatusRevoked,
			"revoked_at":        at,
			"revoked_by":        revokedBy,
			"revocation_reason": reason,
		})
	if result.Error != nil {
		logger.Error("Failed to revoke certification in database", result.Error, map[string]interface{}{
			"certification_id": id,
		})
		return false, result.Error
	}

	logger.Debug("Certification revoke applied in database", map[string]interface{}{
		"certification_id": id,
		"rows_affected":    result.RowsAffected,
	})
	return result.RowsAffected > 0, nil
}

// Renew sets the certification ACTIVE with a new expiry and clears revocation metadata.
func (r *certificationRepository) Renew(id uint, expiresAt, renewedAt time.Time) error {
	logger.Debug("Renewing certification in database", map[string]interface{}{
		"certification_id": id,
		"expires_at":       expiresAt,
	})

	result := r.db.Model(&model.Certification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            model.CertificationStatusActive,
		"expires_at":        expiresAt,
		"renewed_at":        renewedAt,
		"revoked_at":        nil,
		"revoked_by":        nil,
		"revocation_reason": "",
	})
	if result.Error != nil {
		logger.Error("Failed to renew certification in database", result.Error, map[string]interface{}{
			"certification_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *certificationRepository) FindActiveExpiringBefore(cutoff time.Time) ([]model.Certification, error) {
	logger.Debug("Finding active certifications expiring before cutoff in database", map[string]interface{}{
		"cutoff": cutoff,
	})

	var certifications []model.Certification
	if err := r.db.Where("status = ? AND expires_at <= ?", model.CertificationStatusActive, cutoff).
		Order("expires_at ASC").
		Find(&certifications).Error; err != nil {
		logger.Error("Failed to find expiring certifications in database", err, map[string]interface{}{
			"cutoff": cutoff,
		})
		return nil, err
	}

	logger.Debug("Expiring certifications found in database", map[string]interface{}{
		"count": len(certifications),
	})
	return certifications, nil
}

// MarkExpired moves the given certifications from ACTIVE to EXPIRED and returns the ids it
// moved. Each row is updated on its own condition, so rows another sweep or a revoke got to
// first are left out and repeated or concurrent calls never report a row twice.
func (r *certificationRepository) MarkExpired(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	logger.Debug("Marking certifications expired in database", map[string]interface{}{
		"count": len(ids),
	})

	marked := make([]uint, 0, len(ids))
	for _, id := range ids {
		result := r.db.Model(&model.Certification{}).
			Where("id = ? AND status = ?", id, model.CertificationStatusActive).
			Update("status", model.CertificationStatusExpired)
		if result.Error != nil {
			logger.Error("Failed to mark certification expired in database", result.Error, map[string]interface{}{
				"certification_id": id,
			})
			return marked, result.Error
		}
		if result.RowsAffected == 1 {
			marked = append(marked, id)
		}
	}

	logger.Debug("Certifications marked expired in database", map[string]interface{}{
		"requested": len(ids),
		"marked":    len(marked),
	})
	return marked, nil
}
