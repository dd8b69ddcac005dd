package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/internal/metrics"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultExpiryWarningDays = 30

var (
	ErrCertificationNotFound    = apperrors.NotFound(apperrors.CertificationNotFound, "certification not found")
	ErrCertificationRevoked     = apperrors.Conflict(apperrors.CertificationAlreadyRevoked, "certification is already revoked")
	ErrCertificationExpired     = apperrors.Conflict(apperrors.CertificationExpired, "cannot revoke an expired certification")
	ErrCertificationNotRenew    = apperrors.Conflict(apperrors.CertificationNotRenewable, "certification cannot be renewed from its current status")
	ErrRevocationReasonRequired = apperrors.Validation(apperrors.CertificationReasonRequired, "a revocation reason is required")
	ErrVerificationCodeRequired = apperrors.Validation(apperrors.ValidationRequired, "verification code is required")
)

// LifecycleConfig holds lifecycle defaults.
type LifecycleConfig struct {
	DefaultValidityMonths int
	ExpiryWarningDays     int
}

// BulkItemResult is the outcome of one item of a bulk operation.
type BulkItemResult struct {
	ID            uint                 `json:"id"`
	Success       bool                 `json:"success"`
	Certification *model.Certification `json:"certification,omitempty"`
	Error         string               `json:"error,omitempty"`
	ErrorCode     string               `json:"error_code,omitempty"`
}

// BulkResult collects per-item outcomes. The batch is not transactional.
type BulkResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

type ExpiryReport struct {
	CheckedAt    time.Time             `json:"checked_at"`
	WarningDays  int                   `json:"warning_days"`
	Expired      []model.Certification `json:"expired"`
	ExpiringSoon []model.Certification `json:"expiring_soon"`
	MarkedCount  int64                 `json:"marked_count"`
}

// VerificationResult is computed at query time and does not trust a stale stored status.
type VerificationResult struct {
	Valid             bool                      `json:"valid"`
	IsExpired         bool                      `json:"is_expired"`
	IsRevoked         bool                      `json:"is_revoked"`
	Status            model.CertificationStatus `json:"status"`
	CertificateNumber string                    `json:"certificate_number"`
	PropertyName      string                    `json:"property_name,omitempty"`
	Address           string                    `json:"address,omitempty"`
	IssuedAt          time.Time                 `json:"issued_at"`
	ExpiresAt         time.Time                 `json:"expires_at"`
	RevokedAt         *time.Time                `json:"revoked_at,omitempty"`
	RevocationReason  string                    `json:"revocation_reason,omitempty"`
	BadgeURL          string                    `json:"badge_url,omitempty"`
}

type CertificationService interface {
	Get(id uint, actor model.Actor) (*model.Certification, error)
	GetByApplication(applicationID uint, actor model.Actor) (*model.Certification, error)
	Revoke(id uint, reason string, actor model.Actor) (*model.Certification, error)
	Renew(id uint, actor model.Actor) (*model.Certification, error)
	BulkRevoke(ids []uint, reason string, actor model.Actor) (*BulkResult, error)
	BulkRenew(ids []uint, actor model.Actor) (*BulkResult, error)
	CheckExpiryStatus(warningDays int) (*ExpiryReport, error)
	Verify(code string) (*VerificationResult, error)
}

type certificationService struct {
	certRepo repository.CertificationRepository
	appRepo  repository.ApplicationRepository
	notifier Notifier
	auditor  Auditor
	metrics  *metrics.Metrics
	cfg      LifecycleConfig
	now      func() time.Time
}

func NewCertificationService(
	certRepo repository.CertificationRepository,
	appRepo repository.ApplicationRepository,
	notifier Notifier,
	auditor Auditor,
	m *metrics.Metrics,
	cfg LifecycleConfig,
) CertificationService {
	if cfg.DefaultValidityMonths < 1 {
		cfg.DefaultValidityMonths = 12
	}
	if cfg.ExpiryWarningDays < 1 {
		cfg.ExpiryWarningDays = defaultExpiryWarningDays
	}
	return &certificationService{
		certRepo: certRepo,
		appRepo:  appRepo,
		notifier: notifier,
		auditor:  auditor,
		metrics:  m,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a certification to a reviewer or to the host it was issued to.
func (s *certificationService) Get(id uint, actor model.Actor) (*model.Certification, error) {
	cert, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsReviewer() && cert.HostID != actor.UserID {
		return nil, ErrApplicationForbidden
	}
	return cert, nil
}

func (s *certificationService) GetByApplication(applicationID uint, actor model.Actor) (*model.Certification, error) {
	cert, err := s.certRepo.FindByApplicationID(applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	if !actor.IsReviewer() && cert.HostID != actor.UserID {
		return nil, ErrApplicationForbidden
	}
	return cert, nil
}

// Revoke moves an ACTIVE, unexpired certification to REVOKED. The status check and
// the write are a single conditional update.
func (s *certificationService) Revoke(id uint, reason string, actor model.Actor) (*model.Certification, error) {
	logger.Info("Revoking certification", map[string]interface{}{
		"certification_id": id,
		"actor_id":         actor.UserID,
	})

	if !actor.IsReviewer() {
		return nil, ErrReviewerOnly
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRevocationReasonRequired
	}

	now := s.now()
	revoked, err := s.certRepo.Revoke(id, actor.UserID, reason, now)
	if err != nil {
		return nil, err
	}

	cert, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !revoked {
		if cert.Status == model.CertificationStatusRevoked {
			logger.Warn("Revoke rejected, certification already revoked", map[string]interface{}{
				"certification_id": id,
			})
			return nil, ErrCertificationRevoked
		}
		logger.Warn("Revoke rejected, certification expired", map[string]interface{}{
			"certification_id": id,
			"status":           cert.Status,
			"expires_at":       cert.ExpiresAt,
		})
		return nil, ErrCertificationExpired
	}

	s.metrics.IncRevoked()
	s.audit(model.AuditActionCertificationRevoked, cert.ID, uintPtr(actor.UserID),
		map[string]interface{}{"status": model.CertificationStatusActive},
		map[string]interface{}{"status": cert.Status, "revocation_reason": reason})
	s.notify(cert, model.NotificationTypeCertificationRevoked, "Certification revoked",
		fmt.Sprintf("Certificate %s was revoked: %s", cert.CertificateNumber, reason))

	logger.Info("Certification revoked", map[string]interface{}{
		"certification_id": cert.ID,
		"actor_id":         actor.UserID,
	})
	return cert, nil
}

// Renew reactivates a certification for DefaultValidityMonths from now and clears
// any revocation metadata.
func (s *certificationService) Renew(id uint, actor model.Actor) (*model.Certification, error) {
	logger.Info("Renewing certification", map[string]interface{}{
		"certification_id": id,
		"actor_id":         actor.UserID,
	})

	if !actor.IsReviewer() {
		return nil, ErrReviewerOnly
	}

	cert, err := s.load(id)
	if err != nil {
		return nil, err
	}
	switch cert.Status {
	case model.CertificationStatusActive, model.CertificationStatusExpired, model.CertificationStatusRevoked:
	default:
		return nil, ErrCertificationNotRenew.WithDetails(string(cert.Status))
	}

	before := map[string]interface{}{
		"status":     cert.Status,
		"expires_at": cert.ExpiresAt.Format(time.RFC3339),
	}

	now := s.now()
	expiresAt := now.AddDate(0, s.cfg.DefaultValidityMonths, 0)
	if err := s.certRepo.Renew(cert.ID, expiresAt, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}

	cert, err = s.load(id)
	if err != nil {
		return nil, err
	}

	s.metrics.IncRenewed()
	s.audit(model.AuditActionCertificationRenewed, cert.ID, uintPtr(actor.UserID), before, map[string]interface{}{
		"status":     cert.Status,
		"expires_at": cert.ExpiresAt.Format(time.RFC3339),
	})
	s.notify(cert, model.NotificationTypeCertificationRenewed, "Certification renewed",
		fmt.Sprintf("Certificate %s is now valid until %s", cert.CertificateNumber, cert.ExpiresAt.Format("2006-01-02")))

	logger.Info("Certification renewed", map[string]interface{}{
		"certification_id": cert.ID,
		"expires_at":       cert.ExpiresAt,
	})
	return cert, nil
}

func (s *certificationService) BulkRevoke(ids []uint, reason string, actor model.Actor) (*BulkResult, error) {
	if !actor.IsReviewer() {
		return nil, ErrReviewerOnly
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrRevocationReasonRequired
	}
	return s.bulk(ids, func(id uint) (*model.Certification, error) {
		return s.Revoke(id, reason, actor)
	}), nil
}

func (s *certificationService) BulkRenew(ids []uint, actor model.Actor) (*BulkResult, error) {
	if !actor.IsReviewer() {
		return nil, ErrReviewerOnly
	}
	return s.bulk(ids, func(id uint) (*model.Certification, error) {
		return s.Renew(id, actor)
	}), nil
}

// bulk runs op for each id in order; one failure does not stop the rest.
func (s *certificationService) bulk(ids []uint, op func(id uint) (*model.Certification, error)) *BulkResult {
	result := &BulkResult{Items: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		cert, err := op(id)
		item := BulkItemResult{ID: id}
		if err != nil {
			item.Error = err.Error()
			if appErr, ok := apperrors.As(err); ok {
				item.ErrorCode = appErr.Code
			}
			result.Failed++
		} else {
			item.Success = true
			item.Certification = cert
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	logger.Info("Bulk certification operation finished", map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	return result
}

// CheckExpiryStatus classifies ACTIVE certifications expiring within warningDays and
// marks the already expired ones EXPIRED. Marking is conditional on ACTIVE, so
// concurrent or repeated runs are safe.
func (s *certificationService) CheckExpiryStatus(warningDays int) (*ExpiryReport, error) {
	if warningDays < 1 {
		warningDays = s.cfg.ExpiryWarningDays
	}
	now := s.now()
	report := &ExpiryReport{
		CheckedAt:    now,
		WarningDays:  warningDays,
		Expired:      []model.Certification{},
		ExpiringSoon: []model.Certification{},
	}

	candidates, err := s.certRepo.FindActiveExpiringBefore(now.AddDate(0, 0, warningDays))
	if err != nil {
		return nil, err
	}

	var expired []model.Certification
	for _, cert := range candidates {
		if cert.ExpiresAt.Before(now) {
			expired = append(expired, cert)
		} else {
			report.ExpiringSoon = append(report.ExpiringSoon, cert)
		}
	}

	if len(expired) > 0 {
		ids := make([]uint, 0, len(expired))
		for _, cert := range expired {
			ids = append(ids, cert.ID)
		}
		marked, err := s.certRepo.MarkExpired(ids)
		if err != nil {
			return nil, err
		}
		report.MarkedCount = int64(len(marked))
		s.metrics.AddExpired(report.MarkedCount)

		// only rows this run moved are reported, audited and notified
		moved := make(map[uint]bool, len(marked))
		for _, id := range marked {
			moved[id] = true
		}
		for _, cert := range expired {
			if !moved[cert.ID] {
				continue
			}
			cert.Status = model.CertificationStatusExpired
			report.Expired = append(report.Expired, cert)
			s.audit(model.AuditActionCertificationExpired, cert.ID, nil,
				map[string]interface{}{"status": model.CertificationStatusActive},
				map[string]interface{}{"status": model.CertificationStatusExpired})
			s.notify(&cert, model.NotificationTypeCertificationExpired, "Certification expired",
				fmt.Sprintf("Certificate %s expired on %s", cert.CertificateNumber, cert.ExpiresAt.Format("2006-01-02")))
		}
	}

	logger.Info("Certification expiry check finished", map[string]interface{}{
		"expired":       len(report.Expired),
		"marked":        report.MarkedCount,
		"expiring_soon": len(report.ExpiringSoon),
		"warning_days":  warningDays,
	})
	return report, nil
}

// Verify looks a certification up by verification token or certificate number.
func (s *certificationService) Verify(code string) (*VerificationResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrVerificationCodeRequired
	}

	cert, err := s.certRepo.FindByVerificationCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}

	now := s.now()
	isExpired := cert.ExpiresAt.Before(now)
	isRevoked := cert.Status == model.CertificationStatusRevoked
	result := &VerificationResult{
		Valid:             !isExpired && !isRevoked && cert.Status == model.CertificationStatusActive,
		IsExpired:         isExpired,
		IsRevoked:         isRevoked,
		Status:            cert.Status,
		CertificateNumber: cert.CertificateNumber,
		IssuedAt:          cert.IssuedAt,
		ExpiresAt:         cert.ExpiresAt,
		RevokedAt:         cert.RevokedAt,
		RevocationReason:  cert.RevocationReason,
		BadgeURL:          cert.BadgeURL,
	}

	if app, err := s.appRepo.FindByID(cert.ApplicationID); err == nil {
		result.PropertyName = app.PropertyDetails.PropertyName
		result.Address = app.PropertyDetails.Address
	}
	return result, nil
}

func (s *certificationService) load(id uint) (*model.Certification, error) {
	cert, err := s.certRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificationNotFound
		}
		return nil, err
	}
	return cert, nil
}

func (s *certificationService) audit(action model.AuditAction, certID uint, actorID *uint, oldValues, newValues map[string]interface{}) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(AuditEntry{
		Action:     action,
		EntityType: entityCertificate,
		EntityID:   certID,
		ActorID:    actorID,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
}

func (s *certificationService) notify(cert *model.Certification, event model.NotificationType, title, content string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(cert.HostID, event, NotificationPayload{
		Title:                  title,
		Content:                content,
		Link:                   cert.VerificationURL,
		RelatedApplicationID:   uintPtr(cert.ApplicationID),
		RelatedCertificationID: uintPtr(cert.ID),
	})
}
