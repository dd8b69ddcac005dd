package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/internal/badge"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/internal/metrics"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"github.com/ikkim/staycert-backend/pkg/util"
	"gorm.io/gorm"
)

// MaxCertificateNumberAttempts bounds the insert retries on a certificate number collision.
const MaxCertificateNumberAttempts = 10

const verificationTokenBytes = 32

var (
	ErrCertificationNotApproved   = apperrors.Validation(apperrors.CertificationNotApproved, "application must be approved before issuance")
	ErrNoActiveTemplate           = apperrors.Conflict(apperrors.TemplateNoneActive, "no active certificate template for property type")
	ErrMultipleActiveTemplates    = apperrors.Conflict(apperrors.TemplateMultipleActive, "more than one active certificate template for property type")
	ErrCertificationAlreadyExists = apperrors.Conflict(apperrors.CertificationAlreadyExists, "a certification already exists for this application")
	ErrPaymentRequired            = apperrors.Validation(apperrors.CertificationPaymentRequired, "no completed payment for application")
	ErrRequiredDocumentsMissing   = apperrors.Validation(apperrors.CertificationDocumentsMissing, "required documents are missing")
	ErrCertificateNumberExhausted = apperrors.Exhaustion(apperrors.CertificateNumberExhausted, "could not allocate a unique certificate number")
)

// IssuerConfig holds issuance settings.
type IssuerConfig struct {
	VerificationBaseURL string
}

type certificationIssuer struct {
	appRepo      repository.ApplicationRepository
	templateRepo repository.TemplateRepository
	certRepo     repository.CertificationRepository
	documents    DocumentChecker
	payments     PaymentChecker
	badges       BadgeGenerator
	notifier     Notifier
	auditor      Auditor
	metrics      *metrics.Metrics
	cfg          IssuerConfig

	newNumber func(year int) (string, error)
	newToken  func() (string, error)
	now       func() time.Time
}

// NewCertificationIssuer builds the issuer. badges may be nil, in which case
// certifications are issued without assets.
func NewCertificationIssuer(
	appRepo repository.ApplicationRepository,
	templateRepo repository.TemplateRepository,
	certRepo repository.CertificationRepository,
	documents DocumentChecker,
	payments PaymentChecker,
	badges BadgeGenerator,
	notifier Notifier,
	auditor Auditor,
	m *metrics.Metrics,
	cfg IssuerConfig,
) CertificationIssuer {
	return &certificationIssuer{
		appRepo:      appRepo,
		templateRepo: templateRepo,
		certRepo:     certRepo,
		documents:    documents,
		payments:     payments,
		badges:       badges,
		notifier:     notifier,
		auditor:      auditor,
		metrics:      m,
		cfg:          cfg,
		newNumber:    randomCertificateNumber,
		newToken:     func() (string, error) { return util.GenerateSecureToken(verificationTokenBytes) },
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// randomCertificateNumber returns CERT-<year>-<6 digits>.
func randomCertificateNumber(year int) (string, error) {
	n, err := util.GenerateRandomNumber(100000, 999999)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CERT-%d-%06d", year, n), nil
}

// GenerateCertification issues the certification of an approved application and binds
// it 1:1. Uniqueness of the number, the token and the binding is enforced by the
// storage layer; number collisions are retried up to MaxCertificateNumberAttempts.
func (s *certificationIssuer) GenerateCertification(applicationID, actorID uint) (*model.Certification, error) {
	logger.Info("Generating certification", map[string]interface{}{
		"application_id": applicationID,
		"actor_id":       actorID,
	})

	app, template, err := s.checkPreconditions(applicationID)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok {
			s.metrics.IncIssuanceFailure(appErr.Code)
		}
		return nil, err
	}

	issuedAt := s.now()
	cert := &model.Certification{
		ApplicationID: app.ID,
		TemplateID:    template.ID,
		HostID:        app.HostID,
		Status:        model.CertificationStatusActive,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt.AddDate(0, template.ValidityMonths, 0),
		IssuedBy:      actorID,
	}

	if err := s.insertWithRetry(cert, issuedAt.Year()); err != nil {
		if appErr, ok := apperrors.As(err); ok {
			s.metrics.IncIssuanceFailure(appErr.Code)
		} else {
			s.metrics.IncIssuanceFailure(apperrors.InternalDatabaseError)
		}
		return nil, err
	}

	s.metrics.IncIssued()
	logger.Info("Certification issued", map[string]interface{}{
		"certification_id":   cert.ID,
		"application_id":     app.ID,
		"certificate_number": cert.CertificateNumber,
		"expires_at":         cert.ExpiresAt,
	})

	s.attachAssets(cert, app)

	if s.auditor != nil {
		s.auditor.Record(AuditEntry{
			Action:     model.AuditActionCertificationIssued,
			EntityType: entityCertificate,
			EntityID:   cert.ID,
			ActorID:    uintPtr(actorID),
			NewValues: map[string]interface{}{
				"application_id":     app.ID,
				"certificate_number": cert.CertificateNumber,
				"status":             cert.Status,
				"expires_at":         cert.ExpiresAt.Format(time.RFC3339),
			},
		})
	}
	if s.notifier != nil {
		s.notifier.Notify(app.HostID, model.NotificationTypeCertificationIssued, NotificationPayload{
			Title:                  "Certification issued",
			Content:                fmt.Sprintf("Certificate %s for %s is valid until %s", cert.CertificateNumber, app.PropertyDetails.PropertyName, cert.ExpiresAt.Format("2006-01-02")),
			Link:                   cert.VerificationURL,
			RelatedApplicationID:   uintPtr(app.ID),
			RelatedCertificationID: uintPtr(cert.ID),
		})
	}
	return cert, nil
}

// checkPreconditions runs the issuance checks in order; each failure has its own code.
func (s *certificationIssuer) checkPreconditions(applicationID uint) (*model.Application, *model.CertificateTemplate, error) {
	app, err := s.appRepo.FindByID(applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrApplicationNotFound
		}
		return nil, nil, err
	}

	if app.Status != model.ApplicationStatusApproved {
		logger.Warn("Issuance rejected, application not approved", map[string]interface{}{
			"application_id": applicationID,
			"status":         app.Status,
		})
		return nil, nil, ErrCertificationNotApproved.WithDetails(string(app.Status))
	}

	templates, err := s.templateRepo.FindActiveByPropertyTypeID(app.PropertyDetails.PropertyTypeID)
	if err != nil {
		return nil, nil, err
	}
	switch len(templates) {
	case 0:
		logger.Warn("Issuance rejected, no active template", map[string]interface{}{
			"application_id":   applicationID,
			"property_type_id": app.PropertyDetails.PropertyTypeID,
		})
		return nil, nil, ErrNoActiveTemplate
	case 1:
	default:
		logger.Warn("Issuance rejected, multiple active templates", map[string]interface{}{
			"application_id":   applicationID,
			"property_type_id": app.PropertyDetails.PropertyTypeID,
			"count":            len(templates),
		})
		return nil, nil, ErrMultipleActiveTemplates
	}

	exists, err := s.certRepo.ExistsForApplication(app.ID)
	if err != nil {
		return nil, nil, err
	}
	if exists || app.CertificationID != nil {
		logger.Warn("Issuance rejected, certification already exists", map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, nil, ErrCertificationAlreadyExists
	}

	paid, err := s.payments.HasCompletedPayment(app.ID)
	if err != nil {
		return nil, nil, err
	}
	if !paid {
		logger.Warn("Issuance rejected, payment not completed", map[string]interface{}{
			"application_id": applicationID,
		})
		return nil, nil, ErrPaymentRequired
	}

	uploaded, err := s.documents.DocumentTypesUploaded(app.ID)
	if err != nil {
		return nil, nil, err
	}
	if missing := missingDocumentTypes(uploaded); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, t := range missing {
			names = append(names, string(t))
		}
		logger.Warn("Issuance rejected, required documents missing", map[string]interface{}{
			"application_id": applicationID,
			"missing":        names,
		})
		return nil, nil, ErrRequiredDocumentsMissing.WithDetails(names...)
	}

	return app, &templates[0], nil
}

func (s *certificationIssuer) insertWithRetry(cert *model.Certification, year int) error {
	for attempt := 1; attempt <= MaxCertificateNumberAttempts; attempt++ {
		number, err := s.newNumber(year)
		if err != nil {
			return apperrors.Internal(apperrors.InternalServerError, "failed to generate certificate number").Wrap(err)
		}
		token, err := s.newToken()
		if err != nil {
			return apperrors.Internal(apperrors.InternalServerError, "failed to generate verification token").Wrap(err)
		}

		cert.CertificateNumber = number
		cert.VerificationToken = token
		cert.VerificationURL = s.cfg.VerificationBaseURL + "/" + token

		err = s.certRepo.CreateAndBind(cert)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrApplicationAlreadyBound),
			apperrors.IsUniqueViolation(err, "application_id"):
			logger.Warn("Issuance lost race, application already certified", map[string]interface{}{
				"application_id": cert.ApplicationID,
			})
			return ErrCertificationAlreadyExists
		case apperrors.IsUniqueViolation(err, "certificate_number"):
			s.metrics.IncNumberCollision()
			logger.Warn("Certificate number collision, retrying", map[string]interface{}{
				"application_id":     cert.ApplicationID,
				"certificate_number": number,
				"attempt":            attempt,
			})
		case apperrors.IsUniqueViolation(err, "verification_token"):
			logger.Warn("Verification token collision, retrying", map[string]interface{}{
				"application_id": cert.ApplicationID,
				"attempt":        attempt,
			})
		default:
			return apperrors.Internal(apperrors.InternalDatabaseError, "failed to store certification").Wrap(err)
		}
	}

	logger.Error("Certificate number space exhausted", ErrCertificateNumberExhausted, map[string]interface{}{
		"application_id": cert.ApplicationID,
		"attempts":       MaxCertificateNumberAttempts,
	})
	return ErrCertificateNumberExhausted.WithDetails(fmt.Sprintf("%d attempts", MaxCertificateNumberAttempts))
}

// attachAssets renders and stores the badge and QR code. Failures leave the URLs empty.
func (s *certificationIssuer) attachAssets(cert *model.Certification, app *model.Application) {
	if s.badges == nil {
		return
	}

	assets, err := s.badges.Generate(badge.Details{
		CertificateNumber: cert.CertificateNumber,
		PropertyName:      app.PropertyDetails.PropertyName,
		Address:           app.PropertyDetails.Address,
		IssuedAt:          cert.IssuedAt,
		ExpiresAt:         cert.ExpiresAt,
		VerificationURL:   cert.VerificationURL,
	})
	if err != nil {
		logger.Error("Badge generation failed, certification kept without assets", err, map[string]interface{}{
			"certification_id": cert.ID,
		})
		return
	}

	if err := s.certRepo.UpdateAssets(cert.ID, assets.BadgeURL, assets.QRCodeURL); err != nil {
		logger.Error("Failed to store badge URLs", err, map[string]interface{}{
			"certification_id": cert.ID,
		})
		return
	}
	cert.BadgeURL = assets.BadgeURL
	cert.QRCodeURL = assets.QRCodeURL
}
