package service

import (
	"errors"
	"strings"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAdminOnly            = apperrors.Forbidden(apperrors.AuthzForbidden, "admin role required")
	ErrTemplateNotFound     = apperrors.NotFound(apperrors.TemplateNotFound, "certificate template not found")
	ErrInvalidTemplateInput = apperrors.Validation(apperrors.ValidationInvalidInput, "invalid certificate template")
)

type CreateTemplateInput struct {
	PropertyTypeID uint   `json:"property_type_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	ValidityMonths int    `json:"validity_months" binding:"required"`
	Activate       bool   `json:"activate"`
}

type TemplateService interface {
	CreateTemplate(input CreateTemplateInput, actor model.Actor) (*model.CertificateTemplate, error)
	ActivateTemplate(id uint, actor model.Actor) (*model.CertificateTemplate, error)
	ListTemplates(propertyTypeID uint) ([]model.CertificateTemplate, error)
}

type templateService struct {
	repo             repository.TemplateRepository
	propertyTypeRepo repository.PropertyTypeRepository
	auditor          Auditor
}

func NewTemplateService(repo repository.TemplateRepository, propertyTypeRepo repository.PropertyTypeRepository, auditor Auditor) TemplateService {
	return &templateService{
		repo:             repo,
		propertyTypeRepo: propertyTypeRepo,
		auditor:          auditor,
	}
}

// CreateTemplate stores an inactive template, activating it when requested.
func (s *templateService) CreateTemplate(input CreateTemplateInput, actor model.Actor) (*model.CertificateTemplate, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrAdminOnly
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidTemplateInput.WithDetails("name")
	}
	if input.ValidityMonths < 1 {
		return nil, ErrInvalidTemplateInput.WithDetails("validity_months")
	}
	if _, err := s.propertyTypeRepo.FindByID(input.PropertyTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyTypeNotFound
		}
		return nil, err
	}

	template := &model.CertificateTemplate{
		PropertyTypeID: input.PropertyTypeID,
		Name:           name,
		Description:    input.Description,
		ValidityMonths: input.ValidityMonths,
	}
	if err := s.repo.Create(template); err != nil {
		return nil, err
	}

	s.audit(model.AuditActionTemplateCreated, template, actor)
	logger.Info("Certificate template created", map[string]interface{}{
		"template_id":      template.ID,
		"property_type_id": template.PropertyTypeID,
	})

	if input.Activate {
		return s.ActivateTemplate(template.ID, actor)
	}
	return template, nil
}

// ActivateTemplate makes id the only active template of its property type in one transaction.
func (s *templateService) ActivateTemplate(id uint, actor model.Actor) (*model.CertificateTemplate, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrAdminOnly
	}

	template, err := s.repo.Activate(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	s.audit(model.AuditActionTemplateActivated, template, actor)
	logger.Info("Certificate template activated", map[string]interface{}{
		"template_id":      template.ID,
		"property_type_id": template.PropertyTypeID,
	})
	return template, nil
}

func (s *templateService) ListTemplates(propertyTypeID uint) ([]model.CertificateTemplate, error) {
	return s.repo.FindByPropertyTypeID(propertyTypeID)
}

func (s *templateService) audit(action model.AuditAction, template *model.CertificateTemplate, actor model.Actor) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(AuditEntry{
		Action:     action,
		EntityType: entityTemplate,
		EntityID:   template.ID,
		ActorID:    uintPtr(actor.UserID),
		NewValues: map[string]interface{}{
			"property_type_id": template.PropertyTypeID,
			"validity_months":  template.ValidityMonths,
			"is_active":        template.IsActive,
		},
	})
}
