package service

import (
	"fmt"
	"strings"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/pkg/logger"
)

var ErrInvalidDocumentType = apperrors.Validation(apperrors.DocumentInvalidType, "unsupported document type")

// DocumentInput is one uploaded file reported by the client after a presigned upload.
type DocumentInput struct {
	DocumentType model.DocumentType `json:"document_type" binding:"required"`
	FileName     string             `json:"file_name"`
	FileURL      string             `json:"file_url" binding:"required"`
}

type DocumentService interface {
	DocumentChecker
	AddDocuments(applicationID uint, inputs []DocumentInput) ([]model.ApplicationDocument, error)
}

type documentService struct {
	repo repository.DocumentRepository
}

func NewDocumentService(repo repository.DocumentRepository) DocumentService {
	return &documentService{repo: repo}
}

func (s *documentService) DocumentTypesUploaded(applicationID uint) ([]model.DocumentType, error) {
	return s.repo.FindTypesByApplicationID(applicationID)
}

// ValidateDocumentStepCompletion is complete once every required document type is present.
func (s *documentService) ValidateDocumentStepCompletion(applicationID uint) (*DocumentStepResult, error) {
	uploaded, err := s.repo.FindTypesByApplicationID(applicationID)
	if err != nil {
		return nil, err
	}
	return documentStepResult(uploaded), nil
}

// AddDocuments appends document records; existing records are never replaced.
func (s *documentService) AddDocuments(applicationID uint, inputs []DocumentInput) ([]model.ApplicationDocument, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	documents, err := buildDocuments(applicationID, inputs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(documents); err != nil {
		return nil, err
	}

	logger.Info("Documents added to application", map[string]interface{}{
		"application_id": applicationID,
		"count":          len(documents),
	})
	return documents, nil
}

// buildDocuments checks inputs and maps them to rows without touching storage.
func buildDocuments(applicationID uint, inputs []DocumentInput) ([]model.ApplicationDocument, error) {
	documents := make([]model.ApplicationDocument, 0, len(inputs))
	for _, in := range inputs {
		if !in.DocumentType.Valid() {
			logger.Warn("Rejected document with unsupported type", map[string]interface{}{
				"application_id": applicationID,
				"document_type":  in.DocumentType,
			})
			return nil, ErrInvalidDocumentType.WithDetails(string(in.DocumentType))
		}
		if strings.TrimSpace(in.FileURL) == "" {
			return nil, apperrors.Validation(apperrors.ValidationRequired, "file_url is required").
				WithDetails(string(in.DocumentType))
		}
		documents = append(documents, model.ApplicationDocument{
			ApplicationID: applicationID,
			DocumentType:  in.DocumentType,
			FileName:      in.FileName,
			FileURL:       in.FileURL,
		})
	}
	return documents, nil
}

func documentStepResult(uploaded []model.DocumentType) *DocumentStepResult {
	missing := missingDocumentTypes(uploaded)
	if len(missing) == 0 {
		return &DocumentStepResult{IsComplete: true, Message: "all required documents uploaded"}
	}

	names := make([]string, 0, len(missing))
	for _, t := range missing {
		names = append(names, string(t))
	}
	return &DocumentStepResult{
		IsComplete: false,
		Message:    fmt.Sprintf("missing required documents: %s", strings.Join(names, ", ")),
		Missing:    missing,
	}
}

func missingDocumentTypes(uploaded []model.DocumentType) []model.DocumentType {
	present := make(map[model.DocumentType]bool, len(uploaded))
	for _, t := range uploaded {
		present[t] = true
	}
	var missing []model.DocumentType
	for _, required := range model.RequiredDocumentTypes {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	return missing
}
