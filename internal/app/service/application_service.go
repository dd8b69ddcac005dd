package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/internal/app/workflow"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/internal/metrics"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrApplicationNotFound    = apperrors.NotFound(apperrors.ApplicationNotFound, "application not found")
	ErrApplicationForbidden   = apperrors.Forbidden(apperrors.AuthzOwnerOnly, "application belongs to another host")
	ErrApplicationNotEditable = apperrors.Validation(apperrors.ApplicationNotEditable, "application can only be changed while in draft")
	ErrPropertyTypeNotFound   = apperrors.Validation(apperrors.PropertyTypeNotFound, "property type does not exist")
	ErrDocumentsIncomplete    = apperrors.Validation(apperrors.DocumentsIncomplete, "required documents are missing")
)

// StepData carries the writes that accompany a step change. Every field is optional.
type StepData struct {
	PropertyDetails *model.PropertyDetails        `json:"property_details"`
	Checklist       *workflow.ChecklistSubmission `json:"checklist"`
	Documents       []DocumentInput               `json:"documents"`
}

// StepValidation is the completion state of one step.
type StepValidation struct {
	Step       model.ApplicationStep `json:"step"`
	IsComplete bool                  `json:"is_complete"`
	Missing    []string              `json:"missing"`
	Message    string                `json:"message"`

	failure *apperrors.AppError
}

// Err returns the validation error of an incomplete step, or nil.
func (v *StepValidation) Err() error {
	if v == nil || v.failure == nil {
		return nil
	}
	return v.failure
}

type ApplicationService interface {
	Create(details model.PropertyDetails, hostID uint) (*model.Application, error)
	Get(id uint, actor model.Actor) (*model.Application, error)
	ListForHost(hostID uint) ([]model.Application, error)
	UpdateStep(id uint, step model.ApplicationStep, data StepData, actor model.Actor) (*model.Application, error)
	ValidateStep(id uint, step model.ApplicationStep, actor model.Actor) (*StepValidation, error)
	Submit(id uint, actor model.Actor) (*model.Application, error)
	Delete(id uint, actor model.Actor) error
}

type applicationService struct {
	appRepo          repository.ApplicationRepository
	propertyTypeRepo repository.PropertyTypeRepository
	checklistRepo    repository.ChecklistRepository
	userRepo         repository.UserRepository
	documents        DocumentService
	notifier         Notifier
	auditor          Auditor
	metrics          *metrics.Metrics
	now              func() time.Time
}

func NewApplicationService(
	appRepo repository.ApplicationRepository,
	propertyTypeRepo repository.PropertyTypeRepository,
	checklistRepo repository.ChecklistRepository,
	userRepo repository.UserRepository,
	documents DocumentService,
	notifier Notifier,
	auditor Auditor,
	m *metrics.Metrics,
) ApplicationService {
	return &applicationService{
		appRepo:          appRepo,
		propertyTypeRepo: propertyTypeRepo,
		checklistRepo:    checklistRepo,
		userRepo:         userRepo,
		documents:        documents,
		notifier:         notifier,
		auditor:          auditor,
		metrics:          m,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a draft. Details may be incomplete; only the property type must exist.
func (s *applicationService) Create(details model.PropertyDetails, hostID uint) (*model.Application, error) {
	logger.Info("Creating application", map[string]interface{}{
		"host_id":          hostID,
		"property_type_id": details.PropertyTypeID,
	})

	if err := s.ensurePropertyType(details.PropertyTypeID); err != nil {
		return nil, err
	}

	app := &model.Application{
		HostID:          hostID,
		Status:          model.ApplicationStatusDraft,
		CurrentStep:     model.StepPropertyDetails,
		PropertyDetails: details,
	}
	if err := s.appRepo.Create(app); err != nil {
		return nil, err
	}

	s.audit(model.AuditActionApplicationCreated, app.ID, hostID, nil, applicationSnapshot(app))

	logger.Info("Application created", map[string]interface{}{
		"application_id": app.ID,
		"host_id":        hostID,
	})
	return app, nil
}

func (s *applicationService) Get(id uint, actor model.Actor) (*model.Application, error) {
	return s.loadForActor(id, actor)
}

func (s *applicationService) ListForHost(hostID uint) ([]model.Application, error) {
	return s.appRepo.FindByHostID(hostID)
}

// UpdateStep moves the application to step and applies data. Forward moves require
// the step being left to be complete; moving to SUBMISSION re-validates every prior
// step and submits the application. Nothing is written when a check fails, and a
// checklist replaces the stored records only when it satisfies every item.
func (s *applicationService) UpdateStep(id uint, step model.ApplicationStep, data StepData, actor model.Actor) (*model.Application, error) {
	logger.Info("Updating application step", map[string]interface{}{
		"application_id": id,
		"step":           step,
		"actor_id":       actor.UserID,
	})

	app, err := s.loadForActor(id, actor)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationStatusDraft {
		logger.Warn("Step change rejected, application not in draft", map[string]interface{}{
			"application_id": id,
			"status":         app.Status,
		})
		return nil, ErrApplicationNotEditable
	}

	fromStep := app.CurrentStep
	if err := workflow.ValidateStepTransition(fromStep, step); err != nil {
		logger.Warn("Invalid step transition", map[string]interface{}{
			"application_id": id,
			"from":           fromStep,
			"to":             step,
		})
		return nil, err
	}

	before := applicationSnapshot(app)

	if data.PropertyDetails != nil {
		if data.PropertyDetails.PropertyTypeID != app.PropertyDetails.PropertyTypeID {
			if err := s.ensurePropertyType(data.PropertyDetails.PropertyTypeID); err != nil {
				return nil, err
			}
		}
		app.PropertyDetails = *data.PropertyDetails
	}

	pending := pendingWrites{checklist: data.Checklist}
	if len(data.Documents) > 0 {
		documents, err := buildDocuments(app.ID, data.Documents)
		if err != nil {
			return nil, err
		}
		for _, d := range documents {
			pending.documentTypes = append(pending.documentTypes, d.DocumentType)
		}
	}

	var checklistItems []model.ChecklistItem
	if data.Checklist != nil {
		checklistItems, err = s.propertyTypeRepo.FindChecklistItems(app.PropertyDetails.PropertyTypeID)
		if err != nil {
			return nil, err
		}
	}

	var toValidate []model.ApplicationStep
	switch {
	case step == model.StepSubmission:
		toValidate = workflow.StepsBefore(model.StepSubmission)
	case workflow.IsForward(fromStep, step):
		toValidate = []model.ApplicationStep{fromStep}
	}
	for _, st := range toValidate {
		v, err := s.evaluateStep(app, st, pending)
		if err != nil {
			return nil, err
		}
		if !v.IsComplete {
			logger.Warn("Step incomplete, cannot advance", map[string]interface{}{
				"application_id": id,
				"step":           st,
				"missing":        v.Missing,
			})
			return nil, v.Err()
		}
	}

	if len(data.Documents) > 0 {
		added, err := s.documents.AddDocuments(app.ID, data.Documents)
		if err != nil {
			return nil, err
		}
		app.Documents = append(app.Documents, added...)
	}

	if data.Checklist != nil {
		result := workflow.NormalizeChecklist(checklistItems, *data.Checklist)
		if result.Complete() {
			records := s.checklistRecords(app.ID, checklistItems, result)
			if err := s.checklistRepo.Replace(app.ID, records); err != nil {
				return nil, err
			}
			app.ChecklistRecords = records
		} else {
			logger.Debug("Incomplete checklist not persisted", map[string]interface{}{
				"application_id": app.ID,
				"missing":        result.Missing,
			})
		}
	}

	app.CurrentStep = step
	submitted := false
	if step == model.StepSubmission {
		if err := s.markSubmitted(app); err != nil {
			return nil, err
		}
		submitted = true
	}

	if err := s.appRepo.Update(app); err != nil {
		return nil, err
	}

	s.audit(model.AuditActionApplicationUpdated, app.ID, actor.UserID, before, applicationSnapshot(app))
	if submitted {
		s.afterSubmit(app, actor)
	}

	logger.Info("Application step updated", map[string]interface{}{
		"application_id": app.ID,
		"from":           fromStep,
		"to":             app.CurrentStep,
		"status":         app.Status,
	})
	return app, nil
}

func (s *applicationService) ValidateStep(id uint, step model.ApplicationStep, actor model.Actor) (*StepValidation, error) {
	if !workflow.IsValidStep(step) {
		return nil, workflow.ErrInvalidStep.WithDetails(string(step))
	}
	app, err := s.loadForActor(id, actor)
	if err != nil {
		return nil, err
	}
	return s.evaluateStep(app, step, pendingWrites{})
}

// Submit is the direct route to SUBMITTED. Only the owning host may submit.
func (s *applicationService) Submit(id uint, actor model.Actor) (*model.Application, error) {
	logger.Info("Submitting application", map[string]interface{}{
		"application_id": id,
		"actor_id":       actor.UserID,
	})

	app, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if app.HostID != actor.UserID {
		logger.Warn("Submit rejected, actor does not own application", map[string]interface{}{
			"application_id": id,
			"actor_id":       actor.UserID,
		})
		return nil, ErrApplicationForbidden
	}
	if app.Status != model.ApplicationStatusDraft {
		return nil, ErrApplicationNotEditable
	}

	v, err := s.evaluateStep(app, model.StepSubmission, pendingWrites{})
	if err != nil {
		return nil, err
	}
	if !v.IsComplete {
		logger.Warn("Submit rejected, application incomplete", map[string]interface{}{
			"application_id": id,
			"missing":        v.Missing,
		})
		return nil, v.Err()
	}

	before := applicationSnapshot(app)
	if err := s.markSubmitted(app); err != nil {
		return nil, err
	}
	if err := s.appRepo.Update(app); err != nil {
		return nil, err
	}

	s.audit(model.AuditActionApplicationUpdated, app.ID, actor.UserID, before, applicationSnapshot(app))
	s.afterSubmit(app, actor)
	return app, nil
}

// Delete soft-deletes. Hosts may delete only their own drafts; reviewers may delete any application.
func (s *applicationService) Delete(id uint, actor model.Actor) error {
	app, err := s.loadForActor(id, actor)
	if err != nil {
		return err
	}
	if !actor.IsReviewer() && app.Status != model.ApplicationStatusDraft {
		logger.Warn("Delete rejected, application not in draft", map[string]interface{}{
			"application_id": id,
			"status":         app.Status,
		})
		return ErrApplicationNotEditable
	}

	if err := s.appRepo.Delete(app.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}

	s.audit(model.AuditActionApplicationDeleted, app.ID, actor.UserID, applicationSnapshot(app), nil)
	logger.Info("Application deleted", map[string]interface{}{
		"application_id": id,
		"actor_id":       actor.UserID,
	})
	return nil
}

func (s *applicationService) load(id uint) (*model.Application, error) {
	app, err := s.appRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *applicationService) loadForActor(id uint, actor model.Actor) (*model.Application, error) {
	app, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsReviewer() && app.HostID != actor.UserID {
		logger.Warn("Access to foreign application rejected", map[string]interface{}{
			"application_id": id,
			"actor_id":       actor.UserID,
		})
		return nil, ErrApplicationForbidden
	}
	return app, nil
}

func (s *applicationService) ensurePropertyType(id uint) error {
	if id == 0 {
		return ErrPropertyTypeNotFound.WithDetails("property_type_id")
	}
	if _, err := s.propertyTypeRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPropertyTypeNotFound.WithDetails(strconv.FormatUint(uint64(id), 10))
		}
		return err
	}
	return nil
}

// pendingWrites are the step writes of an UpdateStep call, checked before they are persisted.
type pendingWrites struct {
	checklist     *workflow.ChecklistSubmission
	documentTypes []model.DocumentType
}

// evaluateStep reports the completion state of step. A pending checklist replaces the
// persisted records; pending document types count alongside the uploaded ones.
func (s *applicationService) evaluateStep(app *model.Application, step model.ApplicationStep, pending pendingWrites) (*StepValidation, error) {
	v := &StepValidation{Step: step, Missing: []string{}}

	switch step {
	case model.StepPropertyDetails:
		if missing := workflow.MissingPropertyDetails(app.PropertyDetails); len(missing) > 0 {
			v.fail(workflow.ErrPropertyDetailsIncomplete, missing)
		}

	case model.StepComplianceChecklist:
		items, err := s.propertyTypeRepo.FindChecklistItems(app.PropertyDetails.PropertyTypeID)
		if err != nil {
			return nil, err
		}
		submission := checklistFromRecords(app.ChecklistRecords)
		if pending.checklist != nil {
			submission = *pending.checklist
		}
		if result := workflow.NormalizeChecklist(items, submission); !result.Complete() {
			v.fail(workflow.ErrChecklistIncomplete, result.Missing)
		}

	case model.StepDocumentUpload:
		res, err := s.documentStep(app.ID, pending.documentTypes)
		if err != nil {
			return nil, err
		}
		if !res.IsComplete {
			missing := make([]string, 0, len(res.Missing))
			for _, t := range res.Missing {
				missing = append(missing, string(t))
			}
			v.fail(ErrDocumentsIncomplete, missing)
			v.Message = res.Message
		}

	case model.StepPayment:
		// no payment gating at step level; issuance checks the payment record

	case model.StepSubmission:
		for _, prior := range workflow.StepsBefore(model.StepSubmission) {
			pv, err := s.evaluateStep(app, prior, pending)
			if err != nil {
				return nil, err
			}
			if pv.IsComplete {
				continue
			}
			v.Missing = append(v.Missing, pv.Missing...)
			if v.failure == nil {
				v.failure = pv.failure
				v.Message = fmt.Sprintf("%s: %s", prior, pv.Message)
			}
		}

	default:
		return nil, workflow.ErrInvalidStep.WithDetails(string(step))
	}

	v.IsComplete = v.failure == nil
	if v.IsComplete {
		v.Message = "step complete"
	}
	return v, nil
}

func (v *StepValidation) fail(sentinel *apperrors.AppError, missing []string) {
	v.Missing = append(v.Missing, missing...)
	v.failure = sentinel.WithDetails(missing...)
	v.Message = sentinel.Message
}

func (s *applicationService) documentStep(applicationID uint, pendingTypes []model.DocumentType) (*DocumentStepResult, error) {
	if len(pendingTypes) == 0 {
		return s.documents.ValidateDocumentStepCompletion(applicationID)
	}
	uploaded, err := s.documents.DocumentTypesUploaded(applicationID)
	if err != nil {
		return nil, err
	}
	return documentStepResult(append(uploaded, pendingTypes...)), nil
}

func checklistFromRecords(records []model.ComplianceChecklistRecord) workflow.ChecklistSubmission {
	sub := workflow.ChecklistSubmission{Shape: workflow.ChecklistShapeList}
	for _, r := range records {
		sub.Entries = append(sub.Entries, workflow.ChecklistEntry{
			ID:      strconv.FormatUint(uint64(r.ChecklistItemID), 10),
			Checked: r.Checked,
		})
	}
	return sub
}

func (s *applicationService) checklistRecords(applicationID uint, items []model.ChecklistItem, result workflow.ChecklistResult) []model.ComplianceChecklistRecord {
	now := s.now()
	records := make([]model.ComplianceChecklistRecord, 0, len(items))
	for _, item := range items {
		records = append(records, model.ComplianceChecklistRecord{
			ApplicationID:   applicationID,
			ChecklistItemID: item.ID,
			Checked:         result.Satisfied[item.ID],
			CheckedAt:       now,
		})
	}
	return records
}

func (s *applicationService) markSubmitted(app *model.Application) error {
	next, ok := workflow.NextStatus(app.Status, workflow.EventSubmit)
	if !ok {
		return ErrApplicationNotEditable
	}
	now := s.now()
	app.Status = next
	app.CurrentStep = model.StepSubmission
	app.SubmittedAt = &now
	return nil
}

func (s *applicationService) afterSubmit(app *model.Application, actor model.Actor) {
	s.metrics.IncSubmitted()
	s.audit(model.AuditActionApplicationSubmitted, app.ID, actor.UserID, nil, map[string]interface{}{
		"status":       app.Status,
		"submitted_at": app.SubmittedAt.Format(time.RFC3339),
	})

	reviewers, err := s.userRepo.FindIDsByRoles(model.RoleReviewer, model.RoleAdmin)
	if err != nil {
		logger.Error("Failed to look up reviewers for submission notice", err, map[string]interface{}{
			"application_id": app.ID,
		})
		return
	}
	notifyAll(s.notifier, reviewers, model.NotificationTypeApplicationSubmitted, NotificationPayload{
		Title:                "New application submitted",
		Content:              fmt.Sprintf("%s is ready for review", app.PropertyDetails.PropertyName),
		Link:                 fmt.Sprintf("/reviews/%d", app.ID),
		RelatedApplicationID: uintPtr(app.ID),
	})

	logger.Info("Application submitted", map[string]interface{}{
		"application_id": app.ID,
		"host_id":        app.HostID,
		"reviewers":      len(reviewers),
	})
}

func (s *applicationService) audit(action model.AuditAction, applicationID, actorID uint, oldValues, newValues map[string]interface{}) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(AuditEntry{
		Action:     action,
		EntityType: entityApplication,
		EntityID:   applicationID,
		ActorID:    uintPtr(actorID),
		OldValues:  oldValues,
		NewValues:  newValues,
	})
}

func applicationSnapshot(app *model.Application) map[string]interface{} {
	return map[string]interface{}{
		"status":           app.Status,
		"current_step":     app.CurrentStep,
		"property_name":    app.PropertyDetails.PropertyName,
		"property_type_id": app.PropertyDetails.PropertyTypeID,
		"address":          app.PropertyDetails.Address,
		"bedrooms":         app.PropertyDetails.Bedrooms,
		"bathrooms":        app.PropertyDetails.Bathrooms,
		"max_guests":       app.PropertyDetails.MaxGuests,
	}
}
