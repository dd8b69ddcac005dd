package service

import (
	"errors"
	"fmt"
	"strings"
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
	ErrReviewerOnly      = apperrors.Forbidden(apperrors.AuthzReviewerOnly, "reviewer role required")
	ErrNotUnderReview    = apperrors.Conflict(apperrors.ReviewNotUnderReview, "application is not under review")
	ErrInvalidDecision   = apperrors.Validation(apperrors.ReviewInvalidDecision, "decision must be approve, reject or request_more_info")
	ErrInvalidTransition = apperrors.Conflict(apperrors.ReviewInvalidTransition, "transition not allowed from current status")
	ErrReviewerNotFound  = apperrors.NotFound(apperrors.ResourceNotFound, "reviewer not found")
	ErrAssigneeNotStaff  = apperrors.Validation(apperrors.ValidationInvalidInput, "assignee must hold a reviewer role")
)

// reviewQueueStatuses are the statuses awaiting reviewer action.
var reviewQueueStatuses = []model.ApplicationStatus{
	model.ApplicationStatusSubmitted,
	model.ApplicationStatusUnderReview,
	model.ApplicationStatusMoreInfoRequested,
}

// CertificationIssuer issues the certification of an approved application.
type CertificationIssuer interface {
	GenerateCertification(applicationID, actorID uint) (*model.Certification, error)
}

// ReviewOutcome is the result of a decision. PartialFailure is set when the
// application was approved but issuance failed; the approval stands.
type ReviewOutcome struct {
	Application       *model.Application   `json:"application"`
	Certification     *model.Certification `json:"certification,omitempty"`
	PartialFailure    bool                 `json:"partial_failure"`
	IssuanceError     string               `json:"issuance_error,omitempty"`
	IssuanceErrorCode string               `json:"issuance_error_code,omitempty"`
}

type ReviewService interface {
	ListReviewQueue(status model.ApplicationStatus, actor model.Actor) ([]model.Application, error)
	AssignReviewer(applicationID, reviewerID uint, actor model.Actor) (*model.Application, error)
	SubmitReviewDecision(applicationID uint, decision workflow.Decision, notes string, actor model.Actor) (*ReviewOutcome, error)
	AssessRisk(applicationID uint, actor model.Actor) (*workflow.RiskAssessment, error)
}

type reviewService struct {
	appRepo   repository.ApplicationRepository
	userRepo  repository.UserRepository
	documents DocumentChecker
	issuer    CertificationIssuer
	notifier  Notifier
	auditor   Auditor
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewReviewService(
	appRepo repository.ApplicationRepository,
	userRepo repository.UserRepository,
	documents DocumentChecker,
	issuer CertificationIssuer,
	notifier Notifier,
	auditor Auditor,
	m *metrics.Metrics,
) ReviewService {
	return &reviewService{
		appRepo:   appRepo,
		userRepo:  userRepo,
		documents: documents,
		issuer:    issuer,
		notifier:  notifier,
		auditor:   auditor,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListReviewQueue lists applications in status, or every status awaiting review when status is empty.
func (s *reviewService) ListReviewQueue(status model.ApplicationStatus, actor model.Actor) ([]model.Application, error) {
	if !actor.IsReviewer() {
		return nil, ErrReviewerOnly
	}
	statuses := reviewQueueStatuses
	if status != "" {
		statuses = []model.ApplicationStatus{status}
	}
	return s.appRepo.FindByStatuses(statuses)
}

// AssignReviewer puts the application under review by reviewerID. A zero reviewerID assigns the actor.
func (s *reviewService) AssignReviewer(applicationID, reviewerID uint, actor model.Actor) (*model.Application, error) {
	logger.Info("Assigning reviewer", map[string]interface{}{
		"application_id": applicationID,
		"reviewer_id":    reviewerID,
		"actor_id":       actor.UserID,
	})

	if !actor.IsReviewer() {
		logger.Warn("Reviewer assignment rejected, actor lacks reviewer role", map[string]interface{}{
			"actor_id": actor.UserID,
			"role":     actor.Role,
		})
		return nil, ErrReviewerOnly
	}
	if reviewerID == 0 {
		reviewerID = actor.UserID
	}
	if reviewerID != actor.UserID {
		if err := s.ensureReviewer(reviewerID); err != nil {
			return nil, err
		}
	}

	app, err := s.load(applicationID)
	if err != nil {
		return nil, err
	}

	next, ok := workflow.NextStatus(app.Status, workflow.EventAssign)
	if !ok {
		logger.Warn("Reviewer assignment rejected by status", map[string]interface{}{
			"application_id": applicationID,
			"status":         app.Status,
		})
		return nil, ErrInvalidTransition.WithDetails(fmt.Sprintf("%s -> %s", app.Status, workflow.EventAssign))
	}

	before := map[string]interface{}{"status": app.Status, "reviewer_id": derefUint(app.ReviewerID)}
	app.Status = next
	app.ReviewerID = uintPtr(reviewerID)
	if err := s.appRepo.Update(app); err != nil {
		return nil, err
	}

	s.audit(model.AuditActionReviewerAssigned, app.ID, actor.UserID, before, map[string]interface{}{
		"status":      app.Status,
		"reviewer_id": reviewerID,
	})
	if reviewerID != actor.UserID && s.notifier != nil {
		s.notifier.Notify(reviewerID, model.NotificationTypeReviewerAssigned, NotificationPayload{
			Title:                "Application assigned to you",
			Content:              fmt.Sprintf("%s is waiting for your review", app.PropertyDetails.PropertyName),
			Link:                 fmt.Sprintf("/reviews/%d", app.ID),
			RelatedApplicationID: uintPtr(app.ID),
		})
	}

	logger.Info("Reviewer assigned", map[string]interface{}{
		"application_id": app.ID,
		"reviewer_id":    reviewerID,
		"status":         app.Status,
	})
	return app, nil
}

// SubmitReviewDecision applies decision to an application under review. On approval the
// certification is issued afterwards; an issuance failure leaves the application APPROVED
// and is reported through ReviewOutcome.PartialFailure.
func (s *reviewService) SubmitReviewDecision(applicationID uint, decision workflow.Decision, notes string, actor model.Actor) (*ReviewOutcome, error) {
	logger.Info("Submitting review decision", map[string]interface{}{
		"application_id": applicationID,
		"decision":       decision,
		"actor_id":       actor.UserID,
	})

	if !actor.IsReviewer() {
		logger.Warn("Review decision rejected, actor lacks reviewer role", map[string]interface{}{
			"actor_id": actor.UserID,
			"role":     actor.Role,
		})
		return nil, ErrReviewerOnly
	}
	event, ok := decision.Event()
	if !ok {
		return nil, ErrInvalidDecision.WithDetails(string(decision))
	}

	app, err := s.load(applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationStatusUnderReview {
		logger.Warn("Review decision rejected, application not under review", map[string]interface{}{
			"application_id": applicationID,
			"status":         app.Status,
		})
		return nil, ErrNotUnderReview.WithDetails(string(app.Status))
	}

	next, ok := workflow.NextStatus(app.Status, event)
	if !ok {
		return nil, ErrInvalidTransition.WithDetails(fmt.Sprintf("%s -> %s", app.Status, event))
	}

	before := map[string]interface{}{"status": app.Status, "review_notes": app.ReviewNotes}
	app.Status = next
	app.ReviewNotes = strings.TrimSpace(notes)
	if app.ReviewerID == nil {
		app.ReviewerID = uintPtr(actor.UserID)
	}
	if decision != workflow.DecisionRequestMoreInfo {
		now := s.now()
		app.ReviewedAt = &now
	}
	if err := s.appRepo.Update(app); err != nil {
		return nil, err
	}

	s.metrics.IncDecision(string(decision))
	s.audit(model.AuditActionReviewDecision, app.ID, actor.UserID, before, map[string]interface{}{
		"status":       app.Status,
		"review_notes": app.ReviewNotes,
		"decision":     decision,
	})
	s.notifyHost(app, decision)

	logger.Info("Review decision applied", map[string]interface{}{
		"application_id": app.ID,
		"decision":       decision,
		"status":         app.Status,
	})

	outcome := &ReviewOutcome{Application: app}
	if decision != workflow.DecisionApprove {
		return outcome, nil
	}

	cert, err := s.issuer.GenerateCertification(app.ID, actor.UserID)
	if err != nil {
		logger.Error("Certification issuance failed after approval", err, map[string]interface{}{
			"application_id": app.ID,
		})
		outcome.PartialFailure = true
		outcome.IssuanceError = err.Error()
		if appErr, ok := apperrors.As(err); ok {
			outcome.IssuanceErrorCode = appErr.Code
		}
		return outcome, nil
	}

	outcome.Certification = cert
	app.CertificationID = uintPtr(cert.ID)
	return outcome, nil
}

// AssessRisk scores the application for reviewers. It never blocks a transition.
func (s *reviewService) AssessRisk(applicationID uint, actor model.Actor) (*workflow.RiskAssessment, error) {
	if !actor.IsReviewer() {
		return nil, ErrReviewerOnly
	}
	app, err := s.load(applicationID)
	if err != nil {
		return nil, err
	}
	uploaded, err := s.documents.DocumentTypesUploaded(app.ID)
	if err != nil {
		return nil, err
	}

	assessment := workflow.AssessRisk(workflow.RiskInput{
		Details:       app.PropertyDetails,
		UploadedTypes: uploaded,
		CreatedAt:     app.CreatedAt,
		Now:           s.now(),
	})
	return &assessment, nil
}

func (s *reviewService) load(id uint) (*model.Application, error) {
	app, err := s.appRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *reviewService) ensureReviewer(userID uint) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewerNotFound
		}
		return err
	}
	if !user.Role.IsReviewer() {
		return ErrAssigneeNotStaff.WithDetails(string(user.Role))
	}
	return nil
}

func (s *reviewService) notifyHost(app *model.Application, decision workflow.Decision) {
	if s.notifier == nil {
		return
	}

	payload := NotificationPayload{
		Link:                 fmt.Sprintf("/applications/%d", app.ID),
		RelatedApplicationID: uintPtr(app.ID),
	}
	var event model.NotificationType
	switch decision {
	case workflow.DecisionApprove:
		event = model.NotificationTypeApplicationApproved
		payload.Title = "Application approved"
		payload.Content = fmt.Sprintf("%s has been approved", app.PropertyDetails.PropertyName)
	case workflow.DecisionReject:
		event = model.NotificationTypeApplicationRejected
		payload.Title = "Application rejected"
		payload.Content = app.ReviewNotes
	case workflow.DecisionRequestMoreInfo:
		event = model.NotificationTypeMoreInfoRequested
		payload.Title = "More information requested"
		payload.Content = app.ReviewNotes
	}
	s.notifier.Notify(app.HostID, event, payload)
}

func (s *reviewService) audit(action model.AuditAction, applicationID, actorID uint, oldValues, newValues map[string]interface{}) {
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

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}
