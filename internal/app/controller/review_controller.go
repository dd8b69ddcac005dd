package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/internal/app/workflow"
	"github.com/ikkim/staycert-backend/internal/middleware"
)

type ReviewController struct {
	reviewService service.ReviewService
	issuer        service.CertificationIssuer
}

func NewReviewController(reviewService service.ReviewService, issuer service.CertificationIssuer) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
		issuer:        issuer,
	}
}

type AssignReviewerRequest struct {
	ReviewerID uint `json:"reviewer_id"` // 0 assigns the caller
}

type ReviewDecisionRequest struct {
	Decision workflow.Decision `json:"decision" binding:"required"`
	Notes    string            `json:"notes"`
}

// ListQueue
// GET /api/v1/reviews/queue?status=
func (ctrl *ReviewController) ListQueue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	status := model.ApplicationStatus(c.Query("status"))

	apps, err := ctrl.reviewService.ListReviewQueue(status, actor)
	if err != nil {
		respondError(c, "Failed to list review queue", err, map[string]interface{}{
			"status": status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"count":        len(apps),
	})
}

// AssignReviewer
// POST /api/v1/reviews/:id/assign
func (ctrl *ReviewController) AssignReviewer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AssignReviewerRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	app, err := ctrl.reviewService.AssignReviewer(id, req.ReviewerID, actor)
	if err != nil {
		respondError(c, "Failed to assign reviewer", err, map[string]interface{}{
			"application_id": id,
			"reviewer_id":    req.ReviewerID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// SubmitDecision records approve / reject / request_more_info.
// An approval whose issuance failed still answers 200 with partial_failure set.
// POST /api/v1/reviews/:id/decision
func (ctrl *ReviewController) SubmitDecision(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ReviewDecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := ctrl.reviewService.SubmitReviewDecision(id, req.Decision, req.Notes, actor)
	if err != nil {
		respondError(c, "Failed to submit review decision", err, map[string]interface{}{
			"application_id": id,
			"decision":       req.Decision,
		})
		return
	}

	if outcome.PartialFailure {
		middleware.GetLoggerFromContext(c).Warn("Approval recorded but certification issuance failed", map[string]interface{}{
			"application_id": id,
			"error_code":     outcome.IssuanceErrorCode,
		})
	}

	c.JSON(http.StatusOK, outcome)
}

// AssessRisk
// GET /api/v1/reviews/:id/risk
func (ctrl *ReviewController) AssessRisk(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	risk, err := ctrl.reviewService.AssessRisk(id, actor)
	if err != nil {
		respondError(c, "Failed to assess risk", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, risk)
}

// IssueCertification retries issuance for an approved application
// POST /api/v1/applications/:id/certification
func (ctrl *ReviewController) IssueCertification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	cert, err := ctrl.issuer.GenerateCertification(id, actor.UserID)
	if err != nil {
		respondError(c, "Failed to issue certification", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"certification": cert,
	})
}
