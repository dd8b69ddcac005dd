package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/internal/middleware"
)

type ApplicationController struct {
	applicationService service.ApplicationService
	paymentService     service.PaymentService
}

func NewApplicationController(applicationService service.ApplicationService, paymentService service.PaymentService) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
		paymentService:     paymentService,
	}
}

type UpdateStepRequest struct {
	Step model.ApplicationStep `json:"step" binding:"required"`
	service.StepData
}

// CreateApplication starts a draft for the calling host
// POST /api/v1/applications
func (ctrl *ApplicationController) CreateApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var details model.PropertyDetails
	if !bindJSON(c, &details) {
		return
	}

	app, err := ctrl.applicationService.Create(details, actor.UserID)
	if err != nil {
		respondError(c, "Failed to create application", err, map[string]interface{}{
			"user_id": actor.UserID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"application": app,
	})
}

// ListApplications returns the caller's own applications
// GET /api/v1/applications
func (ctrl *ApplicationController) ListApplications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	apps, err := ctrl.applicationService.ListForHost(actor.UserID)
	if err != nil {
		respondError(c, "Failed to list applications", err, map[string]interface{}{
			"user_id": actor.UserID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": apps,
		"count":        len(apps),
	})
}

// GetApplication
// GET /api/v1/applications/:id
func (ctrl *ApplicationController) GetApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	app, err := ctrl.applicationService.Get(id, actor)
	if err != nil {
		respondError(c, "Failed to fetch application", err, map[string]interface{}{
			"application_id": id,
			"user_id":        actor.UserID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// UpdateStep saves step data and moves the application to the requested step
// PUT /api/v1/applications/:id/step
func (ctrl *ApplicationController) UpdateStep(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStepRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := ctrl.applicationService.UpdateStep(id, req.Step, req.StepData, actor)
	if err != nil {
		respondError(c, "Failed to update application step", err, map[string]interface{}{
			"application_id": id,
			"step":           req.Step,
		})
		return
	}

	middleware.GetLoggerFromContext(c).Info("Application step updated", map[string]interface{}{
		"application_id": app.ID,
		"step":           app.CurrentStep,
		"status":         app.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// ValidateStep reports step completion without changing anything
// GET /api/v1/applications/:id/steps/:step/validation
func (ctrl *ApplicationController) ValidateStep(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	step := model.ApplicationStep(c.Param("step"))

	result, err := ctrl.applicationService.ValidateStep(id, step, actor)
	if err != nil {
		respondError(c, "Failed to validate application step", err, map[string]interface{}{
			"application_id": id,
			"step":           step,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitApplication
// POST /api/v1/applications/:id/submit
func (ctrl *ApplicationController) SubmitApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	app, err := ctrl.applicationService.Submit(id, actor)
	if err != nil {
		respondError(c, "Failed to submit application", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// DeleteApplication
// DELETE /api/v1/applications/:id
func (ctrl *ApplicationController) DeleteApplication(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.applicationService.Delete(id, actor); err != nil {
		respondError(c, "Failed to delete application", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// RecordPayment stores a payment reported by the payment provider
// POST /api/v1/applications/:id/payments
func (ctrl *ApplicationController) RecordPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req service.RecordPaymentInput
	if !bindJSON(c, &req) {
		return
	}

	payment, err := ctrl.paymentService.RecordPayment(id, req)
	if err != nil {
		respondError(c, "Failed to record payment", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment": payment,
	})
}

// ListPayments
// GET /api/v1/applications/:id/payments
func (ctrl *ApplicationController) ListPayments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if _, err := ctrl.applicationService.Get(id, actor); err != nil {
		respondError(c, "Failed to fetch application", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	payments, err := ctrl.paymentService.ListPayments(id)
	if err != nil {
		respondError(c, "Failed to list payments", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
	})
}
