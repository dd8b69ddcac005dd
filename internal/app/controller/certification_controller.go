package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/service"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/internal/middleware"
)

type CertificationController struct {
	certificationService service.CertificationService
}

func NewCertificationController(certificationService service.CertificationService) *CertificationController {
	return &CertificationController{
		certificationService: certificationService,
	}
}

type RevokeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type BulkRevokeRequest struct {
	IDs    []uint `json:"ids" binding:"required,min=1"`
	Reason string `json:"reason" binding:"required"`
}

type BulkRenewRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

type ExpiryCheckRequest struct {
	WarningDays int `json:"warning_days"`
}

// GetCertification
// GET /api/v1/certifications/:id
func (ctrl *CertificationController) GetCertification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	cert, err := ctrl.certificationService.Get(id, actor)
	if err != nil {
		respondError(c, "Failed to fetch certification", err, map[string]interface{}{
			"certification_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certification": cert,
	})
}

// GetApplicationCertification
// GET /api/v1/applications/:id/certification
func (ctrl *CertificationController) GetApplicationCertification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	cert, err := ctrl.certificationService.GetByApplication(id, actor)
	if err != nil {
		respondError(c, "Failed to fetch certification", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certification": cert,
	})
}

// Revoke
// POST /api/v1/certifications/:id/revoke
func (ctrl *CertificationController) Revoke(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "Invalid revoke request", service.ErrRevocationReasonRequired, map[string]interface{}{
			"certification_id": id,
		})
		return
	}

	cert, err := ctrl.certificationService.Revoke(id, req.Reason, actor)
	if err != nil {
		respondError(c, "Failed to revoke certification", err, map[string]interface{}{
			"certification_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certification": cert,
	})
}

// Renew
// POST /api/v1/certifications/:id/renew
func (ctrl *CertificationController) Renew(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	cert, err := ctrl.certificationService.Renew(id, actor)
	if err != nil {
		respondError(c, "Failed to renew certification", err, map[string]interface{}{
			"certification_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certification": cert,
	})
}

// BulkRevoke answers 200 with per-item results; individual failures do not fail the batch.
// POST /api/v1/certifications/bulk/revoke
func (ctrl *CertificationController) BulkRevoke(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req BulkRevokeRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.certificationService.BulkRevoke(req.IDs, req.Reason, actor)
	if err != nil {
		respondError(c, "Failed to bulk revoke certifications", err, map[string]interface{}{
			"count": len(req.IDs),
		})
		return
	}

	middleware.GetLoggerFromContext(c).Info("Bulk revoke finished", map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	c.JSON(http.StatusOK, result)
}

// BulkRenew
// POST /api/v1/certifications/bulk/renew
func (ctrl *CertificationController) BulkRenew(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req BulkRenewRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.certificationService.BulkRenew(req.IDs, actor)
	if err != nil {
		respondError(c, "Failed to bulk renew certifications", err, map[string]interface{}{
			"count": len(req.IDs),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CheckExpiry runs the expiry sweep on demand
// POST /api/v1/certifications/expiry-check
func (ctrl *CertificationController) CheckExpiry(c *gin.Context) {
	var req ExpiryCheckRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if raw := c.Query("warning_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "warning_days must be a non-negative integer")
			return
		}
		req.WarningDays = days
	}

	report, err := ctrl.certificationService.CheckExpiryStatus(req.WarningDays)
	if err != nil {
		respondError(c, "Expiry check failed", err, nil)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Verify is public; code is a verification token or a certificate number.
// GET /api/v1/verify/:code
func (ctrl *CertificationController) Verify(c *gin.Context) {
	result, err := ctrl.certificationService.Verify(c.Param("code"))
	if err != nil {
		respondError(c, "Verification failed", err, nil)
		return
	}

	c.JSON(http.StatusOK, result)
}
