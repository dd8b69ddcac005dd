package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/service"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/internal/middleware"
	"github.com/ikkim/staycert-backend/internal/storage"
)

var documentContentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
}

// Presigner issues direct-to-bucket upload URLs.
type Presigner interface {
	GeneratePresignedURL(filename, contentType, folder string) (*storage.PresignedURLResponse, error)
	ValidateContentType(contentType string, allowedTypes []string) error
}

type UploadController struct {
	storage      Presigner
	applications service.ApplicationService
}

func NewUploadController(storage Presigner, applications service.ApplicationService) *UploadController {
	return &UploadController{
		storage:      storage,
		applications: applications,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GeneratePresignedURL returns an upload URL for an application document. The
// resulting file_url is then reported through the DOCUMENT_UPLOAD step.
// POST /api/v1/applications/:id/documents/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req GeneratePresignedURLRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := ctrl.applications.Get(id, actor); err != nil {
		respondError(c, "Presign denied", err, map[string]interface{}{
			"application_id": id,
		})
		return
	}

	if err := ctrl.storage.ValidateContentType(req.ContentType, documentContentTypes); err != nil {
		log.Warn("Invalid content type", map[string]interface{}{
			"content_type": req.ContentType,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "only PDF, JPEG and PNG documents are allowed")
		return
	}

	folder := fmt.Sprintf("documents/%d", id)
	response, err := ctrl.storage.GeneratePresignedURL(req.Filename, req.ContentType, folder)
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"application_id": id,
			"content_type":   req.ContentType,
		})
		apperrors.InternalError(c, "failed to generate upload URL")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"application_id": id,
		"user_id":        actor.UserID,
		"key":            response.Key,
	})

	c.JSON(http.StatusOK, gin.H{
		"upload_url": response.UploadURL,
		"file_url":   response.FileURL,
		"key":        response.Key,
	})
}
