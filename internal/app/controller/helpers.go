package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/model"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/ikkim/staycert-backend/internal/middleware"
)

// currentActor writes a 401 and returns false when the request carries no authenticated user.
func currentActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Unauthenticated request reached a protected handler", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.Unauthorized(c, "")
		return model.Actor{}, false
	}
	return actor, true
}

// idParam parses a positive uint path parameter, writing a 400 on failure.
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// bindJSON binds the request body. Domain decode errors keep their code.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		if _, ok := apperrors.As(err); ok {
			apperrors.RespondWithAppError(c, err)
			return false
		}
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return false
	}
	return true
}

// respondError logs by kind and writes the error response.
func respondError(c *gin.Context, msg string, err error, fields map[string]interface{}) {
	log := middleware.GetLoggerFromContext(c)
	switch apperrors.KindOf(err) {
	case apperrors.KindInternal:
		log.Error(msg, err, fields)
	default:
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["error"] = err.Error()
		log.Warn(msg, fields)
	}
	apperrors.RespondWithAppError(c, err)
}
