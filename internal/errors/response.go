package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string   `json:"error"` // code from codes.go
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExhaustion:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithAppError writes err using its kind for the status.
// Errors outside the taxonomy are reported as 500 without their text.
func RespondWithAppError(c *gin.Context, err error) {
	appErr, ok := As(err)
	if !ok {
		info := ParseError(err, "request")
		status := http.StatusInternalServerError
		switch info.Code {
		case ResourceNotFound:
			status = http.StatusNotFound
		case ResourceAlreadyExists, ResourceConflict, CertificationAlreadyExists, TemplateMultipleActive:
			status = http.StatusConflict
		}
		RespondWithError(c, status, info.Code, info.Message)
		return
	}
	c.JSON(StatusFor(appErr.Kind), ErrorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "access denied"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error, please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}
