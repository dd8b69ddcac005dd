package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is the client-facing translation of an arbitrary error.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError translates err into a code and message that are safe to return to clients.
// AppErrors pass through; storage errors are classified without leaking driver text.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "internal server error"}
	}

	if appErr, ok := As(err); ok {
		return ErrorInfo{Code: appErr.Code, Message: appErr.Message}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: context + " not found"}
	}

	if IsUniqueViolation(err, "") {
		return parseDuplicateKeyError(err.Error())
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceNotFound, Message: "referenced record does not exist"}
	}

	return ErrorInfo{Code: InternalServerError, Message: "failed to process " + context}
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// When column is non-empty the violated constraint must mention it:
// postgres reports the index name (idx_certifications_certificate_number),
// sqlite reports table.column (certifications.certificate_number).
func IsUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return column == ""
	}
	errLower := strings.ToLower(err.Error())
	if !strings.Contains(errLower, "duplicate key") && !strings.Contains(errLower, "unique constraint") {
		return false
	}
	if column == "" {
		return true
	}
	return strings.Contains(errLower, strings.ToLower(column))
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errLower, "application_id") && strings.Contains(errLower, "certifications"):
		return ErrorInfo{Code: CertificationAlreadyExists, Message: "a certification already exists for this application"}
	case strings.Contains(errLower, "certificate_number"):
		return ErrorInfo{Code: ResourceConflict, Message: "certificate number collision, please retry"}
	case strings.Contains(errLower, "is_active"), strings.Contains(errLower, "one_active"):
		return ErrorInfo{Code: TemplateMultipleActive, Message: "another template is already active for this property type"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "email already in use"}
	}

	return ErrorInfo{Code: ResourceAlreadyExists, Message: "record already exists"}
}
