package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map on the code, not the message.

const (
	// ==================== AUTH_ ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED" // login required
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// ==================== AUTHZ_ ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzReviewerOnly = "AUTHZ_REVIEWER_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== VALIDATION_ ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== RESOURCE_ ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== APPLICATION_ ====================
	ApplicationNotFound       = "APPLICATION_NOT_FOUND"
	ApplicationNotEditable    = "APPLICATION_NOT_EDITABLE" // status != DRAFT
	ApplicationInvalidStep    = "APPLICATION_INVALID_STEP"
	ApplicationStepSkip       = "APPLICATION_STEP_SKIP"
	ApplicationStepIncomplete = "APPLICATION_STEP_INCOMPLETE"
	ApplicationInvalidStatus  = "APPLICATION_INVALID_STATUS"
	PropertyTypeNotFound      = "PROPERTY_TYPE_NOT_FOUND"
	PropertyDetailsInvalid    = "PROPERTY_DETAILS_INVALID"
	ChecklistIncomplete       = "CHECKLIST_INCOMPLETE"
	ChecklistInvalidFormat    = "CHECKLIST_INVALID_FORMAT"
	DocumentsIncomplete       = "DOCUMENTS_INCOMPLETE"
	DocumentInvalidType       = "DOCUMENT_INVALID_TYPE"

	// ==================== REVIEW_ ====================
	ReviewNotUnderReview    = "REVIEW_NOT_UNDER_REVIEW"
	ReviewInvalidDecision   = "REVIEW_INVALID_DECISION"
	ReviewInvalidTransition = "REVIEW_INVALID_TRANSITION"

	// ==================== TEMPLATE_ ====================
	TemplateNotFound       = "TEMPLATE_NOT_FOUND"
	TemplateNoneActive     = "TEMPLATE_NONE_ACTIVE"
	TemplateMultipleActive = "TEMPLATE_MULTIPLE_ACTIVE"

	// ==================== CERTIFICATION_ ====================
	CertificationNotFound         = "CERTIFICATION_NOT_FOUND"
	CertificationNotApproved      = "CERTIFICATION_APPLICATION_NOT_APPROVED"
	CertificationAlreadyExists    = "CERTIFICATION_ALREADY_EXISTS"
	CertificationPaymentRequired  = "CERTIFICATION_PAYMENT_REQUIRED"
	CertificationDocumentsMissing = "CERTIFICATION_DOCUMENTS_MISSING"
	CertificationAlreadyRevoked   = "CERTIFICATION_ALREADY_REVOKED"
	CertificationExpired          = "CERTIFICATION_EXPIRED"
	CertificationNotRenewable     = "CERTIFICATION_NOT_RENEWABLE"
	CertificationReasonRequired   = "CERTIFICATION_REASON_REQUIRED"
	CertificateNumberExhausted    = "CERTIFICATE_NUMBER_EXHAUSTED"

	// ==================== INTERNAL_ ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
