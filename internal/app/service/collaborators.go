package service

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/badge"
)

// DocumentStepResult reports whether the document step can be left.
type DocumentStepResult struct {
	IsComplete bool                 `json:"is_complete"`
	Message    string               `json:"message"`
	Missing    []model.DocumentType `json:"missing,omitempty"`
}

type DocumentChecker interface {
	DocumentTypesUploaded(applicationID uint) ([]model.DocumentType, error)
	ValidateDocumentStepCompletion(applicationID uint) (*DocumentStepResult, error)
}

type PaymentChecker interface {
	HasCompletedPayment(applicationID uint) (bool, error)
}

// NotificationPayload is the content of one notification.
type NotificationPayload struct {
	Title                  string
	Content                string
	Link                   string
	RelatedApplicationID   *uint
	RelatedCertificationID *uint
}

// Notifier delivers notifications. Implementations never return errors to the caller.
type Notifier interface {
	Notify(userID uint, event model.NotificationType, payload NotificationPayload)
}

// AuditEntry describes one state change. ActorID is nil for scheduler-driven changes.
type AuditEntry struct {
	Action     model.AuditAction
	EntityType string
	EntityID   uint
	ActorID    *uint
	OldValues  map[string]interface{}
	NewValues  map[string]interface{}
}

// Auditor records state changes. Implementations never return errors to the caller.
type Auditor interface {
	Record(entry AuditEntry)
}

type BadgeGenerator interface {
	Generate(details badge.Details) (*badge.Assets, error)
}

// LivePusher pushes a message to the live sessions of a user.
type LivePusher interface {
	SendToUser(userID uint, message interface{}) error
}

const (
	entityApplication = "application"
	entityCertificate = "certification"
	entityTemplate    = "certificate_template"
)

func uintPtr(v uint) *uint {
	return &v
}
