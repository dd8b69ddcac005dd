package model

import (
	"time"

	"github.com/lib/pq"
)

type AuditAction string

const (
	AuditActionApplicationCreated   AuditAction = "APPLICATION_CREATED"
	AuditActionApplicationUpdated   AuditAction = "APPLICATION_UPDATED"
	AuditActionApplicationSubmitted AuditAction = "APPLICATION_SUBMITTED"
	AuditActionApplicationDeleted   AuditAction = "APPLICATION_DELETED"
	AuditActionReviewerAssigned     AuditAction = "REVIEWER_ASSIGNED"
	AuditActionReviewDecision       AuditAction = "REVIEW_DECISION"
	AuditActionCertificationIssued  AuditAction = "CERTIFICATION_ISSUED"
	AuditActionCertificationRevoked AuditAction = "CERTIFICATION_REVOKED"
	AuditActionCertificationRenewed AuditAction = "CERTIFICATION_RENEWED"
	AuditActionCertificationExpired AuditAction = "CERTIFICATION_EXPIRED"
	AuditActionTemplateCreated      AuditAction = "TEMPLATE_CREATED"
	AuditActionTemplateActivated    AuditAction = "TEMPLATE_ACTIVATED"
)

// AuditLog is append-only.
type AuditLog struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	ActorID       *uint          `gorm:"index" json:"actor_id,omitempty"` // nil for scheduler-driven changes
	Action        AuditAction    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType    string         `gorm:"type:varchar(50);not null;index:idx_audit_logs_entity" json:"entity_type"`
	EntityID      uint           `gorm:"not null;index:idx_audit_logs_entity" json:"entity_id"`
	ChangedFields pq.StringArray `gorm:"type:text[]" json:"changed_fields"`
	Detail        string         `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
