package model

import (
	"time"

	"gorm.io/gorm"
)

type ApplicationStatus string
type ApplicationStep string

const (
	ApplicationStatusDraft             ApplicationStatus = "DRAFT"
	ApplicationStatusSubmitted         ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview       ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved          ApplicationStatus = "APPROVED"
	ApplicationStatusRejected          ApplicationStatus = "REJECTED"
	ApplicationStatusMoreInfoRequested ApplicationStatus = "MORE_INFO_REQUESTED"

	StepPropertyDetails     ApplicationStep = "PROPERTY_DETAILS"
	StepComplianceChecklist ApplicationStep = "COMPLIANCE_CHECKLIST"
	StepDocumentUpload      ApplicationStep = "DOCUMENT_UPLOAD"
	StepPayment             ApplicationStep = "PAYMENT"
	StepSubmission          ApplicationStep = "SUBMISSION"
)

// PropertyDetails is stored inline on the application row.
type PropertyDetails struct {
	PropertyName   string `gorm:"type:varchar(200)" json:"property_name" validate:"required"`
	PropertyTypeID uint   `gorm:"index" json:"property_type_id" validate:"required"`
	Address        string `gorm:"type:text" json:"address" validate:"required"`
	City           string `gorm:"type:varchar(100)" json:"city,omitempty"`
	PostalCode     string `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Bedrooms       int    `json:"bedrooms" validate:"min=1"`
	Bathrooms      int    `json:"bathrooms" validate:"min=1"`
	MaxGuests      int    `json:"max_guests" validate:"min=1"`
	Description    string `gorm:"type:text" json:"description,omitempty"`
}

type Application struct {
	ID              uint              `gorm:"primarykey" json:"id"`
	HostID          uint              `gorm:"not null;index" json:"host_id"`
	Status          ApplicationStatus `gorm:"type:varchar(30);default:'DRAFT';index" json:"status"`
	CurrentStep     ApplicationStep   `gorm:"type:varchar(30);default:'PROPERTY_DETAILS'" json:"current_step"`
	PropertyDetails PropertyDetails   `gorm:"embedded" json:"property_details"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	ReviewerID      *uint             `gorm:"index" json:"reviewer_id,omitempty"`
	ReviewNotes     string            `gorm:"type:text" json:"review_notes,omitempty"`
	CertificationID *uint             `gorm:"uniqueIndex" json:"certification_id,omitempty"` // 1:1 link set by the issuer
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`

	Documents        []ApplicationDocument       `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	ChecklistRecords []ComplianceChecklistRecord `gorm:"foreignKey:ApplicationID" json:"checklist_records,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

// ComplianceChecklistRecord is replaced wholesale on every checklist save.
type ComplianceChecklistRecord struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	ApplicationID   uint      `gorm:"not null;uniqueIndex:idx_checklist_records_app_item" json:"application_id"`
	ChecklistItemID uint      `gorm:"not null;uniqueIndex:idx_checklist_records_app_item" json:"checklist_item_id"`
	Checked         bool      `gorm:"default:false;not null" json:"checked"`
	CheckedAt       time.Time `json:"checked_at"`

	ChecklistItem *ChecklistItem `gorm:"foreignKey:ChecklistItemID" json:"checklist_item,omitempty"`
}

func (ComplianceChecklistRecord) TableName() string {
	return "compliance_checklist_records"
}
