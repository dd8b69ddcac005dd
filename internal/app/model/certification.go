package model

import (
	"time"
)

type CertificationStatus string

const (
	CertificationStatusActive  CertificationStatus = "ACTIVE"
	CertificationStatusExpired CertificationStatus = "EXPIRED"
	CertificationStatusRevoked CertificationStatus = "REVOKED"
)

// CertificateTemplate configures issuance per property type.
// At most one row per property type has IsActive set (partial unique index, see db.EnsureIndexes).
type CertificateTemplate struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PropertyTypeID uint      `gorm:"not null;index" json:"property_type_id"`
	Name           string    `gorm:"type:varchar(200);not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	ValidityMonths int       `gorm:"not null" json:"validity_months"`
	IsActive       bool      `gorm:"default:false;not null;index" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	PropertyType *PropertyType `gorm:"foreignKey:PropertyTypeID" json:"property_type,omitempty"`
}

func (CertificateTemplate) TableName() string {
	return "certificate_templates"
}

// Certification is never deleted, only status-transitioned.
type Certification struct {
	ID                uint                `gorm:"primarykey" json:"id"`
	ApplicationID     uint                `gorm:"not null;uniqueIndex" json:"application_id"`
	TemplateID        uint                `gorm:"not null;index" json:"template_id"`
	HostID            uint                `gorm:"not null;index" json:"host_id"`
	CertificateNumber string              `gorm:"type:varchar(20);not null;uniqueIndex" json:"certificate_number"`
	VerificationToken string              `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	VerificationURL   string              `gorm:"type:text" json:"verification_url"`
	Status            CertificationStatus `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`
	IssuedAt          time.Time           `gorm:"not null" json:"issued_at"`
	ExpiresAt         time.Time           `gorm:"not null;index" json:"expires_at"`
	IssuedBy          uint                `json:"issued_by"`
	RevokedAt         *time.Time          `json:"revoked_at,omitempty"`
	RevokedBy         *uint               `json:"revoked_by,omitempty"`
	RevocationReason  string              `gorm:"type:text" json:"revocation_reason,omitempty"`
	RenewedAt         *time.Time          `json:"renewed_at,omitempty"`
	BadgeURL          string              `gorm:"type:text" json:"badge_url"`
	QRCodeURL         string              `gorm:"type:text" json:"qr_code_url"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	Application *Application         `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	Template    *CertificateTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

func (Certification) TableName() string {
	return "certifications"
}
