package model

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeApplicationSubmitted NotificationType = "application_submitted"
	NotificationTypeReviewerAssigned     NotificationType = "reviewer_assigned"
	NotificationTypeApplicationApproved  NotificationType = "application_approved"
	NotificationTypeApplicationRejected  NotificationType = "application_rejected"
	NotificationTypeMoreInfoRequested    NotificationType = "more_info_requested"
	NotificationTypeCertificationIssued  NotificationType = "certification_issued"
	NotificationTypeCertificationRevoked NotificationType = "certification_revoked"
	NotificationTypeCertificationRenewed NotificationType = "certification_renewed"
	NotificationTypeCertificationExpired NotificationType = "certification_expired"
	NotificationTypeExpiringSoon         NotificationType = "certification_expiring_soon"
)

type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint             `gorm:"not null;index" json:"user_id"`
	Type   NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`

	Title   string `gorm:"type:text;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Link    string `gorm:"type:text" json:"link,omitempty"`

	IsRead bool `gorm:"default:false;index" json:"is_read"`

	// nullable back-references
	RelatedApplicationID   *uint `gorm:"index" json:"related_application_id,omitempty"`
	RelatedCertificationID *uint `gorm:"index" json:"related_certification_id,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
