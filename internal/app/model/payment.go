package model

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is written by the payment-gateway integration; only Status is consulted here.
type Payment struct {
	ID            uint          `gorm:"primarykey" json:"id"`
	ApplicationID uint          `gorm:"not null;index" json:"application_id"`
	Amount        float64       `gorm:"not null" json:"amount"`
	Currency      string        `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
	Status        PaymentStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	Provider      string        `gorm:"type:varchar(50)" json:"provider,omitempty"`
	TransactionID string        `gorm:"type:varchar(100);index" json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
