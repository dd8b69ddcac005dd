package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleHost     UserRole = "host"
	RoleReviewer UserRole = "reviewer"
	RoleAdmin    UserRole = "admin"
)

// IsReviewer reports whether the role may act on applications it does not own.
func (r UserRole) IsReviewer() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// User is a local projection of the identity provider's account; credentials live elsewhere.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Name      string         `gorm:"not null" json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Role      UserRole       `gorm:"type:varchar(20);default:'host';index" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Actor identifies who performs an operation.
type Actor struct {
	UserID uint
	Role   UserRole
}

func (a Actor) IsReviewer() bool {
	return a.Role.IsReviewer()
}
