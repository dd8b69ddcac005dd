package model

import (
	"time"

	"gorm.io/gorm"
)

// PropertyType scopes checklist items and certificate templates.
type PropertyType struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	ChecklistItems []ChecklistItem `gorm:"foreignKey:PropertyTypeID" json:"checklist_items,omitempty"`
}

func (PropertyType) TableName() string {
	return "property_types"
}

// ChecklistItem is a compliance requirement; Name doubles as an alternate key within its property type.
type ChecklistItem struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PropertyTypeID uint      `gorm:"not null;index;uniqueIndex:idx_checklist_items_type_name" json:"property_type_id"`
	Name           string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_checklist_items_type_name" json:"name"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	SortOrder      int       `gorm:"default:0" json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ChecklistItem) TableName() string {
	return "checklist_items"
}
