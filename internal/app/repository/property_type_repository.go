package repository

import (
	"errors"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

type PropertyTypeRepository interface {
	Create(propertyType *model.PropertyType) error
	FindByID(id uint) (*model.PropertyType, error)
	FindByName(name string) (*model.PropertyType, error)
	FindAll() ([]model.PropertyType, error)
	FindChecklistItems(propertyTypeID uint) ([]model.ChecklistItem, error)
	UpsertChecklistItem(item *model.ChecklistItem) (bool, error)
}

type propertyTypeRepository struct {
	db *gorm.DB
}

func NewPropertyTypeRepository(db *gorm.DB) PropertyTypeRepository {
	return &propertyTypeRepository{db: db}
}

func (r *propertyTypeRepository) Create(propertyType *model.PropertyType) error {
	logger.Debug("Creating property type in database", map[string]interface{}{
		"name": propertyType.Name,
	})

	if err := r.db.Create(propertyType).Error; err != nil {
		logger.Error("Failed to create property type in database", err, map[string]interface{}{
			"name": propertyType.Name,
		})
		return err
	}

	logger.Debug("Property type created in database", map[string]interface{}{
		"property_type_id": propertyType.ID,
		"name":             propertyType.Name,
	})
	return nil
}

func (r *propertyTypeRepository) FindByID(id uint) (*model.PropertyType, error) {
	logger.Debug("Finding property type by ID in database", map[string]interface{}{
		"property_type_id": id,
	})

	var propertyType model.PropertyType
	if err := r.db.First(&propertyType, id).Error; err != nil {
		logger.Error("Failed to find property type by ID in database", err, map[string]interface{}{
			"property_type_id": id,
		})
		return nil, err
	}
	return &propertyType, nil
}

func (r *propertyTypeRepository) FindByName(name string) (*model.PropertyType, error) {
	var propertyType model.PropertyType
	if err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&propertyType).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find property type by name in database", err, map[string]interface{}{
				"name": name,
			})
		}
		return nil, err
	}
	return &propertyType, nil
}

func (r *propertyTypeRepository) FindAll() ([]model.PropertyType, error) {
	var propertyTypes []model.PropertyType
	if err := r.db.Order("name").Find(&propertyTypes).Error; err != nil {
		logger.Error("Failed to find property types in database", err)
		return nil, err
	}

	logger.Debug("Property types found in database", map[string]interface{}{
		"count": len(propertyTypes),
	})
	return propertyTypes, nil
}

func (r *propertyTypeRepository) FindChecklistItems(propertyTypeID uint) ([]model.ChecklistItem, error) {
	logger.Debug("Finding checklist items in database", map[string]interface{}{
		"property_type_id": propertyTypeID,
	})

	var items []model.ChecklistItem
	if err := r.db.Where("property_type_id = ?", propertyTypeID).
		Order("sort_order ASC").Order("id ASC").
		Find(&items).Error; err != nil {
		logger.Error("Failed to find checklist items in database", err, map[string]interface{}{
			"property_type_id": propertyTypeID,
		})
		return nil, err
	}

	logger.Debug("Checklist items found in database", map[string]interface{}{
		"property_type_id": propertyTypeID,
		"count":            len(items),
	})
	return items, nil
}

// UpsertChecklistItem creates item unless an item with the same name already exists
// for its property type, in which case description and sort order are refreshed.
// It reports whether a new row was created.
func (r *propertyTypeRepository) UpsertChecklistItem(item *model.ChecklistItem) (bool, error) {
	logger.Debug("Upserting checklist item in database", map[string]interface{}{
		"property_type_id": item.PropertyTypeID,
		"name":             item.Name,
	})

	var existing model.ChecklistItem
	err := r.db.Where("property_type_id = ? AND name = ?", item.PropertyTypeID, item.Name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.Create(item).Error; err != nil {
			logger.Error("Failed to create checklist item in database", err, map[string]interface{}{
				"property_type_id": item.PropertyTypeID,
				"name":             item.Name,
			})
			return false, err
		}
		return true, nil
	case err != nil:
		logger.Error("Failed to look up checklist item in database", err, map[string]interface{}{
			"property_type_id": item.PropertyTypeID,
			"name":             item.Name,
		})
		return false, err
	}

	if err := r.db.Model(&existing).Updates(map[string]interface{}{
		"description": item.Description,
		"sort_order":  item.SortOrder,
	}).Error; err != nil {
		logger.Error("Failed to update checklist item in database", err, map[string]interface{}{
			"checklist_item_id": existing.ID,
		})
		return false, err
	}
	item.ID = existing.ID
	return false, nil
}
