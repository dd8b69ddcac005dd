package service

import (
	"errors"
	"strings"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

// ChecklistRow is one imported line: a checklist item under a property type.
type ChecklistRow struct {
	PropertyType string
	Item         string
	Description  string
}

type ImportSummary struct {
	PropertyTypesCreated int `json:"property_types_created"`
	ItemsCreated         int `json:"items_created"`
	ItemsUpdated         int `json:"items_updated"`
	RowsSkipped          int `json:"rows_skipped"`
}

// CatalogueService exposes property types and their checklist items.
type CatalogueService interface {
	ListPropertyTypes() ([]model.PropertyType, error)
	ChecklistItems(propertyTypeID uint) ([]model.ChecklistItem, error)
	ImportChecklist(rows []ChecklistRow) (*ImportSummary, error)
}

type catalogueService struct {
	repo repository.PropertyTypeRepository
}

func NewCatalogueService(repo repository.PropertyTypeRepository) CatalogueService {
	return &catalogueService{repo: repo}
}

func (s *catalogueService) ListPropertyTypes() ([]model.PropertyType, error) {
	return s.repo.FindAll()
}

func (s *catalogueService) ChecklistItems(propertyTypeID uint) ([]model.ChecklistItem, error) {
	if _, err := s.repo.FindByID(propertyTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyTypeNotFound
		}
		return nil, err
	}
	return s.repo.FindChecklistItems(propertyTypeID)
}

// ImportChecklist creates missing property types and upserts items by name.
// Items keep their row order within a property type. Rows lacking a type or item are skipped.
func (s *catalogueService) ImportChecklist(rows []ChecklistRow) (*ImportSummary, error) {
	summary := &ImportSummary{}
	types := make(map[string]*model.PropertyType)
	order := make(map[uint]int)

	for _, row := range rows {
		typeName := strings.TrimSpace(row.PropertyType)
		itemName := strings.TrimSpace(row.Item)
		if typeName == "" || itemName == "" {
			summary.RowsSkipped++
			continue
		}

		key := strings.ToLower(typeName)
		pt, ok := types[key]
		if !ok {
			found, err := s.repo.FindByName(typeName)
			switch {
			case err == nil:
				pt = found
			case errors.Is(err, gorm.ErrRecordNotFound):
				pt = &model.PropertyType{Name: typeName}
				if err := s.repo.Create(pt); err != nil {
					return nil, err
				}
				summary.PropertyTypesCreated++
			default:
				return nil, err
			}
			types[key] = pt
		}

		order[pt.ID]++
		created, err := s.repo.UpsertChecklistItem(&model.ChecklistItem{
			PropertyTypeID: pt.ID,
			Name:           itemName,
			Description:    strings.TrimSpace(row.Description),
			SortOrder:      order[pt.ID],
		})
		if err != nil {
			return nil, err
		}
		if created {
			summary.ItemsCreated++
		} else {
			summary.ItemsUpdated++
		}
	}

	logger.Info("Checklist import finished", map[string]interface{}{
		"property_types_created": summary.PropertyTypesCreated,
		"items_created":          summary.ItemsCreated,
		"items_updated":          summary.ItemsUpdated,
		"rows_skipped":           summary.RowsSkipped,
	})
	return summary, nil
}
