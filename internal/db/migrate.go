package db

import (
	"fmt"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.PropertyType{},
		&model.ChecklistItem{},
		&model.Application{},
		&model.ComplianceChecklistRecord{},
		&model.ApplicationDocument{},
		&model.Payment{},
		&model.CertificateTemplate{},
		&model.Certification{},
		&model.AuditLog{},
		&model.Notification{},
	}
}

// partialIndexes are not expressible as gorm tags.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_certificate_templates_one_active
		ON certificate_templates (property_type_id) WHERE is_active`,
}

// Migrate runs database migrations against the global connection and seeds the default catalogue.
func Migrate() error {
	logger.Info("Running database migrations...")

	if err := MigrateSchema(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedCatalogue(DB); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(Models()),
	})
	return nil
}

// MigrateSchema creates tables and the indexes gorm cannot declare.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Seed adds the default catalogue to the global connection.
func Seed() error {
	return SeedCatalogue(DB)
}

type catalogueEntry struct {
	name        string
	description string
	items       []string
}

var standardChecklist = []string{
	"Smoke detector installed on every floor",
	"Carbon monoxide detector installed",
	"Fire extinguisher accessible",
	"Emergency exit plan displayed",
	"First aid kit available",
}

var defaultCatalogue = []catalogueEntry{
	{name: "apartment", description: "Unit in a multi-unit building", items: append(standardChecklist, "Building management consent on file")},
	{name: "house", description: "Detached or semi-detached house", items: standardChecklist},
	{name: "villa", description: "House with pool or large grounds", items: append(standardChecklist, "Pool safety barrier installed")},
}

// SeedCatalogue creates the default property types, checklist items and one active
// 12-month template per type. It is a no-op once any property type exists.
func SeedCatalogue(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.PropertyType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Property types already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding property catalogue...")

	return db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range defaultCatalogue {
			pt := model.PropertyType{Name: entry.name, Description: entry.description}
			if err := tx.Create(&pt).Error; err != nil {
				return err
			}

			items := make([]model.ChecklistItem, 0, len(entry.items))
			for i, name := range entry.items {
				items = append(items, model.ChecklistItem{PropertyTypeID: pt.ID, Name: name, SortOrder: i + 1})
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}

			tmpl := model.CertificateTemplate{
				PropertyTypeID: pt.ID,
				Name:           "Standard " + entry.name + " certificate",
				ValidityMonths: 12,
				IsActive:       true,
			}
			if err := tx.Create(&tmpl).Error; err != nil {
				return err
			}
		}

		logger.Info("Property catalogue seeded", map[string]interface{}{
			"property_types": len(defaultCatalogue),
		})
		return nil
	})
}
