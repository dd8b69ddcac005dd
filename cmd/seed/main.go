package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ikkim/staycert-backend/config"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, err := readChecklistFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	fmt.Printf("Checklist rows to import: %d\n", len(rows))

	catalogue := service.NewCatalogueService(repository.NewPropertyTypeRepository(db.GetDB()))
	summary, err := catalogue.ImportChecklist(rows)
	if err != nil {
		log.Fatal("Failed to import checklist:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Property types created: %d\n", summary.PropertyTypesCreated)
	fmt.Printf("Items created: %d, updated: %d, skipped rows: %d\n",
		summary.ItemsCreated, summary.ItemsUpdated, summary.RowsSkipped)
}

// readChecklistFromXLSX reads the first sheet. The header row names the columns
// property_type, item and (optionally) description, in any order.
func readChecklistFromXLSX(filePath string) ([]service.ChecklistRow, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	return parseChecklistRows(rows)
}

func parseChecklistRows(rows [][]string) ([]service.ChecklistRow, error) {
	columns := map[string]int{"property_type": -1, "item": -1, "description": -1}
	for i, header := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(header))
		key = strings.ReplaceAll(key, " ", "_")
		if _, ok := columns[key]; ok {
			columns[key] = i
		}
	}
	if columns["property_type"] < 0 || columns["item"] < 0 {
		return nil, fmt.Errorf("header must contain property_type and item columns, got %v", rows[0])
	}

	cell := func(row []string, name string) string {
		i := columns[name]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]service.ChecklistRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, service.ChecklistRow{
			PropertyType: cell(row, "property_type"),
			Item:         cell(row, "item"),
			Description:  cell(row, "description"),
		})
	}
	return out, nil
}
