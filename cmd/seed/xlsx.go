package main

import (
	"fmt"
	"strings"

	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

var requiredColumns = []string{"name", "town_code", "town_name", "barangay", "description"}

// readEntitiesFromXLSX reads the first sheet. Columns are located by header
// name, so extra or reordered columns are fine. Rows missing a required value
// are skipped; an unknown status falls back to Approved.
func readEntitiesFromXLSX(filePath string) ([]model.Entity, error) {
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

	columns := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entities []model.Entity
	skipped := 0
	for _, row := range rows[1:] {
		entity := model.Entity{
			Name:        cell(row, "name"),
			TownCode:    cell(row, "town_code"),
			TownName:    cell(row, "town_name"),
			Barangay:    cell(row, "barangay"),
			Description: cell(row, "description"),
			Status:      model.EntityStatus(cell(row, "status")),
		}
		if entity.Name == "" || entity.TownCode == "" || entity.TownName == "" || entity.Barangay == "" || entity.Description == "" {
			skipped++
			continue
		}
		if !entity.Status.Valid() {
			entity.Status = model.StatusApproved
		}
		entities = append(entities, entity)
	}

	if skipped > 0 {
		fmt.Printf("Skipped %d incomplete rows\n", skipped)
	}
	return entities, nil
}
