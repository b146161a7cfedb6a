package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet columns, after one header row.
const (
	colTitle = iota
	colPrice
	colDescription
	colImageURL
	colAvailable
)

type importSummary struct {
	Rows    int
	Skipped int
}

// readProductsFromXLSX reads the first sheet. Rows without a title or with an
// unparsable or negative price are skipped, as are repeated titles.
func readProductsFromXLSX(filePath string) ([]model.Product, importSummary, error) {
	var summary importSummary

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, summary, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, summary, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	seenTitles := make(map[string]bool)
	slugCounter := make(map[string]int)

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		summary.Rows++

		title := cell(row, colTitle)
		if title == "" {
			summary.Skipped++
			continue
		}

		price, err := decimal.NewFromString(cell(row, colPrice))
		if err != nil || price.IsNegative() {
			summary.Skipped++
			continue
		}

		key := strings.ToLower(title)
		if seenTitles[key] {
			summary.Skipped++
			continue
		}
		seenTitles[key] = true

		baseSlug := util.Slugify(title)
		slug := baseSlug
		if count, exists := slugCounter[baseSlug]; exists {
			slugCounter[baseSlug] = count + 1
			slug = fmt.Sprintf("%s-%d", baseSlug, count+1)
		} else {
			slugCounter[baseSlug] = 1
		}

		products = append(products, model.Product{
			Title:       title,
			Slug:        slug,
			Description: cell(row, colDescription),
			ImageURL:    cell(row, colImageURL),
			Price:       price.Round(2),
			Available:   parseAvailable(cell(row, colAvailable)),
		})
	}

	return products, summary, nil
}

// cell tolerates short rows; excelize drops trailing empty cells.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseAvailable treats an empty cell as available.
func parseAvailable(s string) bool {
	if s == "" {
		return true
	}
	switch strings.ToLower(s) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	b, err := strconv.ParseBool(s)
	return err != nil || b
}
