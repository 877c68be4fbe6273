package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/cardbot/internal/database"
	"github.com/example/cardbot/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FrontColumn string // Column with the question side
	BackColumn  string // Column with the answer side
	TagsColumn  string // Optional column with comma separated tags
	SheetName   string // Empty means the first sheet
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn: "A",
		BackColumn:  "B",
		TagsColumn:  "C",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// Importer loads flashcards for a user from spreadsheets
type Importer struct {
	cards *database.FlashcardRepository
}

// NewImporter creates an importer writing to db
func NewImporter(db *sqlx.DB) *Importer {
	return &Importer{cards: database.NewFlashcardRepository(db)}
}

// ImportFile imports flashcards from an Excel or CSV file
func (im *Importer) ImportFile(ctx context.Context, userID int64, path string, cfg ImportConfig) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open import file")
	}
	defer f.Close()
	return im.Import(ctx, userID, f, filepath.Ext(path), cfg)
}

// Import reads rows from r. ext selects the format: ".csv" or an Excel
// extension.
func (im *Importer) Import(ctx context.Context, userID int64, r io.Reader, ext string, cfg ImportConfig) (*ImportResult, error) {
	cols, err := resolveColumns(cfg)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch strings.ToLower(ext) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(r, cfg.SheetName)
	default:
		return nil, errors.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < cfg.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		if err := im.processRow(ctx, userID, row, cols, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

type columns struct {
	front, back, tags int // zero-based, tags -1 when unused
}

func resolveColumns(cfg ImportConfig) (columns, error) {
	c := columns{tags: -1}
	var err error
	if c.front, err = columnIndex(cfg.FrontColumn); err != nil {
		return c, err
	}
	if c.back, err = columnIndex(cfg.BackColumn); err != nil {
		return c, err
	}
	if cfg.TagsColumn != "" {
		if c.tags, err = columnIndex(cfg.TagsColumn); err != nil {
			return c, err
		}
	}
	return c, nil
}

func columnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid column %q", name)
	}
	return n - 1, nil
}

func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rows of sheet %q", sheet)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "error reading CSV")
	}
	return rows, nil
}

func (im *Importer) processRow(ctx context.Context, userID int64, row []string, cols columns, result *ImportResult) error {
	front := cell(row, cols.front)
	back := cell(row, cols.back)
	tags := cell(row, cols.tags)

	if front == "" || back == "" {
		result.Skipped++
		return nil
	}

	existing, err := im.cards.GetByFront(ctx, userID, front)
	switch {
	case err == nil:
		if existing.Back == back && existing.Tags == tags {
			result.Skipped++
			return nil
		}
		if err := im.cards.UpdateContent(ctx, existing.ID, back, tags); err != nil {
			return err
		}
		result.Updated++
		return nil
	case !errors.Is(err, database.ErrNotFound):
		return err
	}

	card := &models.Flashcard{UserID: userID, Front: front, Back: back, Tags: tags, Source: "import"}
	if err := im.cards.Create(ctx, card); err != nil {
		return err
	}
	result.Created++
	return nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
