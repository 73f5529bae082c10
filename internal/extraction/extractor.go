package extraction

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"micromes/internal/config"
	apperrors "micromes/internal/errors"
	"micromes/pkg/contracts/domain"
)

// Result is everything extracted from one workbook
type Result struct {
	FileName   string                    `json:"file_name"`
	Sheet      string                    `json:"sheet"`
	PartNumber domain.PartNumber         `json:"part_number"`
	Drafts     []domain.MeasurementDraft `json:"drafts"`
	Issues     []Issue                   `json:"issues"`
}

// Extractor turns workbooks into measurement drafts using a registry
type Extractor struct {
	registry *config.Registry
	logger   *slog.Logger
}

// NewExtractor creates an extractor bound to registry
func NewExtractor(registry *config.Registry, logger *slog.Logger) *Extractor {
	return &Extractor{
		registry: registry,
		logger:   logger.With(slog.String("component", "extractor")),
	}
}

// ExtractFile opens and extracts the workbook at path. The error is only
// set when the workbook itself cannot be read.
func (e *Extractor) ExtractFile(path string) (*Result, error) {
	name := filepath.Base(path)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("file", name)
	}
	defer f.Close()

	return e.extract(f, name)
}

func (e *Extractor) extract(f *excelize.File, name string) (*Result, error) {
	sheet, err := e.pickSheet(f)
	if err != nil {
		return nil, apperrors.NewParsingError(err.Error(), nil).WithContext("file", name)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).
			WithContext("file", name).
			WithContext("sheet", sheet)
	}

	pnCell := cellAt(rows, e.registry.SheetRow(e.registry.PartNumberCell.Row), e.registry.PartNumberCell.Column)
	pn := ResolvePartNumber(pnCell, name)

	result := &Result{
		FileName:   name,
		Sheet:      sheet,
		PartNumber: pn,
	}

	width := sheetWidth(rows)
	for _, param := range e.registry.ForPartNumber(pn.Value) {
		if param.SerialColumn > width || param.ValueColumn > width {
			result.Issues = append(result.Issues, Issue{
				Kind:      IssueConfiguration,
				Parameter: param.Name,
				Message: fmt.Sprintf("column out of range: sn column %d, value column %d, sheet has %d columns",
					param.SerialColumn, param.ValueColumn, width),
			})
			continue
		}
		e.extractParameter(rows, param, pn.Value, result)
	}

	e.logger.Debug("Workbook extracted",
		slog.String("file", name),
		slog.String("sheet", sheet),
		slog.String("part_number", pn.Value),
		slog.String("part_number_source", string(pn.Source)),
		slog.Int("drafts", len(result.Drafts)),
		slog.Int("issues", len(result.Issues)))

	return result, nil
}

func (e *Extractor) extractParameter(rows [][]string, param config.ParameterConfig, pn string, result *Result) {
	for sheetRow := e.registry.SheetRow(param.StartRow); sheetRow <= len(rows); sheetRow++ {
		serial := strings.TrimSpace(cellAt(rows, sheetRow, param.SerialColumn))
		raw := strings.TrimSpace(cellAt(rows, sheetRow, param.ValueColumn))

		value, err := parseMeasurement(raw)
		if err != nil {
			result.Issues = append(result.Issues, Issue{
				Kind:      IssueParse,
				Parameter: param.Name,
				Row:       sheetRow,
				Message:   err.Error(),
			})
			continue
		}

		result.Drafts = append(result.Drafts, domain.MeasurementDraft{
			ParameterName: param.Name,
			PartNumber:    pn,
			SerialNumber:  serial,
			Value:         value,
			Limits:        param.Limits,
			SourceRow:     sheetRow,
		})
	}
}

func (e *Extractor) pickSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if e.registry.Sheet == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == e.registry.Sheet {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found", e.registry.Sheet)
}

func parseMeasurement(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("value cell is empty")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", raw)
	}
	return v, nil
}

// cellAt returns the cell at 1-based (row, col), or "" when absent
func cellAt(rows [][]string, row, col int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	cells := rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

func sheetWidth(rows [][]string) int {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}
