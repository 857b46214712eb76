package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/models"
)

const (
	defaultMaxErrors = 50
	maxSamples       = 20
)

// Saver is the part of the inventory store the importer writes through.
type Saver interface {
	Save(models.HardwareItem) (models.HardwareItem, error)
	Validate(models.HardwareItem) error
	FindBySerial(serial string) (models.HardwareItem, bool)
}

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	Sheet       string // defaults to the mapping's sheet, then the first sheet
	MappingPath string // empty uses the built-in mapping
	Mapping     *Mapping
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportSummary contains the import statistics
type ImportSummary struct {
	Sheet    string     `json:"sheet"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
	DryRun   bool       `json:"dry_run"`
}

func (s *ImportSummary) fail(row int, field, msg string) {
	s.Errors++
	if len(s.Samples) < maxSamples {
		s.Samples = append(s.Samples, RowError{Row: row, Field: field, Message: msg})
	}
}

// ImportExcel reads hardware items from an .xlsx workbook and saves them
// through saver. A row whose serial number already exists updates that item.
// Rows that fail validation are counted and sampled; the import stops once
// more than MaxErrors rows have failed.
func ImportExcel(ctx context.Context, saver Saver, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{DryRun: opts.DryRun}

	if opts.MaxErrors <= 0 {
		opts.MaxErrors = defaultMaxErrors
	}
	mapping := opts.Mapping
	if mapping == nil {
		m, err := LoadMapping(opts.MappingPath)
		if err != nil {
			return summary, fmt.Errorf("failed to load mapping config: %w", err)
		}
		mapping = m
	}

	// xlsx needs random access, so the whole upload is buffered.
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	sheet, err := pickSheet(wb, opts.Sheet, mapping.Sheet)
	if err != nil {
		return summary, err
	}
	summary.Sheet = sheet.Name

	columns, err := resolveColumns(sheet, mapping)
	if err != nil {
		return summary, err
	}

	seen := make(map[string]int)
	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rowNum := rowIdx + 1

		row, err := sheet.Row(rowIdx)
		if err != nil {
			summary.fail(rowNum, "", "failed to read row: "+err.Error())
			continue
		}
		values := readRow(row, columns)
		if len(values) == 0 {
			summary.Skipped++
			continue
		}

		item, field, err := buildItem(values)
		if err != nil {
			summary.fail(rowNum, field, err.Error())
		} else if first, dup := seen[item.SerialNumber]; dup {
			summary.fail(rowNum, inventory.FieldSerialNumber,
				fmt.Sprintf("serial number %q repeats row %d", item.SerialNumber, first))
		} else {
			seen[item.SerialNumber] = rowNum
			saveRow(saver, item, rowNum, opts.DryRun, &summary)
		}

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	return summary, nil
}

func saveRow(saver Saver, item models.HardwareItem, rowNum int, dryRun bool, summary *ImportSummary) {
	existing, update := saver.FindBySerial(item.SerialNumber)
	if update {
		item.ID = existing.ID
	}

	var err error
	if dryRun {
		err = saver.Validate(item)
	} else {
		_, err = saver.Save(item)
	}
	if err != nil {
		field := ""
		var ve *inventory.ValidationError
		if errors.As(err, &ve) {
			field = ve.Field
		}
		summary.fail(rowNum, field, err.Error())
		return
	}

	if update {
		summary.Updated++
	} else {
		summary.Inserted++
	}
}

func pickSheet(wb *xlsx.File, names ...string) (*xlsx.Sheet, error) {
	for _, name := range names {
		if name == "" {
			continue
		}
		sheet, ok := wb.Sheet[name]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(wb.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return wb.Sheets[0], nil
}

// resolveColumns maps column indexes of the header row to item fields.
func resolveColumns(sheet *xlsx.Sheet, mapping *Mapping) (map[int]string, error) {
	if sheet.MaxRow == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}
	header, err := sheet.Row(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	lookup := mapping.lookup()
	columns := make(map[int]string)
	found := make(map[string]bool)
	for col := 0; col < sheet.MaxCol; col++ {
		field, ok := lookup[normalizeHeader(header.GetCell(col).String())]
		if !ok || found[field] {
			continue
		}
		columns[col] = field
		found[field] = true
	}

	var missing []string
	for _, f := range requiredFields {
		if !found[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sheet %q is missing required columns: %s", sheet.Name, strings.Join(missing, ", "))
	}
	return columns, nil
}

func readRow(row *xlsx.Row, columns map[int]string) map[string]string {
	values := make(map[string]string, len(columns))
	for col, field := range columns {
		if v := cellText(row.GetCell(col)); v != "" {
			values[field] = v
		}
	}
	return values
}

// cellText returns the stored text of numeric cells, which String would
// round through a float64, and the formatted value of everything else.
func cellText(cell *xlsx.Cell) string {
	if cell.Type() == xlsx.CellTypeNumeric {
		return strings.TrimSpace(cell.Value)
	}
	return strings.TrimSpace(cell.String())
}

func buildItem(values map[string]string) (models.HardwareItem, string, error) {
	item := models.HardwareItem{
		Name:         values[inventory.FieldName],
		Brand:        values[inventory.FieldBrand],
		Model:        values[inventory.FieldModel],
		SerialNumber: values[inventory.FieldSerialNumber],
		Details:      values[fieldDetails],
	}
	if raw, ok := values[inventory.FieldMonthlyCost]; ok {
		cost, err := parseCost(raw)
		if err != nil {
			return item, inventory.FieldMonthlyCost, err
		}
		item.MonthlyCost = cost
	}
	return item, "", nil
}

func parseCost(raw string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", "€", "", " ", "").Replace(raw)
	cost, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid monthly cost %q", raw)
	}
	return cost, nil
}
