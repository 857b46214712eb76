package importer

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx/v3"

	"hardware-inventory/internal/models"
)

// ExportSheet is the sheet name ExportExcel writes.
const ExportSheet = "Inventory"

var exportHeader = []string{"Name", "Brand", "Model", "Serial", "Monthly Cost", "Details"}

// ExportExcel writes one row per item, groups ordered by key. The header
// matches the built-in mapping so the file can be imported again.
func ExportExcel(w io.Writer, groups models.Groups) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(ExportSheet)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for _, key := range groups.Keys() {
		for _, it := range groups[key] {
			row := sheet.AddRow()
			row.AddCell().SetString(it.Name)
			row.AddCell().SetString(it.Brand)
			row.AddCell().SetString(it.Model)
			row.AddCell().SetString(it.SerialNumber)
			row.AddCell().SetNumeric(it.MonthlyCost.String())
			row.AddCell().SetString(it.Details)
		}
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
