package render

import (
	"fmt"
	"io"

	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/xuri/excelize/v2"
)

const overviewSheet = "RFQ"

// XLSXRenderer writes a workbook with an overview sheet followed by one sheet
// per section. Mappings get Field/Value columns; lists get one row per item.
type XLSXRenderer struct{}

// Ext returns "xlsx".
func (XLSXRenderer) Ext() string { return FormatXLSX }

// Render writes the workbook for rec to w.
func (XLSXRenderer) Render(w io.Writer, rec models.Record, meta Meta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", overviewSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	_ = f.SetCellValue(overviewSheet, "A1", DocumentTitle)
	row := 2
	if !meta.GeneratedAt.IsZero() {
		_ = f.SetCellValue(overviewSheet, "A2", "Generated on")
		_ = f.SetCellValue(overviewSheet, "B2", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
		row++
	}
	if meta.SourceName != "" {
		setRow(f, overviewSheet, row, "Source", meta.SourceName)
	}
	_ = f.SetColWidth(overviewSheet, "A", "A", 24)
	_ = f.SetColWidth(overviewSheet, "B", "B", 60)

	var serr error
	sections(rec, func(field models.Field, entries []Entry, items []string) {
		if serr != nil {
			return
		}
		sheet := field.Title()
		if _, err := f.NewSheet(sheet); err != nil {
			serr = fmt.Errorf("new sheet %s: %w", sheet, err)
			return
		}
		if models.Schema[field] == models.KindList {
			setRow(f, sheet, 1, "#", "Item")
			for i, item := range items {
				setRow(f, sheet, i+2, i+1, item)
			}
			_ = f.SetColWidth(sheet, "A", "A", 6)
			_ = f.SetColWidth(sheet, "B", "B", 100)
			return
		}
		setRow(f, sheet, 1, "Field", "Value")
		for i, e := range entries {
			setRow(f, sheet, i+2, e.Key, e.Value)
		}
		_ = f.SetColWidth(sheet, "A", "A", 28)
		_ = f.SetColWidth(sheet, "B", "B", 80)
	})
	if serr != nil {
		return serr
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
