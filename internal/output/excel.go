// internal/output/excel.go
package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/CommentHarvester/internal/records"
)

// MaxExcelCellLength is the hard cell size limit imposed by the format.
const MaxExcelCellLength = 32767

// ExcelWriter writes records to an xlsx workbook with a styled header
// row and an auto-filter over the data range.
type ExcelWriter struct {
	filename  string
	sheetName string
	file      *excelize.File
}

// NewExcelWriter creates an Excel writer targeting filename.
func NewExcelWriter(filename string) (*ExcelWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("excel output path is required")
	}
	return &ExcelWriter{
		filename:  filename,
		sheetName: "Emails",
		file:      excelize.NewFile(),
	}, nil
}

// Write writes the header and all records, then saves the workbook.
func (w *ExcelWriter) Write(recs []records.Record) error {
	sheet := w.sheetName
	index, err := w.file.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	w.file.SetActiveSheet(index)
	if defaultSheet := w.file.GetSheetName(0); defaultSheet != sheet {
		w.file.DeleteSheet(defaultSheet)
	}

	headerStyle, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := w.file.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, rec := range recs {
		for col, value := range rowValues(rec) {
			if len(value) > MaxExcelCellLength {
				value = value[:MaxExcelCellLength]
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := w.file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}
	}

	if len(recs) > 0 {
		lastCell, err := excelize.CoordinatesToCellName(len(columns), len(recs)+1)
		if err == nil {
			w.file.AutoFilter(sheet, "A1:"+lastCell, nil)
		}
	}
	// Wide enough for emails and profile URLs.
	w.file.SetColWidth(sheet, "A", "A", 32)
	w.file.SetColWidth(sheet, "B", "E", 28)
	w.file.SetColWidth(sheet, "G", "G", 48)

	return w.file.SaveAs(w.filename)
}

// Close releases the workbook resources.
func (w *ExcelWriter) Close() error {
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
