// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/valpere/CommentHarvester/internal/records"
)

// CSVWriter writes records to a CSV file.
type CSVWriter struct {
	filename string
	file     *os.File
	writer   *csv.Writer
}

// NewCSVWriter creates a CSV writer targeting filename.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &CSVWriter{
		filename: filename,
		file:     file,
		writer:   csv.NewWriter(file),
	}, nil
}

// Write writes the header and all records.
func (w *CSVWriter) Write(recs []records.Record) error {
	if err := w.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range recs {
		row := rowValues(rec)
		for i, cell := range row {
			row[i] = neutralizeFormula(cell)
		}
		if err := w.writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the underlying file.
func (w *CSVWriter) Close() error {
	if w.writer != nil {
		w.writer.Flush()
		w.writer = nil
	}
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// neutralizeFormula prefixes cells that spreadsheet applications would
// otherwise evaluate as formulas. Comment text is attacker-controlled.
func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@':
		return "'" + cell
	}
	if strings.HasPrefix(cell, "\t=") || strings.HasPrefix(cell, "\r=") {
		return "'" + cell
	}
	return cell
}
