// internal/output/json.go
package output

import (
	"encoding/json"
	"os"
	"time"

	"github.com/valpere/CommentHarvester/internal/records"
)

// JSONWriter writes records as a single JSON document.
type JSONWriter struct {
	filename string
	file     *os.File
}

// jsonDocument is the exported file layout.
type jsonDocument struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Records     []records.Record `json:"records"`
}

// NewJSONWriter creates a JSON writer targeting filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &JSONWriter{
		filename: filename,
		file:     file,
	}, nil
}

// Write writes all records wrapped in a document with metadata.
func (w *JSONWriter) Write(recs []records.Record) error {
	doc := jsonDocument{
		GeneratedAt: time.Now().UTC(),
		Count:       len(recs),
		Records:     recs,
	}

	encoder := json.NewEncoder(w.file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// Close closes the underlying file.
func (w *JSONWriter) Close() error {
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
