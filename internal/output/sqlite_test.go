// internal/output/sqlite_test.go
package output

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestSQLiteWriter_UpsertByEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.db")
	w, err := NewSQLiteWriter(path, "email_records")
	if err != nil {
		t.Fatalf("NewSQLiteWriter() error = %v", err)
	}
	if err := w.Write(sampleRecords()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// A second write with a higher seen count must update, not duplicate.
	updated := sampleRecords()
	updated[0].SeenCount = 7
	if err := w.Write(updated); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM email_records").Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}

	var seen int
	err = db.QueryRow("SELECT seen_count FROM email_records WHERE email = ?", "jane.doe@acme.io").Scan(&seen)
	if err != nil {
		t.Fatalf("seen_count query: %v", err)
	}
	if seen != 7 {
		t.Errorf("seen_count = %d, want 7 after upsert", seen)
	}
}

func TestNewSQLiteWriter_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteWriter("", "t"); err == nil {
		t.Error("empty path should fail")
	}
}
