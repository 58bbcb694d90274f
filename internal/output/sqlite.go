// internal/output/sqlite.go
package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/valpere/CommentHarvester/internal/records"
)

// SQLiteWriter upserts records into a SQLite table keyed by email.
type SQLiteWriter struct {
	db    *sql.DB
	table string
}

// NewSQLiteWriter opens or creates the database at path and ensures the
// target table exists.
func NewSQLiteWriter(path, table string) (*SQLiteWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}
	if table == "" {
		table = "email_records"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	w := &SQLiteWriter{db: db, table: table}
	if err := w.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) ensureSchema() error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		email TEXT PRIMARY KEY,
		author_name TEXT,
		author_title TEXT,
		profile_url TEXT,
		post_url TEXT,
		extracted_at TEXT,
		comment_snippet TEXT,
		source_type TEXT,
		seen_count INTEGER
	)`, w.table)
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.table, err)
	}
	return nil
}

// Write upserts all records in one transaction.
func (w *SQLiteWriter) Write(recs []records.Record) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %q
		(email, author_name, author_title, profile_url, post_url, extracted_at, comment_snippet, source_type, seen_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			author_name = excluded.author_name,
			author_title = excluded.author_title,
			profile_url = excluded.profile_url,
			comment_snippet = excluded.comment_snippet,
			seen_count = excluded.seen_count`, w.table)

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		row := rowValues(rec)
		args := make([]interface{}, len(row))
		for i, v := range row {
			args[i] = v
		}
		args[len(args)-1] = rec.SeenCount
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert %s: %w", rec.Email, err)
		}
	}

	return tx.Commit()
}

// Close closes the database handle.
func (w *SQLiteWriter) Close() error {
	if w.db != nil {
		err := w.db.Close()
		w.db = nil
		return err
	}
	return nil
}
