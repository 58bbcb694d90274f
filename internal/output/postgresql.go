// internal/output/postgresql.go
package output

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/valpere/CommentHarvester/internal/records"
)

// PostgreSQLWriter upserts records into a PostgreSQL table keyed by
// email.
type PostgreSQLWriter struct {
	db    *sql.DB
	table string
}

// NewPostgreSQLWriter connects with connectionString and ensures the
// target table exists.
func NewPostgreSQLWriter(connectionString, table string) (*PostgreSQLWriter, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("postgresql connection string is required")
	}
	if table == "" {
		table = "email_records"
	}

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgresql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgresql: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	w := &PostgreSQLWriter{db: db, table: table}
	if err := w.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *PostgreSQLWriter) ensureSchema() error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		email TEXT PRIMARY KEY,
		author_name TEXT,
		author_title TEXT,
		profile_url TEXT,
		post_url TEXT,
		extracted_at TIMESTAMPTZ,
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
func (w *PostgreSQLWriter) Write(recs []records.Record) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %q
		(email, author_name, author_title, profile_url, post_url, extracted_at, comment_snippet, source_type, seen_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO UPDATE SET
			author_name = EXCLUDED.author_name,
			author_title = EXCLUDED.author_title,
			profile_url = EXCLUDED.profile_url,
			comment_snippet = EXCLUDED.comment_snippet,
			seen_count = EXCLUDED.seen_count`, w.table)

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		_, err := stmt.Exec(
			rec.Email, rec.AuthorName, rec.AuthorTitle, rec.ProfileURL,
			rec.PostURL, rec.ExtractedAt, rec.CommentSnippet,
			string(rec.SourceType), rec.SeenCount,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert %s: %w", rec.Email, err)
		}
	}

	return tx.Commit()
}

// Close closes the database handle.
func (w *PostgreSQLWriter) Close() error {
	if w.db != nil {
		err := w.db.Close()
		w.db = nil
		return err
	}
	return nil
}
