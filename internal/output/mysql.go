// internal/output/mysql.go
package output

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/valpere/CommentHarvester/internal/records"
)

// MySQLWriter upserts records into a MySQL table keyed by email.
type MySQLWriter struct {
	db    *sql.DB
	table string
}

// NewMySQLWriter connects with dsn and ensures the target table exists.
func NewMySQLWriter(dsn, table string) (*MySQLWriter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql connection string is required")
	}
	if table == "" {
		table = "email_records"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	w := &MySQLWriter{db: db, table: table}
	if err := w.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *MySQLWriter) ensureSchema() error {
	// VARCHAR key length keeps the primary index under the InnoDB limit.
	schema := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"email VARCHAR(320) PRIMARY KEY,"+
		"author_name TEXT,"+
		"author_title TEXT,"+
		"profile_url TEXT,"+
		"post_url TEXT,"+
		"extracted_at DATETIME,"+
		"comment_snippet TEXT,"+
		"source_type VARCHAR(16),"+
		"seen_count INT"+
		")", w.table)
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table %s: %w", w.table, err)
	}
	return nil
}

// Write upserts all records in one transaction.
func (w *MySQLWriter) Write(recs []records.Record) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO `%s` "+
		"(email, author_name, author_title, profile_url, post_url, extracted_at, comment_snippet, source_type, seen_count) "+
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) "+
		"ON DUPLICATE KEY UPDATE "+
		"author_name = VALUES(author_name), "+
		"author_title = VALUES(author_title), "+
		"profile_url = VALUES(profile_url), "+
		"comment_snippet = VALUES(comment_snippet), "+
		"seen_count = VALUES(seen_count)", w.table)

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
func (w *MySQLWriter) Close() error {
	if w.db != nil {
		err := w.db.Close()
		w.db = nil
		return err
	}
	return nil
}
