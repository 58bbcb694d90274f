// internal/output/types.go

// Package output exports harvested email records to files and databases.
package output

import (
	"strconv"
	"time"

	"github.com/valpere/CommentHarvester/internal/records"
)

// Format identifies an export format.
type Format string

const (
	FormatCSV        Format = "csv"
	FormatJSON       Format = "json"
	FormatExcel      Format = "excel"
	FormatSQLite     Format = "sqlite"
	FormatPostgreSQL Format = "postgresql"
	FormatMySQL      Format = "mysql"
	FormatMongoDB    Format = "mongodb"
)

// Writer exports a batch of records to one destination. Writers are
// single-use: Write once, then Close.
type Writer interface {
	Write(recs []records.Record) error
	Close() error
}

// columns is the export column order shared by the tabular writers.
var columns = []string{
	"email",
	"author_name",
	"author_title",
	"profile_url",
	"post_url",
	"extracted_at",
	"comment_snippet",
	"source_type",
	"seen_count",
}

// rowValues renders one record in column order.
func rowValues(rec records.Record) []string {
	return []string{
		rec.Email,
		rec.AuthorName,
		rec.AuthorTitle,
		rec.ProfileURL,
		rec.PostURL,
		rec.ExtractedAt.Format(time.RFC3339),
		rec.CommentSnippet,
		string(rec.SourceType),
		strconv.Itoa(rec.SeenCount),
	}
}
