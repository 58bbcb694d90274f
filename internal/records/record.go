// internal/records/record.go
package records

import "time"

// SourceType identifies which collection path produced a record.
type SourceType string

const (
	SourceComment  SourceType = "comment"
	SourceReply    SourceType = "reply"
	SourceFallback SourceType = "fallback"
)

// PlaceholderAuthor is stored when no real author name could be resolved.
// Merge treats it the same as an empty name: any real name replaces it,
// and it never replaces a real name.
const PlaceholderAuthor = "Unknown User"

// MaxSnippetLength bounds the stored comment text sample.
const MaxSnippetLength = 100

// Record is one harvested email with its author and source metadata.
// The Email field is the store key: lowercase, trimmed, validated.
type Record struct {
	Email          string     `json:"email"`
	AuthorName     string     `json:"author_name"`
	AuthorTitle    string     `json:"author_title"`
	ProfileURL     string     `json:"profile_url"`
	PostURL        string     `json:"post_url"`
	ExtractedAt    time.Time  `json:"extracted_at"`
	CommentSnippet string     `json:"comment_snippet"`
	SourceType     SourceType `json:"source_type"`
	SeenCount      int        `json:"seen_count"`
}

// HasRealAuthor reports whether the record carries a resolved author name
// rather than the placeholder.
func (r *Record) HasRealAuthor() bool {
	return r.AuthorName != "" && r.AuthorName != PlaceholderAuthor && r.AuthorName != "Unknown"
}
