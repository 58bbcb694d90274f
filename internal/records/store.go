// internal/records/store.go
package records

import (
	"strings"
	"sync"

	"github.com/valpere/CommentHarvester/internal/emails"
)

// MergeOutcome tells the caller what a Merge call did, so scan counters can
// be attributed without the store owning them.
type MergeOutcome int

const (
	MergeRejected MergeOutcome = iota // key failed validation, nothing stored
	MergeInserted                     // first observation of this email
	MergeDuplicate                    // existing record updated in place
)

// Store owns all EmailRecords for the duration of one scan. It is created
// fresh per scan and discarded at teardown; nothing in it survives between
// sessions.
type Store struct {
	mu      sync.Mutex
	byEmail map[string]*Record
	order   []string // insertion order, for stable result listing
}

// NewStore creates an empty record store.
func NewStore() *Store {
	return &Store{
		byEmail: make(map[string]*Record),
	}
}

// Merge inserts or updates the record keyed by its normalized email.
// Invalid keys are rejected as a no-op. On repeat observation the seen
// count is incremented and only currently-empty metadata fields are filled;
// a resolved author name is never replaced by the placeholder, and source
// type only upgrades fallback -> comment/reply, never backward.
func (s *Store) Merge(rec Record) MergeOutcome {
	key := strings.ToLower(strings.TrimSpace(rec.Email))
	if key == "" || !strings.Contains(key, "@") || emails.IsLikelyInvalid(key) {
		return MergeRejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byEmail[key]
	if !ok {
		rec.Email = key
		rec.SeenCount = 1
		if len(rec.CommentSnippet) > MaxSnippetLength {
			rec.CommentSnippet = rec.CommentSnippet[:MaxSnippetLength]
		}
		s.byEmail[key] = &rec
		s.order = append(s.order, key)
		return MergeInserted
	}

	existing.SeenCount++
	if !existing.HasRealAuthor() && rec.HasRealAuthor() {
		existing.AuthorName = rec.AuthorName
	}
	if existing.AuthorTitle == "" {
		existing.AuthorTitle = rec.AuthorTitle
	}
	if existing.ProfileURL == "" {
		existing.ProfileURL = rec.ProfileURL
	}
	if existing.CommentSnippet == "" {
		existing.CommentSnippet = rec.CommentSnippet
		if len(existing.CommentSnippet) > MaxSnippetLength {
			existing.CommentSnippet = existing.CommentSnippet[:MaxSnippetLength]
		}
	}
	if existing.SourceType == SourceFallback &&
		(rec.SourceType == SourceComment || rec.SourceType == SourceReply) {
		existing.SourceType = rec.SourceType
	}
	return MergeDuplicate
}

// Get returns a copy of the record for email, if present.
func (s *Store) Get(email string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

// All returns copies of every stored record in insertion order.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		if rec, ok := s.byEmail[key]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// ValidResults returns records whose email still passes validation. When
// filtering would discard everything while the store is non-empty, the
// unfiltered set is returned instead: showing something beats showing
// nothing if validation itself is miscalibrated.
func (s *Store) ValidResults() []Record {
	all := s.All()
	valid := make([]Record, 0, len(all))
	for _, rec := range all {
		if rec.Email != "" && !emails.IsLikelyInvalid(rec.Email) {
			valid = append(valid, rec)
		}
	}
	if len(valid) == 0 && len(all) > 0 {
		return all
	}
	return valid
}

// Enrich applies fn to the stored record for email, in place. Used by the
// DOM enrichment pass to fill missing author fields without going through
// merge accounting.
func (s *Store) Enrich(email string, fn func(*Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// PurgeFragments removes keys that lack an @ entirely. Terminal defensive
// pass before results are reported; valid emails are never dropped here.
func (s *Store) PurgeFragments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	kept := s.order[:0]
	for _, key := range s.order {
		if strings.Contains(key, "@") {
			kept = append(kept, key)
			continue
		}
		delete(s.byEmail, key)
		removed++
	}
	s.order = kept
	return removed
}
