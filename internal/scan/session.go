// internal/scan/session.go
package scan

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/valpere/CommentHarvester/internal/payload"
	"github.com/valpere/CommentHarvester/internal/records"
)

// Session owns all per-scan state. A new session is created for every
// scan and discarded afterwards; nothing carries over between scans.
type Session struct {
	Token     string
	PostURL   string
	StartedAt time.Time

	Store  *records.Store
	Dedupe *payload.DedupeCache

	mu              sync.Mutex
	state           State
	deadline        time.Time
	maxDeadline     time.Time
	extendOnGain    time.Duration
	commentsScanned int
	declaredTotal   int
	intercepted     int
	replayed        int
	passes          int
	errorMessage    string
}

// NewSession creates a session for postURL with the absolute-timeout
// policy: base now+base, extendable by extend per progress event, never
// past now+max.
func NewSession(postURL string, base, extend, max time.Duration) *Session {
	now := time.Now()
	return &Session{
		Token:        newToken(),
		PostURL:      postURL,
		StartedAt:    now,
		Store:        records.NewStore(),
		Dedupe:       payload.NewDedupeCache(0),
		state:        StateIdle,
		deadline:     now.Add(base),
		maxDeadline:  now.Add(max),
		extendOnGain: extend,
	}
}

// newToken returns a random session token. Callers compare it on every
// command addressed to a running scan.
func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read only fails when the OS entropy source is broken.
		return hex.EncodeToString([]byte(time.Now().String()))[:32]
	}
	return hex.EncodeToString(buf)
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session. Terminal states stick: a late
// transition cannot resurrect a stopped scan.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = state
}

// SetError records the failure message alongside the terminal state.
func (s *Session) SetError(state State, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = state
	s.errorMessage = message
}

// ErrorMessage returns the recorded failure message, if any.
func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMessage
}

// Deadline returns the current absolute deadline.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline
}

// Expired reports whether the absolute deadline has passed.
func (s *Session) Expired() bool {
	return time.Now().After(s.Deadline())
}

// RecordProgress extends the deadline, capped at the maximum. Called
// whenever the scan gains new records or scans new comments.
func (s *Session) RecordProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	extended := time.Now().Add(s.extendOnGain)
	if extended.Before(s.deadline) {
		return
	}
	if extended.After(s.maxDeadline) {
		extended = s.maxDeadline
	}
	s.deadline = extended
}

// Counter updates.

func (s *Session) AddCommentsScanned(n int) {
	s.mu.Lock()
	s.commentsScanned += n
	s.mu.Unlock()
}

func (s *Session) SetDeclaredTotal(n int) {
	s.mu.Lock()
	if n > s.declaredTotal {
		s.declaredTotal = n
	}
	s.mu.Unlock()
}

func (s *Session) AddIntercepted(n int) {
	s.mu.Lock()
	s.intercepted += n
	s.mu.Unlock()
}

func (s *Session) AddReplayed(n int) {
	s.mu.Lock()
	s.replayed += n
	s.mu.Unlock()
}

func (s *Session) IncPasses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes++
	return s.passes
}

// Snapshot captures the session counters for progress events and results.
type Snapshot struct {
	State           State
	CommentsScanned int
	DeclaredTotal   int
	Intercepted     int
	Replayed        int
	Passes          int
	EmailsFound     int
}

// Snapshot returns a consistent view of the counters.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:           s.state,
		CommentsScanned: s.commentsScanned,
		DeclaredTotal:   s.declaredTotal,
		Intercepted:     s.intercepted,
		Replayed:        s.replayed,
		Passes:          s.passes,
	}
	s.mu.Unlock()
	snap.EmailsFound = s.Store.Len()
	return snap
}

// Coverage returns the fraction of the declared total that was scanned
// through network payloads. Zero when no total is known or nothing was
// scanned; callers treat that as insufficient coverage.
func (s *Session) Coverage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.declaredTotal <= 0 || s.commentsScanned <= 0 {
		return 0
	}
	cov := float64(s.commentsScanned) / float64(s.declaredTotal)
	if cov > 1 {
		cov = 1
	}
	return cov
}
