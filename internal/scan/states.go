// internal/scan/states.go

// Package scan owns the lifecycle of one harvest: it coordinates passive
// capture, active DOM pagination, endpoint replay, and the fallback
// scanner, and decides when the thread is exhausted.
package scan

import (
	"github.com/valpere/CommentHarvester/internal/records"
)

// State is the scan lifecycle phase.
type State string

const (
	StateIdle              State = "idle"
	StateInitializing      State = "initializing"
	StateSortVerification  State = "sort_verification"
	StatePrimaryCollection State = "primary_collection"
	StateReplyExpansion    State = "reply_expansion"
	StateCoverageDecision  State = "coverage_decision"
	StateFinalizing        State = "finalizing"
	StateComplete          State = "complete"
	StateStopped           State = "stopped"
	StateError             State = "error"
	StateTimedOut          State = "timed_out"
)

// Terminal reports whether the state ends the scan.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateStopped, StateError, StateTimedOut:
		return true
	}
	return false
}

// Progress is one progress event. NewRecords carries only the records
// added since the previous event.
type Progress struct {
	State           State            `json:"state"`
	EmailsFound     int              `json:"emails_found"`
	CommentsScanned int              `json:"comments_scanned"`
	DeclaredTotal   int              `json:"declared_total"`
	Passes          int              `json:"passes"`
	Message         string           `json:"message,omitempty"`
	NewRecords      []records.Record `json:"new_records,omitempty"`
}

// ProgressSink receives progress events.
type ProgressSink func(Progress)

// Result is the outcome of one scan.
type Result struct {
	State            State            `json:"state"`
	Records          []records.Record `json:"records"`
	CommentsScanned  int              `json:"comments_scanned"`
	DeclaredTotal    int              `json:"declared_total"`
	Coverage         float64          `json:"coverage"`
	InterceptedPages int              `json:"intercepted_pages"`
	ReplayedPages    int              `json:"replayed_pages"`
	Passes           int              `json:"passes"`
	ErrorMessage     string           `json:"error_message,omitempty"`
}
