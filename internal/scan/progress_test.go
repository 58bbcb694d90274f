// internal/scan/progress_test.go
package scan

import (
	"testing"
	"time"

	"github.com/valpere/CommentHarvester/internal/records"
)

func TestProgressEmitter_Throttles(t *testing.T) {
	var events []Progress
	e := newProgressEmitter(func(p Progress) { events = append(events, p) }, time.Hour)

	e.Emit(Snapshot{State: StatePrimaryCollection}, "", true)
	e.Emit(Snapshot{State: StatePrimaryCollection}, "", false)
	e.Emit(Snapshot{State: StatePrimaryCollection}, "", false)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (throttled)", len(events))
	}
}

func TestProgressEmitter_ForceBypassesThrottle(t *testing.T) {
	var events []Progress
	e := newProgressEmitter(func(p Progress) { events = append(events, p) }, time.Hour)

	e.Emit(Snapshot{}, "", true)
	e.Emit(Snapshot{State: StateComplete}, "done", true)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Message != "done" {
		t.Errorf("message = %q, want %q", events[1].Message, "done")
	}
}

func TestProgressEmitter_PendingRecordsSurviveThrottle(t *testing.T) {
	var events []Progress
	e := newProgressEmitter(func(p Progress) { events = append(events, p) }, time.Hour)

	e.Emit(Snapshot{}, "", true)

	e.AddRecords([]records.Record{{Email: "a@b.co"}})
	e.Emit(Snapshot{}, "", false) // suppressed, records stay queued
	e.AddRecords([]records.Record{{Email: "c@d.io"}})
	e.Emit(Snapshot{}, "", true)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if len(events[1].NewRecords) != 2 {
		t.Errorf("second event carried %d records, want 2", len(events[1].NewRecords))
	}
}

func TestProgressEmitter_RecordsDeliveredOnce(t *testing.T) {
	var events []Progress
	e := newProgressEmitter(func(p Progress) { events = append(events, p) }, 0)

	e.AddRecords([]records.Record{{Email: "a@b.co"}})
	e.Emit(Snapshot{}, "", true)
	e.Emit(Snapshot{}, "", true)

	if len(events[0].NewRecords) != 1 {
		t.Errorf("first event carried %d records, want 1", len(events[0].NewRecords))
	}
	if len(events[1].NewRecords) != 0 {
		t.Errorf("second event carried %d records, want 0", len(events[1].NewRecords))
	}
}

func TestProgressEmitter_NilSink(t *testing.T) {
	e := newProgressEmitter(nil, time.Second)
	e.AddRecords([]records.Record{{Email: "a@b.co"}})
	e.Emit(Snapshot{}, "", true) // must not panic
}

func TestProgressEmitter_NilSinkQueuesNothing(t *testing.T) {
	e := newProgressEmitter(nil, time.Second)
	for i := 0; i < 100; i++ {
		e.AddRecords([]records.Record{{Email: "a@b.co"}})
	}
	if len(e.pending) != 0 {
		t.Errorf("pending holds %d records, want 0 without a sink", len(e.pending))
	}
}
