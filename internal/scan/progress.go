// internal/scan/progress.go
package scan

import (
	"sync"
	"time"

	"github.com/valpere/CommentHarvester/internal/records"
)

// progressEmitter throttles progress events and accumulates record deltas
// so a slow consumer still sees every new record exactly once.
type progressEmitter struct {
	mu       sync.Mutex
	sink     ProgressSink
	minGap   time.Duration
	lastEmit time.Time
	pending  []records.Record
}

func newProgressEmitter(sink ProgressSink, minGap time.Duration) *progressEmitter {
	return &progressEmitter{sink: sink, minGap: minGap}
}

// AddRecords queues newly merged records for the next emitted event.
// Without a sink nothing will ever drain the queue, so nothing is kept.
func (e *progressEmitter) AddRecords(recs []records.Record) {
	if e.sink == nil || len(recs) == 0 {
		return
	}
	e.mu.Lock()
	e.pending = append(e.pending, recs...)
	e.mu.Unlock()
}

// Emit sends a progress event unless one was sent too recently. force
// bypasses the throttle; terminal events always force.
func (e *progressEmitter) Emit(snap Snapshot, message string, force bool) {
	if e.sink == nil {
		return
	}
	e.mu.Lock()
	if !force && time.Since(e.lastEmit) < e.minGap {
		e.mu.Unlock()
		return
	}
	e.lastEmit = time.Now()
	delta := e.pending
	e.pending = nil
	e.mu.Unlock()

	e.sink(Progress{
		State:           snap.State,
		EmailsFound:     snap.EmailsFound,
		CommentsScanned: snap.CommentsScanned,
		DeclaredTotal:   snap.DeclaredTotal,
		Passes:          snap.Passes,
		Message:         message,
		NewRecords:      delta,
	})
}
