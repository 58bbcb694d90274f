// internal/replay/aimd.go

// Package replay actively paginates comment endpoints that the host page
// already revealed, fetching the remaining pages the page itself would
// never load.
package replay

import "sync"

// AIMD tuning defaults.
const (
	DefaultInitialConcurrency = 6
	DefaultMinConcurrency     = 2
	DefaultMaxConcurrency     = 10

	// Concurrency grows one slot per this many consecutive clean batches.
	batchesPerIncrease = 2
)

// AIMDController adjusts batch concurrency: additive increase on clean
// batches, multiplicative decrease when a batch hits rate limiting. All
// arithmetic is in whole slots.
type AIMDController struct {
	mu          sync.Mutex
	concurrency int
	min         int
	max         int
	cleanStreak int
}

// NewAIMDController creates a controller with the given bounds. Zero
// values fall back to the defaults.
func NewAIMDController(initial, min, max int) *AIMDController {
	if initial <= 0 {
		initial = DefaultInitialConcurrency
	}
	if min <= 0 {
		min = DefaultMinConcurrency
	}
	if max <= 0 {
		max = DefaultMaxConcurrency
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}
	return &AIMDController{concurrency: initial, min: min, max: max}
}

// Concurrency returns the current batch size.
func (a *AIMDController) Concurrency() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.concurrency
}

// OnCleanBatch records a batch that completed without rate limiting.
func (a *AIMDController) OnCleanBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleanStreak++
	if a.cleanStreak >= batchesPerIncrease {
		a.cleanStreak = 0
		if a.concurrency < a.max {
			a.concurrency++
		}
	}
}

// OnRateLimitedBatch halves concurrency and resets the clean streak.
func (a *AIMDController) OnRateLimitedBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleanStreak = 0
	a.concurrency /= 2
	if a.concurrency < a.min {
		a.concurrency = a.min
	}
}
