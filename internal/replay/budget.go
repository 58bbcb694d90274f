// internal/replay/budget.go
package replay

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Request budget defaults, per rolling window.
const (
	DefaultTopLevelRequestsPerWindow = 15
	DefaultReplyRequestsPerWindow    = 8
	DefaultBudgetWindow              = 10 * time.Second
)

// RequestCategory selects which budget a request draws from. Reply pages
// get a tighter budget than top-level pages because reply endpoints rate
// limit sooner.
type RequestCategory int

const (
	CategoryTopLevel RequestCategory = iota
	CategoryReply
)

// Budget enforces a per-category request ceiling over a rolling window.
type Budget struct {
	topLevel *rate.Limiter
	reply    *rate.Limiter
}

// NewBudget creates a budget allowing topLevel and reply requests per
// window. Zero values fall back to the defaults.
func NewBudget(topLevel, reply int, window time.Duration) *Budget {
	if topLevel <= 0 {
		topLevel = DefaultTopLevelRequestsPerWindow
	}
	if reply <= 0 {
		reply = DefaultReplyRequestsPerWindow
	}
	if window <= 0 {
		window = DefaultBudgetWindow
	}
	return &Budget{
		topLevel: rate.NewLimiter(rate.Every(window/time.Duration(topLevel)), topLevel),
		reply:    rate.NewLimiter(rate.Every(window/time.Duration(reply)), reply),
	}
}

// Wait blocks until the category has a token or the context ends.
func (b *Budget) Wait(ctx context.Context, category RequestCategory) error {
	if category == CategoryReply {
		return b.reply.Wait(ctx)
	}
	return b.topLevel.Wait(ctx)
}

// Allow reports whether a token is available right now without consuming
// wait time. Used by tests and diagnostics.
func (b *Budget) Allow(category RequestCategory) bool {
	if category == CategoryReply {
		return b.reply.Allow()
	}
	return b.topLevel.Allow()
}
