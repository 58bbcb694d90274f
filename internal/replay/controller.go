// internal/replay/controller.go
package replay

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valpere/CommentHarvester/internal/payload"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// Replay tuning defaults.
const (
	DefaultBatchDelay             = 150 * time.Millisecond
	DefaultRateLimitBackoff       = 3 * time.Second
	DefaultRateLimitPause         = 10 * time.Second
	DefaultPauseAfterHits         = 3
	DefaultAbortAfterConsecutive  = 5
	DefaultMaxConcurrentReplyRuns = 3
	DefaultMinReplyTotalForReplay = 10
	DefaultSingleRetryAfter       = 3 * time.Second
)

// Config tunes the replay engine. Zero values fall back to defaults.
type Config struct {
	InitialConcurrency int
	MinConcurrency     int
	MaxConcurrency     int

	BatchDelay       time.Duration
	RateLimitBackoff time.Duration
	RateLimitPause   time.Duration
	// After this many total rate-limit hits, backoff escalates to the
	// longer pause.
	PauseAfterHits int
	// This many consecutive rate-limited batches abort the replay.
	AbortAfterConsecutive int

	MaxConcurrentReplyRuns int
	MinReplyTotalForReplay int

	TopLevelBudget int
	ReplyBudget    int
	BudgetWindow   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchDelay <= 0 {
		c.BatchDelay = DefaultBatchDelay
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if c.RateLimitPause <= 0 {
		c.RateLimitPause = DefaultRateLimitPause
	}
	if c.PauseAfterHits <= 0 {
		c.PauseAfterHits = DefaultPauseAfterHits
	}
	if c.AbortAfterConsecutive <= 0 {
		c.AbortAfterConsecutive = DefaultAbortAfterConsecutive
	}
	if c.MaxConcurrentReplyRuns <= 0 {
		c.MaxConcurrentReplyRuns = DefaultMaxConcurrentReplyRuns
	}
	if c.MinReplyTotalForReplay <= 0 {
		c.MinReplyTotalForReplay = DefaultMinReplyTotalForReplay
	}
	return c
}

// PageHandler receives each successfully fetched page body, on the same
// path intercepted payloads take.
type PageHandler func(url string, body string)

// Stats reports replay progress counters.
type Stats struct {
	PagesFetched    int
	PagesFailed     int
	RateLimitHits   int
	RepliesReplayed int
}

// Controller fans pagination requests out in AIMD-sized batches, keeping
// inside the request budget and backing off when the endpoint pushes back.
type Controller struct {
	cfg     Config
	fetcher Fetcher
	aimd    *AIMDController
	budget  *Budget
	handler PageHandler
	logger  utils.Logger

	replySem chan struct{}
	replyWG  sync.WaitGroup

	mu                   sync.Mutex
	replayed             map[string]bool
	rateLimitHits        int
	consecutiveRateLimit int
	stats                Stats
	aborted              bool
}

// NewController creates a replay controller delivering pages to handler.
func NewController(cfg Config, fetcher Fetcher, handler PageHandler, logger utils.Logger) *Controller {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Controller{
		cfg:      cfg,
		fetcher:  fetcher,
		aimd:     NewAIMDController(cfg.InitialConcurrency, cfg.MinConcurrency, cfg.MaxConcurrency),
		budget:   NewBudget(cfg.TopLevelBudget, cfg.ReplyBudget, cfg.BudgetWindow),
		handler:  handler,
		logger:   logger.WithField("component", "replay"),
		replySem: make(chan struct{}, cfg.MaxConcurrentReplyRuns),
		replayed: make(map[string]bool),
	}
}

// Stats returns a snapshot of the progress counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Aborted reports whether a replay run hit the account-limited abort.
func (c *Controller) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// ReplayTopLevel fetches every page of templateURL beyond the ones the
// page already loaded. Each endpoint identity is replayed at most once
// per scan.
func (c *Controller) ReplayTopLevel(ctx context.Context, templateURL string, paging *payload.Paging) error {
	return c.replayPages(ctx, templateURL, paging, CategoryTopLevel)
}

// EnqueueReplyReplay schedules pagination of one comment's reply thread.
// Threads below the size threshold are skipped: the page loads small
// threads fully on its own when expanded. Returns true when a run was
// scheduled.
func (c *Controller) EnqueueReplyReplay(ctx context.Context, parentID, templateURL string, paging *payload.Paging) bool {
	if paging == nil || paging.Total < c.cfg.MinReplyTotalForReplay {
		return false
	}
	key := "reply|" + parentID
	c.mu.Lock()
	if c.replayed[key] || c.aborted {
		c.mu.Unlock()
		return false
	}
	c.replayed[key] = true
	c.stats.RepliesReplayed++
	c.mu.Unlock()

	c.replyWG.Add(1)
	go func() {
		defer c.replyWG.Done()
		select {
		case c.replySem <- struct{}{}:
			defer func() { <-c.replySem }()
		case <-ctx.Done():
			return
		}
		if err := c.replayPages(ctx, templateURL, paging, CategoryReply); err != nil {
			c.logger.Warnf("reply replay for %s ended early: %v", parentID, err)
		}
	}()
	return true
}

// WaitForReplies blocks until all scheduled reply runs finish.
func (c *Controller) WaitForReplies() {
	c.replyWG.Wait()
}

func (c *Controller) replayPages(ctx context.Context, templateURL string, paging *payload.Paging, category RequestCategory) error {
	if paging == nil || paging.Count <= 0 || paging.Total <= paging.Count {
		return nil
	}

	identity := endpointIdentity(templateURL)
	c.mu.Lock()
	if c.replayed[identity] {
		c.mu.Unlock()
		return nil
	}
	c.replayed[identity] = true
	c.mu.Unlock()

	var starts []int
	for start := paging.Count; start < paging.Total; start += paging.Count {
		if start == paging.Start {
			continue
		}
		starts = append(starts, start)
	}
	c.logger.Infof("replaying %d pages of %s", len(starts), identity)

	for len(starts) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		size := c.aimd.Concurrency()
		if size > len(starts) {
			size = len(starts)
		}
		batch := starts[:size]
		starts = starts[size:]

		rateLimited, err := c.runBatch(ctx, templateURL, paging.Count, batch, category)
		if err != nil {
			return err
		}

		if rateLimited {
			if abortErr := c.recordRateLimitedBatch(ctx); abortErr != nil {
				return abortErr
			}
		} else {
			c.mu.Lock()
			c.consecutiveRateLimit = 0
			c.mu.Unlock()
			c.aimd.OnCleanBatch()
		}

		if len(starts) > 0 {
			if err := sleepCtx(ctx, c.cfg.BatchDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// runBatch fetches one batch concurrently. Returns whether any page in the
// batch was rate limited after its retry.
func (c *Controller) runBatch(ctx context.Context, templateURL string, count int, starts []int, category RequestCategory) (bool, error) {
	var wg sync.WaitGroup
	results := make([]int, len(starts)) // final status per page

	for idx, start := range starts {
		wg.Add(1)
		go func(idx, start int) {
			defer wg.Done()
			pageURL := withPaging(templateURL, start, count)
			status, body, err := c.fetchWithRetry(ctx, pageURL, category)
			results[idx] = status
			if err != nil || isRateLimited(status) || status >= 400 {
				c.mu.Lock()
				c.stats.PagesFailed++
				c.mu.Unlock()
				if err != nil {
					c.logger.Debugf("page fetch failed for start=%d: %v", start, err)
				}
				return
			}
			c.mu.Lock()
			c.stats.PagesFetched++
			c.mu.Unlock()
			c.handler(pageURL, body)
		}(idx, start)
	}
	wg.Wait()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	for _, status := range results {
		if isRateLimited(status) {
			return true, nil
		}
	}
	return false, nil
}

// fetchWithRetry draws a budget token, fetches, and retries exactly once
// on a rate-limit status.
func (c *Controller) fetchWithRetry(ctx context.Context, pageURL string, category RequestCategory) (int, string, error) {
	if err := c.budget.Wait(ctx, category); err != nil {
		return 0, "", err
	}
	status, body, err := c.fetcher.FetchPage(ctx, pageURL)
	if err != nil || !isRateLimited(status) {
		return status, body, err
	}

	retryAfter := c.cfg.RateLimitBackoff
	if retryAfter <= 0 {
		retryAfter = DefaultSingleRetryAfter
	}
	if err := sleepCtx(ctx, retryAfter); err != nil {
		return status, body, err
	}
	if err := c.budget.Wait(ctx, category); err != nil {
		return status, body, err
	}
	return c.fetcher.FetchPage(ctx, pageURL)
}

// recordRateLimitedBatch applies the escalation ladder: shrink concurrency,
// back off, and abort when the endpoint keeps refusing.
func (c *Controller) recordRateLimitedBatch(ctx context.Context) error {
	c.aimd.OnRateLimitedBatch()

	c.mu.Lock()
	c.rateLimitHits++
	c.consecutiveRateLimit++
	hits := c.rateLimitHits
	consecutive := c.consecutiveRateLimit
	c.stats.RateLimitHits = hits
	c.mu.Unlock()

	if consecutive >= c.cfg.AbortAfterConsecutive {
		c.mu.Lock()
		c.aborted = true
		c.mu.Unlock()
		return utils.NewError(utils.ErrCodeAccountLimited,
			fmt.Sprintf("replay aborted after %d consecutive rate-limited batches", consecutive))
	}

	delay := c.cfg.RateLimitBackoff
	if hits >= c.cfg.PauseAfterHits {
		delay = c.cfg.RateLimitPause
	}
	c.logger.Warnf("rate limited (hit %d, consecutive %d), pausing %s", hits, consecutive, delay)
	return sleepCtx(ctx, delay)
}

// isRateLimited covers the standard status plus the provider-specific 999.
func isRateLimited(status int) bool {
	return status == 429 || status == 999
}

// endpointIdentity strips the query so all pages of one endpoint share a
// replay key.
func endpointIdentity(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// withPaging rewrites the start and count query parameters of a template
// URL.
func withPaging(templateURL string, start, count int) string {
	u, err := url.Parse(templateURL)
	if err != nil {
		return templateURL
	}
	q := u.Query()
	q.Set("start", strconv.Itoa(start))
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()
	return u.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
