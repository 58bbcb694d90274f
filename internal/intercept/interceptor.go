// internal/intercept/interceptor.go

// Package intercept captures comment API responses passively while the
// host page loads and paginates on its own. It never issues requests; it
// only observes the ones the page already makes.
package intercept

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/valpere/CommentHarvester/internal/utils"
)

// Envelope is one captured response, decoded and ready for parsing.
type Envelope struct {
	URL        string
	Status     int64
	Payload    map[string]interface{}
	Body       string
	CapturedAt time.Time
}

// defaultEndpointPatterns match the comment data endpoints. Substring
// matching: the host varies across frontends, the path segments do not.
var defaultEndpointPatterns = []string{
	"/comments",
	"social-actions",
	"/feed/updates",
	"graphql",
}

// Interceptor listens for network responses on a tab and emits decoded
// comment payloads. Capture is best effort: a body that cannot be fetched
// or decoded is dropped without failing the scan.
type Interceptor struct {
	ctx      context.Context
	patterns []string
	out      chan Envelope
	logger   utils.Logger

	mu             sync.Mutex
	firstIntercept time.Time
	captured       int
	dropped        int
}

// New creates an interceptor for the given tab context. patterns may be
// nil to use the defaults. The tab must already have network events
// enabled.
func New(tabCtx context.Context, patterns []string, logger utils.Logger) *Interceptor {
	if len(patterns) == 0 {
		patterns = defaultEndpointPatterns
	}
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Interceptor{
		ctx:      tabCtx,
		patterns: patterns,
		out:      make(chan Envelope, 256),
		logger:   logger.WithField("component", "intercept"),
	}
}

// Envelopes returns the channel of captured payloads.
func (i *Interceptor) Envelopes() <-chan Envelope {
	return i.out
}

// Start attaches the response listener. Body retrieval runs on a separate
// goroutine per response because CDP commands cannot be issued from inside
// the event callback.
func (i *Interceptor) Start() {
	chromedp.ListenTarget(i.ctx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if !i.MatchesEndpoint(resp.Response.URL) {
			return
		}
		go i.capture(resp.RequestID, resp.Response.URL, resp.Response.Status)
	})
}

// MatchesEndpoint reports whether a URL belongs to a comment data endpoint.
func (i *Interceptor) MatchesEndpoint(rawURL string) bool {
	for _, pattern := range i.patterns {
		if strings.Contains(rawURL, pattern) {
			return true
		}
	}
	return false
}

func (i *Interceptor) capture(requestID network.RequestID, url string, status int64) {
	var body []byte
	err := chromedp.Run(i.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(requestID).Do(ctx)
		return err
	}))
	if err != nil {
		// Bodies for cached or already-evicted responses are simply gone.
		i.logger.Debugf("response body unavailable for %s: %v", url, err)
		return
	}
	i.emit(url, status, string(body))
}

// emit decodes a body and hands it downstream, dropping on a full channel
// rather than stalling the event loop.
func (i *Interceptor) emit(url string, status int64, body string) {
	env, ok := decodeEnvelope(url, status, body)
	if !ok {
		return
	}

	i.mu.Lock()
	if i.firstIntercept.IsZero() {
		i.firstIntercept = env.CapturedAt
	}
	i.mu.Unlock()

	select {
	case i.out <- env:
		i.mu.Lock()
		i.captured++
		i.mu.Unlock()
	default:
		i.mu.Lock()
		i.dropped++
		i.mu.Unlock()
		i.logger.Warnf("intercept buffer full, dropping payload from %s", url)
	}
}

// alwaysParsePattern marks the endpoint whose bodies decode without the
// address pre-check; comment pages carry paging metadata that matters
// even when no address appears in them.
const alwaysParsePattern = "/comments"

// decodeEnvelope parses a captured body. Non-JSON and non-object bodies
// are rejected, as are bodies from secondary endpoints that carry no
// address hint at all.
func decodeEnvelope(url string, status int64, body string) (Envelope, bool) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return Envelope{}, false
	}
	if !strings.Contains(url, alwaysParsePattern) &&
		!strings.Contains(trimmed, "@") && !strings.Contains(trimmed, "mailto:") {
		return Envelope{}, false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		// Some endpoints return a bare array; wrap it so the parser sees
		// a uniform shape.
		var arr []interface{}
		if err2 := json.Unmarshal([]byte(trimmed), &arr); err2 != nil {
			return Envelope{}, false
		}
		payload = map[string]interface{}{"elements": arr}
	}

	return Envelope{
		URL:        url,
		Status:     status,
		Payload:    payload,
		Body:       trimmed,
		CapturedAt: time.Now(),
	}, true
}

// DecodeBody parses a response body fetched outside the network event
// path, such as a replayed page, into an envelope.
func DecodeBody(url, body string) (Envelope, bool) {
	return decodeEnvelope(url, 200, body)
}

// FirstInterceptAt returns when the first payload was captured, or the
// zero time if nothing has been captured.
func (i *Interceptor) FirstInterceptAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.firstIntercept
}

// Captured returns how many payloads were emitted downstream.
func (i *Interceptor) Captured() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.captured
}

// Dropped returns how many payloads were discarded on a full buffer.
func (i *Interceptor) Dropped() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dropped
}
