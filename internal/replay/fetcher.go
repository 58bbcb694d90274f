// internal/replay/fetcher.go
package replay

import (
	"context"
	"encoding/json"
	"fmt"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Fetcher retrieves one page of a comment endpoint.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (status int, body string, err error)
}

// Default request headers the comment API requires. The CSRF token is
// added per session.
var defaultHeaders = map[string]string{
	"accept":                    "application/vnd.linkedin.normalized+json+2.1",
	"x-restli-protocol-version": "2.0.0",
	"x-li-lang":                 "en_US",
}

// PageFetcher issues requests from inside the page via fetch, so session
// cookies and origin checks behave exactly as they do for the page's own
// requests.
type PageFetcher struct {
	tabCtx    context.Context
	csrfToken string
	headers   map[string]string
}

// NewPageFetcher creates a fetcher bound to a tab. csrfToken may be empty
// when the session cookie was not found; some endpoints accept that.
func NewPageFetcher(tabCtx context.Context, csrfToken string) *PageFetcher {
	return &PageFetcher{
		tabCtx:    tabCtx,
		csrfToken: csrfToken,
		headers:   defaultHeaders,
	}
}

type pageFetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
	Error  string `json:"error"`
}

// FetchPage requests url from the page context and returns the response
// status and body text.
func (f *PageFetcher) FetchPage(ctx context.Context, url string) (int, string, error) {
	headers := make(map[string]string, len(f.headers)+1)
	for k, v := range f.headers {
		headers[k] = v
	}
	if f.csrfToken != "" {
		headers["csrf-token"] = f.csrfToken
	}
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode headers: %w", err)
	}
	urlJSON, err := json.Marshal(url)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode url: %w", err)
	}

	script := fmt.Sprintf(`(async () => {
		try {
			const resp = await fetch(%s, {
				method: 'GET',
				credentials: 'include',
				headers: %s
			});
			const body = await resp.text();
			return {status: resp.status, body: body, error: ''};
		} catch (e) {
			return {status: 0, body: '', error: String(e)};
		}
	})()`, urlJSON, headerJSON)

	var res pageFetchResult
	err = chromedp.Run(f.tabCtx, chromedp.Evaluate(script, &res,
		func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return 0, "", fmt.Errorf("page fetch failed: %w", err)
	}
	if res.Error != "" {
		return 0, "", fmt.Errorf("page fetch failed: %s", res.Error)
	}
	return res.Status, res.Body, nil
}
