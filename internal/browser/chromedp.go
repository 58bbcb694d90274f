// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// ChromeClient drives a single Chrome tab. The harvester runs one scan at
// a time, so one client owns one tab for the life of a scan.
type ChromeClient struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      *Config
	stats       *Stats

	navMu             sync.RWMutex
	navigationSuccess bool
}

// NewChromeClient launches Chrome and opens a tab.
func NewChromeClient(config *Config) (*ChromeClient, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
		stats:       &Stats{},
	}

	if err := client.initialize(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	return client, nil
}

// initialize sets the viewport and enables network instrumentation so
// response events flow before the first navigation.
func (c *ChromeClient) initialize() error {
	return chromedp.Run(c.ctx,
		chromedp.EmulateViewport(int64(c.config.ViewportWidth), int64(c.config.ViewportHeight)),
		network.Enable(),
	)
}

// Context returns the tab context. Event listeners and CDP commands issued
// by other packages attach here.
func (c *ChromeClient) Context() context.Context {
	return c.ctx
}

// Navigate loads a URL and waits for the document body.
func (c *ChromeClient) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	runCtx := c.ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(c.ctx, c.config.Timeout)
		defer cancel()
	}

	err := chromedp.Run(runCtx, tasks...)
	loadTime := time.Since(start)

	c.navMu.Lock()
	c.navigationSuccess = err == nil
	c.navMu.Unlock()

	if err != nil {
		c.stats.Errors++
		return fmt.Errorf("navigation failed: %w", err)
	}

	c.stats.PagesLoaded++
	if c.stats.PagesLoaded == 1 {
		c.stats.AverageLoadTime = loadTime
	} else {
		c.stats.AverageLoadTime = (c.stats.AverageLoadTime + loadTime) / 2
	}
	return nil
}

// Navigated reports whether the last navigation completed.
func (c *ChromeClient) Navigated() bool {
	c.navMu.RLock()
	defer c.navMu.RUnlock()
	return c.navigationSuccess
}

// Evaluate runs JavaScript in the page and decodes the result into out.
// Pass nil when the result is irrelevant.
func (c *ChromeClient) Evaluate(ctx context.Context, script string, out interface{}) error {
	var action chromedp.Action
	if out == nil {
		var discard interface{}
		action = chromedp.Evaluate(script, &discard)
	} else {
		action = chromedp.Evaluate(script, out)
	}
	if err := chromedp.Run(c.ctx, action); err != nil {
		c.stats.JavaScriptErrors++
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// OuterHTML returns the serialized markup of the first node matching the
// selector.
func (c *ChromeClient) OuterHTML(ctx context.Context, selector string) (string, error) {
	if !c.Navigated() {
		return "", fmt.Errorf("cannot extract HTML: navigation has not completed successfully")
	}
	var html string
	if err := chromedp.Run(c.ctx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		c.stats.Errors++
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// WaitForElement waits for an element to become visible.
func (c *ChromeClient) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(timeoutCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		c.stats.TimeoutsOccurred++
		return fmt.Errorf("element wait timeout: %w", err)
	}
	return nil
}

// SessionCSRFToken reads the session cookie and derives the CSRF token the
// comment API expects. The cookie value arrives quoted; the token is the
// unquoted value.
func (c *ChromeClient) SessionCSRFToken(ctx context.Context) (string, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(c.ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(cctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("failed to read cookies: %w", err)
	}
	for _, cookie := range cookies {
		if cookie.Name == "JSESSIONID" {
			return strings.Trim(cookie.Value, `"`), nil
		}
	}
	return "", nil
}

// GetStats returns browser statistics.
func (c *ChromeClient) GetStats() *Stats {
	return c.stats
}

// Close tears down the tab and the browser process.
func (c *ChromeClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
