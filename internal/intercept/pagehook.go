// internal/intercept/pagehook.go
package intercept

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// pageHookScript wraps fetch and XMLHttpRequest in the page world and
// buffers response bodies for matching URLs. This is the second capture
// layer: CDP response events occasionally miss bodies that were consumed
// before GetResponseBody runs, and the in-page hook sees those.
const pageHookScript = `(() => {
	if (window.__chBuffer) return;
	window.__chBuffer = [];
	const MAX_BUFFER = 200;
	const push = (url, body) => {
		if (window.__chBuffer.length < MAX_BUFFER) {
			window.__chBuffer.push({url: String(url), body: String(body)});
		}
	};

	const origFetch = window.fetch;
	window.fetch = function(...args) {
		return origFetch.apply(this, args).then(resp => {
			try {
				const url = resp.url || String(args[0]);
				resp.clone().text().then(body => push(url, body)).catch(() => {});
			} catch (e) {}
			return resp;
		});
	};

	const origOpen = XMLHttpRequest.prototype.open;
	const origSend = XMLHttpRequest.prototype.send;
	XMLHttpRequest.prototype.open = function(method, url, ...rest) {
		this.__chURL = url;
		return origOpen.call(this, method, url, ...rest);
	};
	XMLHttpRequest.prototype.send = function(...args) {
		this.addEventListener('load', () => {
			try { push(this.__chURL, this.responseText); } catch (e) {}
		});
		return origSend.apply(this, args);
	};
})();`

// drainScript empties the page buffer atomically.
const drainScript = `(() => {
	const buf = window.__chBuffer || [];
	window.__chBuffer = [];
	return buf;
})()`

type pageCapture struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

// InstallPageHook registers the in-page capture script so it runs before
// any page script on every navigation.
func (i *Interceptor) InstallPageHook() error {
	err := chromedp.Run(i.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(pageHookScript).Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to install page hook: %w", err)
	}
	return nil
}

// DrainPageBuffer pulls everything the in-page hook captured since the
// last drain and routes matching payloads through the normal emit path.
// Duplicate suppression happens downstream via the payload dedupe cache.
func (i *Interceptor) DrainPageBuffer(ctx context.Context) (int, error) {
	var captures []pageCapture
	if err := chromedp.Run(i.ctx, chromedp.Evaluate(drainScript, &captures)); err != nil {
		return 0, fmt.Errorf("failed to drain page buffer: %w", err)
	}

	routed := 0
	for _, c := range captures {
		if !i.MatchesEndpoint(c.URL) {
			continue
		}
		i.emit(c.URL, 0, c.Body)
		routed++
	}
	return routed, nil
}
