// internal/browser/browser_test.go
package browser

import (
	"context"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("Expected non-nil config")
	}
	if !config.Headless {
		t.Error("Expected headless mode by default")
	}
	if config.ViewportWidth != 1440 {
		t.Errorf("Expected viewport width 1440, got %d", config.ViewportWidth)
	}
	if config.ViewportHeight != 1080 {
		t.Errorf("Expected viewport height 1080, got %d", config.ViewportHeight)
	}
	if config.Timeout <= 0 {
		t.Error("Expected positive default timeout")
	}
}

func TestChromeClient_HTMLBlockedBeforeNavigation(t *testing.T) {
	// Exercises the navigation gate without launching Chrome.
	client := &ChromeClient{config: DefaultConfig(), stats: &Stats{}}

	_, err := client.OuterHTML(context.Background(), "body")
	if err == nil {
		t.Fatal("Expected error when extracting HTML before navigation")
	}
	if !strings.Contains(err.Error(), "navigation has not completed successfully") {
		t.Errorf("Expected navigation state error, got: %v", err)
	}
}

func TestChromeClient_LiveNavigation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	client, err := NewChromeClient(DefaultConfig())
	if err != nil {
		t.Skipf("Skipping browser test: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Navigate(ctx, "about:blank"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if !client.Navigated() {
		t.Error("Navigated() = false after successful navigation")
	}
	html, err := client.OuterHTML(ctx, "html")
	if err != nil {
		t.Fatalf("OuterHTML failed: %v", err)
	}
	if !strings.Contains(html, "<html") {
		t.Errorf("unexpected HTML: %q", html)
	}
}
