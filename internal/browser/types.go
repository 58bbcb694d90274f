// internal/browser/types.go
package browser

import (
	"time"
)

// Config defines browser automation configuration.
type Config struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultConfig returns default browser configuration. The user data dir
// matters in practice: scans run against a logged-in session, so the
// profile carries the session cookies.
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		Timeout:        45 * time.Second,
		ViewportWidth:  1440,
		ViewportHeight: 1080,
		WaitDelay:      2 * time.Second,
		DisableImages:  true,
	}
}

// Stats contains browser automation statistics.
type Stats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	JavaScriptErrors int           `json:"javascript_errors"`
	TimeoutsOccurred int           `json:"timeouts_occurred"`
}
