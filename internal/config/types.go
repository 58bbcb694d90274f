// internal/config/types.go

// Package config provides configuration types for CommentHarvester. It
// defines the scan target, timing windows, replay tuning, browser options,
// and output sinks, loaded from YAML with environment expansion.
package config

import (
	"time"

	"github.com/valpere/CommentHarvester/internal/browser"
	"github.com/valpere/CommentHarvester/internal/replay"
)

// Config is the root configuration for one harvester instance.
type Config struct {
	// Name identifies this configuration
	Name string `yaml:"name" json:"name"`

	// Version of the configuration format
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Description provides human-readable information about this config
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Target defines the post to scan
	Target TargetConfig `yaml:"target" json:"target"`

	// Scan tunes collection passes and termination windows
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Replay tunes active pagination
	Replay ReplayConfig `yaml:"replay" json:"replay"`

	// Browser holds browser automation settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Outputs lists the sinks results are written to
	Outputs []OutputConfig `yaml:"outputs" json:"outputs"`

	// API configures the HTTP command surface
	API APIConfig `yaml:"api" json:"api"`

	// Metrics configures the Prometheus listener
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// TargetConfig defines the post to scan.
type TargetConfig struct {
	// PostURL is the post permalink to open and scan
	PostURL string `yaml:"post_url" json:"post_url"`

	// ProfileBaseURL is prefixed onto bare profile identifiers
	ProfileBaseURL string `yaml:"profile_base_url,omitempty" json:"profile_base_url,omitempty"`

	// EndpointPatterns override the comment endpoint substrings to
	// intercept. Empty means the built-in defaults.
	EndpointPatterns []string `yaml:"endpoint_patterns,omitempty" json:"endpoint_patterns,omitempty"`
}

// ScanConfig tunes pass limits and termination windows. Time fields are
// plain integers (milliseconds or minutes) so they read naturally in YAML.
type ScanConfig struct {
	// QuietWindowMS is how long all activity signals must stay idle
	// before a phase is considered settled
	QuietWindowMS int `yaml:"quiet_window_ms" json:"quiet_window_ms"`

	// QuietCheckIntervalMS is the polling interval for the quiet window
	QuietCheckIntervalMS int `yaml:"quiet_check_interval_ms" json:"quiet_check_interval_ms"`

	// BaseTimeoutMin is the absolute scan deadline before extensions
	BaseTimeoutMin int `yaml:"base_timeout_min" json:"base_timeout_min"`

	// ExtendPerProgressMin is added to the deadline each time the scan
	// makes progress
	ExtendPerProgressMin int `yaml:"extend_per_progress_min" json:"extend_per_progress_min"`

	// MaxTimeoutMin caps the extended deadline
	MaxTimeoutMin int `yaml:"max_timeout_min" json:"max_timeout_min"`

	// MaxPasses bounds DOM collection passes
	MaxPasses int `yaml:"max_passes" json:"max_passes"`

	// NoWorkPassesBeforeExit ends collection after this many passes that
	// found nothing to click
	NoWorkPassesBeforeExit int `yaml:"no_work_passes_before_exit" json:"no_work_passes_before_exit"`

	// NoGrowthPassesBeforeGiveUp ends collection after this many passes
	// without new comments
	NoGrowthPassesBeforeGiveUp int `yaml:"no_growth_passes_before_give_up" json:"no_growth_passes_before_give_up"`

	// LargeThreadSize marks threads that get the relaxed no-growth limit
	LargeThreadSize int `yaml:"large_thread_size" json:"large_thread_size"`

	// LargeThreadNoGrowthPasses replaces NoGrowthPassesBeforeGiveUp for
	// large threads
	LargeThreadNoGrowthPasses int `yaml:"large_thread_no_growth_passes" json:"large_thread_no_growth_passes"`

	// CoverageThreshold is the fraction of the declared total at which
	// network capture alone is considered complete
	CoverageThreshold float64 `yaml:"coverage_threshold" json:"coverage_threshold"`

	// ProgressThrottleMS bounds how often progress events are emitted
	ProgressThrottleMS int `yaml:"progress_throttle_ms" json:"progress_throttle_ms"`

	// EnrichIntervalMS is the cadence of live author enrichment from the
	// rendered page
	EnrichIntervalMS int `yaml:"enrich_interval_ms" json:"enrich_interval_ms"`

	// FirstInterceptTimeoutMS is how long to wait for the first captured
	// response before nudging the page
	FirstInterceptTimeoutMS int `yaml:"first_intercept_timeout_ms" json:"first_intercept_timeout_ms"`

	// InterceptFallbackTimeoutMS is how long to wait for capture before
	// switching to the DOM fallback entirely
	InterceptFallbackTimeoutMS int `yaml:"intercept_fallback_timeout_ms" json:"intercept_fallback_timeout_ms"`
}

// ReplayConfig tunes active pagination.
type ReplayConfig struct {
	InitialConcurrency int `yaml:"initial_concurrency" json:"initial_concurrency"`
	MinConcurrency     int `yaml:"min_concurrency" json:"min_concurrency"`
	MaxConcurrency     int `yaml:"max_concurrency" json:"max_concurrency"`

	BatchDelayMS       int `yaml:"batch_delay_ms" json:"batch_delay_ms"`
	RateLimitBackoffMS int `yaml:"rate_limit_backoff_ms" json:"rate_limit_backoff_ms"`
	RateLimitPauseMS   int `yaml:"rate_limit_pause_ms" json:"rate_limit_pause_ms"`

	PauseAfterHits        int `yaml:"pause_after_hits" json:"pause_after_hits"`
	AbortAfterConsecutive int `yaml:"abort_after_consecutive" json:"abort_after_consecutive"`

	MaxConcurrentReplyRuns int `yaml:"max_concurrent_reply_runs" json:"max_concurrent_reply_runs"`
	MinReplyTotal          int `yaml:"min_reply_total" json:"min_reply_total"`

	TopLevelBudget int `yaml:"top_level_budget" json:"top_level_budget"`
	ReplyBudget    int `yaml:"reply_budget" json:"reply_budget"`
	BudgetWindowS  int `yaml:"budget_window_s" json:"budget_window_s"`
}

// BrowserConfig holds browser automation settings.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless" json:"headless"`
	ExecPath       string `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	UserDataDir    string `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	UserAgent      string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	TimeoutS       int    `yaml:"timeout_s" json:"timeout_s"`
	ViewportWidth  int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" json:"viewport_height"`
	WaitDelayMS    int    `yaml:"wait_delay_ms" json:"wait_delay_ms"`
	DisableImages  bool   `yaml:"disable_images" json:"disable_images"`
}

// ToBrowser converts to the browser package's config.
func (b BrowserConfig) ToBrowser() *browser.Config {
	return &browser.Config{
		Headless:       b.Headless,
		ExecPath:       b.ExecPath,
		UserDataDir:    b.UserDataDir,
		UserAgent:      b.UserAgent,
		Timeout:        time.Duration(b.TimeoutS) * time.Second,
		ViewportWidth:  b.ViewportWidth,
		ViewportHeight: b.ViewportHeight,
		WaitDelay:      time.Duration(b.WaitDelayMS) * time.Millisecond,
		DisableImages:  b.DisableImages,
	}
}

// ToReplay converts to the replay package's config.
func (r ReplayConfig) ToReplay() replay.Config {
	return replay.Config{
		InitialConcurrency:     r.InitialConcurrency,
		MinConcurrency:         r.MinConcurrency,
		MaxConcurrency:         r.MaxConcurrency,
		BatchDelay:             r.BatchDelay(),
		RateLimitBackoff:       r.RateLimitBackoff(),
		RateLimitPause:         r.RateLimitPause(),
		PauseAfterHits:         r.PauseAfterHits,
		AbortAfterConsecutive:  r.AbortAfterConsecutive,
		MaxConcurrentReplyRuns: r.MaxConcurrentReplyRuns,
		MinReplyTotalForReplay: r.MinReplyTotal,
		TopLevelBudget:         r.TopLevelBudget,
		ReplyBudget:            r.ReplyBudget,
		BudgetWindow:           r.BudgetWindow(),
	}
}

// OutputConfig defines one result sink.
type OutputConfig struct {
	// Format is one of csv, json, excel, sqlite, postgresql, mysql,
	// mongodb
	Format string `yaml:"format" json:"format"`

	// Path is the output file for file formats, or the database file for
	// sqlite
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// ConnectionString for server databases
	ConnectionString string `yaml:"connection_string,omitempty" json:"connection_string,omitempty"`

	// Table name for SQL sinks, collection name for mongodb
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Database name for mongodb
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
}

// APIConfig configures the HTTP command surface.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// Duration accessors. Config files carry integers; consumers want
// time.Duration.

func (s ScanConfig) QuietWindow() time.Duration { return ms(s.QuietWindowMS) }

func (s ScanConfig) QuietCheckInterval() time.Duration { return ms(s.QuietCheckIntervalMS) }

func (s ScanConfig) BaseTimeout() time.Duration {
	return time.Duration(s.BaseTimeoutMin) * time.Minute
}

func (s ScanConfig) ExtendPerProgress() time.Duration {
	return time.Duration(s.ExtendPerProgressMin) * time.Minute
}

func (s ScanConfig) MaxTimeout() time.Duration {
	return time.Duration(s.MaxTimeoutMin) * time.Minute
}

func (s ScanConfig) ProgressThrottle() time.Duration { return ms(s.ProgressThrottleMS) }

func (s ScanConfig) EnrichInterval() time.Duration { return ms(s.EnrichIntervalMS) }

func (s ScanConfig) FirstInterceptTimeout() time.Duration { return ms(s.FirstInterceptTimeoutMS) }

func (s ScanConfig) InterceptFallbackTimeout() time.Duration {
	return ms(s.InterceptFallbackTimeoutMS)
}

func (r ReplayConfig) BatchDelay() time.Duration { return ms(r.BatchDelayMS) }

func (r ReplayConfig) RateLimitBackoff() time.Duration { return ms(r.RateLimitBackoffMS) }

func (r ReplayConfig) RateLimitPause() time.Duration { return ms(r.RateLimitPauseMS) }

func (r ReplayConfig) BudgetWindow() time.Duration {
	return time.Duration(r.BudgetWindowS) * time.Second
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
