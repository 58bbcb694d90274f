// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Path, ve.Message)
}

// knownOutputFormats are the sink formats the output layer implements.
var knownOutputFormats = map[string]bool{
	"csv": true, "json": true, "excel": true,
	"sqlite": true, "postgresql": true, "mysql": true, "mongodb": true,
}

// Validate checks the configuration for structural errors. Defaults are
// assumed applied.
func (c *Config) Validate() error {
	errs := c.validationErrors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// ValidateDetailed returns every validation failure individually.
func (c *Config) ValidateDetailed() []ValidationError {
	return c.validationErrors()
}

func (c *Config) validationErrors() []ValidationError {
	var errs []ValidationError
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if c.Target.PostURL == "" {
		add("target.post_url", "post URL is required")
	} else if u, err := url.Parse(c.Target.PostURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		add("target.post_url", "must be an absolute http(s) URL")
	}

	s := c.Scan
	if s.QuietWindowMS < s.QuietCheckIntervalMS {
		add("scan.quiet_window_ms", "must be at least the check interval (%dms)", s.QuietCheckIntervalMS)
	}
	if s.CoverageThreshold <= 0 || s.CoverageThreshold > 1 {
		add("scan.coverage_threshold", "must be in (0, 1], got %v", s.CoverageThreshold)
	}
	if s.MaxTimeoutMin < s.BaseTimeoutMin {
		add("scan.max_timeout_min", "must not be below base_timeout_min")
	}
	if s.MaxPasses <= 0 {
		add("scan.max_passes", "must be positive")
	}

	r := c.Replay
	if r.MinConcurrency > r.InitialConcurrency || r.InitialConcurrency > r.MaxConcurrency {
		add("replay", "concurrency bounds must satisfy min <= initial <= max (%d, %d, %d)",
			r.MinConcurrency, r.InitialConcurrency, r.MaxConcurrency)
	}
	if r.TopLevelBudget <= 0 || r.ReplyBudget <= 0 {
		add("replay", "request budgets must be positive")
	}

	for i, out := range c.Outputs {
		path := fmt.Sprintf("outputs[%d]", i)
		if !knownOutputFormats[out.Format] {
			add(path+".format", "unknown format %q", out.Format)
			continue
		}
		switch out.Format {
		case "csv", "json", "excel", "sqlite":
			if out.Path == "" {
				add(path+".path", "path is required for %s output", out.Format)
			}
		case "postgresql", "mysql", "mongodb":
			if out.ConnectionString == "" {
				add(path+".connection_string", "connection string is required for %s output", out.Format)
			}
			if out.Format == "mongodb" && out.Database == "" {
				add(path+".database", "database is required for mongodb output")
			}
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log_level", "unknown level %q", c.LogLevel)
	}

	return errs
}
