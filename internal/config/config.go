// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes with environment
// variable expansion.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}
	return LoadFromBytes(data)
}

// SaveToFile writes the configuration as YAML.
func SaveToFile(cfg *Config, filename string) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %v", err)
	}
	return nil
}

// Default returns a fully-defaulted configuration for the given post URL.
func Default(postURL string) *Config {
	cfg := &Config{
		Name:   "comment-harvest",
		Target: TargetConfig{PostURL: postURL},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills every zero field with its operational default.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	s := &cfg.Scan
	if s.QuietWindowMS == 0 {
		s.QuietWindowMS = 2500
	}
	if s.QuietCheckIntervalMS == 0 {
		s.QuietCheckIntervalMS = 200
	}
	if s.BaseTimeoutMin == 0 {
		s.BaseTimeoutMin = 20
	}
	if s.ExtendPerProgressMin == 0 {
		s.ExtendPerProgressMin = 5
	}
	if s.MaxTimeoutMin == 0 {
		s.MaxTimeoutMin = 35
	}
	if s.MaxPasses == 0 {
		s.MaxPasses = 40
	}
	if s.NoWorkPassesBeforeExit == 0 {
		s.NoWorkPassesBeforeExit = 2
	}
	if s.NoGrowthPassesBeforeGiveUp == 0 {
		s.NoGrowthPassesBeforeGiveUp = 4
	}
	if s.LargeThreadSize == 0 {
		s.LargeThreadSize = 2000
	}
	if s.LargeThreadNoGrowthPasses == 0 {
		s.LargeThreadNoGrowthPasses = 6
	}
	if s.CoverageThreshold == 0 {
		s.CoverageThreshold = 0.90
	}
	if s.ProgressThrottleMS == 0 {
		s.ProgressThrottleMS = 400
	}
	if s.EnrichIntervalMS == 0 {
		s.EnrichIntervalMS = 1500
	}
	if s.FirstInterceptTimeoutMS == 0 {
		s.FirstInterceptTimeoutMS = 5000
	}
	if s.InterceptFallbackTimeoutMS == 0 {
		s.InterceptFallbackTimeoutMS = 15000
	}

	r := &cfg.Replay
	if r.InitialConcurrency == 0 {
		r.InitialConcurrency = 6
	}
	if r.MinConcurrency == 0 {
		r.MinConcurrency = 2
	}
	if r.MaxConcurrency == 0 {
		r.MaxConcurrency = 10
	}
	if r.BatchDelayMS == 0 {
		r.BatchDelayMS = 150
	}
	if r.RateLimitBackoffMS == 0 {
		r.RateLimitBackoffMS = 3000
	}
	if r.RateLimitPauseMS == 0 {
		r.RateLimitPauseMS = 10000
	}
	if r.PauseAfterHits == 0 {
		r.PauseAfterHits = 3
	}
	if r.AbortAfterConsecutive == 0 {
		r.AbortAfterConsecutive = 5
	}
	if r.MaxConcurrentReplyRuns == 0 {
		r.MaxConcurrentReplyRuns = 3
	}
	if r.MinReplyTotal == 0 {
		r.MinReplyTotal = 10
	}
	if r.TopLevelBudget == 0 {
		r.TopLevelBudget = 15
	}
	if r.ReplyBudget == 0 {
		r.ReplyBudget = 8
	}
	if r.BudgetWindowS == 0 {
		r.BudgetWindowS = 10
	}

	b := &cfg.Browser
	if b.TimeoutS == 0 {
		b.TimeoutS = 45
	}
	if b.ViewportWidth == 0 {
		b.ViewportWidth = 1440
	}
	if b.ViewportHeight == 0 {
		b.ViewportHeight = 1080
	}
	if b.WaitDelayMS == 0 {
		b.WaitDelayMS = 2000
	}

	if cfg.API.Enabled && cfg.API.Listen == "" {
		cfg.API.Listen = ":8385"
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9190"
	}

	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []OutputConfig{{Format: "csv", Path: "harvest.csv"}}
	}
	for i := range cfg.Outputs {
		if cfg.Outputs[i].Table == "" {
			cfg.Outputs[i].Table = "email_records"
		}
	}
}
