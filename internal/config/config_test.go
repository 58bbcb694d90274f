// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
name: test-harvest
target:
  post_url: https://www.example.com/feed/update/urn:li:activity:123/
`

func TestLoadFromBytes_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}

	if cfg.Scan.QuietWindowMS != 2500 {
		t.Errorf("QuietWindowMS = %d, want 2500", cfg.Scan.QuietWindowMS)
	}
	if cfg.Scan.CoverageThreshold != 0.90 {
		t.Errorf("CoverageThreshold = %v, want 0.90", cfg.Scan.CoverageThreshold)
	}
	if cfg.Scan.MaxPasses != 40 {
		t.Errorf("MaxPasses = %d, want 40", cfg.Scan.MaxPasses)
	}
	if cfg.Replay.InitialConcurrency != 6 || cfg.Replay.MinConcurrency != 2 || cfg.Replay.MaxConcurrency != 10 {
		t.Errorf("replay concurrency = %d/%d/%d, want 6/2/10",
			cfg.Replay.InitialConcurrency, cfg.Replay.MinConcurrency, cfg.Replay.MaxConcurrency)
	}
	if cfg.Replay.TopLevelBudget != 15 || cfg.Replay.ReplyBudget != 8 {
		t.Errorf("budgets = %d/%d, want 15/8", cfg.Replay.TopLevelBudget, cfg.Replay.ReplyBudget)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if len(cfg.Outputs) != 1 || cfg.Outputs[0].Format != "csv" {
		t.Errorf("default outputs = %+v", cfg.Outputs)
	}
}

func TestLoadFromBytes_OverridesSurvive(t *testing.T) {
	yaml := minimalYAML + `
scan:
  quiet_window_ms: 4000
  coverage_threshold: 0.8
replay:
  initial_concurrency: 4
outputs:
  - format: excel
    path: out.xlsx
  - format: mongodb
    connection_string: mongodb://localhost:27017
    database: harvest
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if cfg.Scan.QuietWindowMS != 4000 {
		t.Errorf("QuietWindowMS = %d, want 4000", cfg.Scan.QuietWindowMS)
	}
	if cfg.Scan.CoverageThreshold != 0.8 {
		t.Errorf("CoverageThreshold = %v, want 0.8", cfg.Scan.CoverageThreshold)
	}
	if cfg.Replay.InitialConcurrency != 4 {
		t.Errorf("InitialConcurrency = %d, want 4", cfg.Replay.InitialConcurrency)
	}
	if len(cfg.Outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(cfg.Outputs))
	}
	if cfg.Outputs[1].Table != "email_records" {
		t.Errorf("default table = %q", cfg.Outputs[1].Table)
	}
}

func TestLoadFromBytes_EnvironmentExpansion(t *testing.T) {
	os.Setenv("CH_TEST_POST_URL", "https://www.example.com/feed/update/77/")
	defer os.Unsetenv("CH_TEST_POST_URL")

	yaml := `
target:
  post_url: ${CH_TEST_POST_URL}
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if cfg.Target.PostURL != "https://www.example.com/feed/update/77/" {
		t.Errorf("PostURL = %q", cfg.Target.PostURL)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"missing post url", func(c *Config) { c.Target.PostURL = "" }, "post URL is required"},
		{"relative post url", func(c *Config) { c.Target.PostURL = "feed/update/1" }, "absolute http(s)"},
		{"bad coverage", func(c *Config) { c.Scan.CoverageThreshold = 1.5 }, "coverage_threshold"},
		{"inverted concurrency", func(c *Config) { c.Replay.MinConcurrency = 20 }, "concurrency bounds"},
		{"unknown output", func(c *Config) { c.Outputs = []OutputConfig{{Format: "parquet"}} }, "unknown format"},
		{"db without conn", func(c *Config) {
			c.Outputs = []OutputConfig{{Format: "postgresql", Table: "t"}}
		}, "connection string is required"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("https://www.example.com/feed/update/1/")
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default("https://www.example.com/feed/update/9/")
	cfg.Scan.MaxPasses = 12

	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Scan.MaxPasses != 12 {
		t.Errorf("MaxPasses = %d, want 12", loaded.Scan.MaxPasses)
	}
	if loaded.Target.PostURL != cfg.Target.PostURL {
		t.Errorf("PostURL = %q", loaded.Target.PostURL)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
