// Package config loads pktdash settings from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ConfigPaths lists the config files in load order; later files win.
var ConfigPaths = []string{
	"/etc/pktdash/config.yaml",
	"~/.config/pktdash/config.yaml",
	"./.pktdash.yaml",
}

// Config is the full application configuration.
type Config struct {
	Database string         `yaml:"database"`
	PageSize int            `yaml:"page_size"`
	Capture  CaptureConfig  `yaml:"capture"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Backend  BackendConfig  `yaml:"backend"`
	Serve    ServeConfig    `yaml:"serve"`
	Log      LogConfig      `yaml:"log"`
}

// CaptureConfig controls how interfaces are opened and packets recorded.
type CaptureConfig struct {
	SnapLen       int32         `yaml:"snaplen"`
	Promiscuous   bool          `yaml:"promiscuous"`
	BPF           string        `yaml:"bpf"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	PcapDir       string        `yaml:"pcap_dir"`
}

// AnalysisConfig selects the chat model used by run_analysis.
type AnalysisConfig struct {
	Provider   string        `yaml:"provider"` // claude, openai, openrouter, ollama; empty detects
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	SampleRows int           `yaml:"sample_rows"`
	Timeout    time.Duration `yaml:"timeout"`
	Redact     bool          `yaml:"redact"` // mask addresses and credentials in prompts
}

// BackendConfig points the dashboard at a remote gateway. Empty runs the
// backend in process.
type BackendConfig struct {
	URL string `yaml:"url"`
}

// ServeConfig configures `pktdash serve`.
type ServeConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: defaultDatabase(),
		PageSize: 15,
		Capture: CaptureConfig{
			SnapLen:       65536,
			Promiscuous:   true,
			BatchSize:     500,
			FlushInterval: 500 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			SampleRows: 50,
			Timeout:    120 * time.Second,
		},
		Serve: ServeConfig{Listen: "127.0.0.1:7878"},
		Log:   LogConfig{Level: "info"},
	}
}

func defaultDatabase() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pktdash", "packets.db")
	}
	return "packets.db"
}

// Load builds the configuration from defaults, then the standard config
// files (or only customPath when set), then environment overrides.
func Load(customPath string) (*Config, error) {
	cfg := Default()

	if customPath != "" {
		if err := loadFile(cfg, customPath); err != nil {
			return nil, fmt.Errorf("load config %s: %w", customPath, err)
		}
	} else {
		for _, p := range ConfigPaths {
			p = expandPath(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := loadFile(cfg, p); err != nil {
				return nil, fmt.Errorf("load config %s: %w", p, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Keys absent from the file keep their
// current values.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	overrides := []struct {
		name  string
		apply func(string) error
	}{
		{"PKTDASH_DB", func(v string) error { c.Database = v; return nil }},
		{"PKTDASH_PAGE_SIZE", func(v string) error { return parseInt(v, &c.PageSize) }},
		{"PKTDASH_BACKEND", func(v string) error { c.Backend.URL = v; return nil }},
		{"PKTDASH_LISTEN", func(v string) error { c.Serve.Listen = v; return nil }},
		{"PKTDASH_LOG_LEVEL", func(v string) error { c.Log.Level = v; return nil }},
		{"PKTDASH_LOG_FILE", func(v string) error { c.Log.File = v; return nil }},
		{"PKTDASH_BPF", func(v string) error { c.Capture.BPF = v; return nil }},
		{"PKTDASH_PCAP_DIR", func(v string) error { c.Capture.PcapDir = v; return nil }},
		{"PKTDASH_LLM_PROVIDER", func(v string) error { c.Analysis.Provider = v; return nil }},
		{"PKTDASH_LLM_MODEL", func(v string) error { c.Analysis.Model = v; return nil }},
		{"PKTDASH_SAMPLE_ROWS", func(v string) error { return parseInt(v, &c.Analysis.SampleRows) }},
		{"PKTDASH_LLM_TIMEOUT", func(v string) error { return parseDuration(v, &c.Analysis.Timeout) }},
		{"PKTDASH_REDACT", func(v string) error { return parseBool(v, &c.Analysis.Redact) }},
	}

	for _, o := range overrides {
		v, ok := lookup(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(v); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return nil
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Analysis.SampleRows <= 0 {
		return fmt.Errorf("analysis.sample_rows must be positive, got %d", c.Analysis.SampleRows)
	}
	if c.Capture.SnapLen < 0 {
		return fmt.Errorf("capture.snaplen must not be negative")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Analysis.Provider {
	case "", "claude", "openai", "openrouter", "ollama":
	default:
		return fmt.Errorf("analysis.provider: unknown provider %q", c.Analysis.Provider)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
