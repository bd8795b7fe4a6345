package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pktdash.yaml")
	data := `
page_size: 20
capture:
  bpf: "tcp port 80"
analysis:
  provider: claude
  timeout: 30s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PageSize != 20 || cfg.Capture.BPF != "tcp port 80" || cfg.Analysis.Provider != "claude" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Analysis.Timeout != 30*time.Second {
		t.Errorf("Analysis.Timeout = %v; want 30s", cfg.Analysis.Timeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Capture.SnapLen != 65536 || cfg.Analysis.SampleRows != 50 || !cfg.Capture.Promiscuous {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingCustomPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of missing file expected error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PKTDASH_DB":          "/tmp/x.db",
		"PKTDASH_PAGE_SIZE":   "30",
		"PKTDASH_BACKEND":     "ws://10.0.0.5:7878/ws",
		"PKTDASH_LLM_TIMEOUT": "5s",
		"PKTDASH_REDACT":      "true",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv() error: %v", err)
	}
	if cfg.Database != "/tmp/x.db" || cfg.PageSize != 30 || cfg.Backend.URL != "ws://10.0.0.5:7878/ws" {
		t.Errorf("applyEnv() = %+v", cfg)
	}
	if cfg.Analysis.Timeout != 5*time.Second {
		t.Errorf("Analysis.Timeout = %v", cfg.Analysis.Timeout)
	}
	if !cfg.Analysis.Redact {
		t.Error("Analysis.Redact = false; want true")
	}

	env["PKTDASH_PAGE_SIZE"] = "many"
	if err := Default().applyEnv(lookup); err == nil {
		t.Error("applyEnv() with bad int expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"zero sample rows", func(c *Config) { c.Analysis.SampleRows = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown provider", func(c *Config) { c.Analysis.Provider = "gemini" }},
		{"no database", func(c *Config) { c.Database = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.PageSize = 25
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.PageSize != 25 || got.Capture.FlushInterval != cfg.Capture.FlushInterval {
		t.Errorf("Load(Save()) = %+v", got)
	}
}
