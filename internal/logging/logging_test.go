package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pktdash.log")
	logger, closeFn, err := Setup(Options{File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	logger.Debug().Str("command", "list_table_names").Msg("gateway call")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"command":"list_table_names"`) {
		t.Errorf("log file = %s", data)
	}
}

func TestSetupLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(Options{Level: "warn", Console: &buf})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSetupBadLevel(t *testing.T) {
	if _, _, err := Setup(Options{Level: "chatty"}); err == nil {
		t.Error("Setup() expected error for unknown level")
	}
}
