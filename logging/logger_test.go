package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFromConfigWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(Config{Service: "flightroute", Module: "test", Level: "info", Output: &buf})

	l.InfoContext(context.Background(), "merge committed", "flight", 7)
	l.DebugContext(context.Background(), "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["service"] != "flightroute" || entry["module"] != "test" {
		t.Errorf("missing service/module attrs: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Errorf("time key should be renamed to timestamp: %v", entry)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(Config{Level: "error", Format: "text", Output: &buf})
	l.Warn("dropped")
	SetLevel("debug")
	defer SetLevel("info")
	l.Debug("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("unexpected output %q", out)
	}
	if ParseLevel("WARNING") != slog.LevelWarn || ParseLevel("nonsense") != slog.LevelInfo {
		t.Errorf("ParseLevel mismatch")
	}
}

func TestFileWithStdoutMirror(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "flightroute.log")
	l := NewFromConfig(Config{Level: "info", File: path, Stdout: true, Format: "text", Output: &buf})
	l.Info("both targets")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "both targets") || !strings.Contains(buf.String(), "both targets") {
		t.Errorf("expected message in file and mirror")
	}
}

func TestConsoleLevelFiltersMirrorOnly(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "flightroute.log")
	l := NewFromConfig(Config{Level: "debug", ConsoleLevel: "warn", File: path, Stdout: true, Format: "text", Output: &buf})
	l.Debug("merge rejected")
	l.Warn("dropping route")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "merge rejected") || !strings.Contains(string(data), "dropping route") {
		t.Errorf("file should keep every level: %s", data)
	}
	if strings.Contains(buf.String(), "merge rejected") || !strings.Contains(buf.String(), "dropping route") {
		t.Errorf("mirror should only show warn and above: %s", buf.String())
	}
}
