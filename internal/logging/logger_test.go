package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lotsort/internal/config"
	"lotsort/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "lotsort.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerHoistsComponentAndSession(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithSessionID(context.Background(), "0f8c2a1e-1111-2222-3333-444455556666")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "enrichment"))
	logger.Info("lot described", logging.Int(logging.FieldGroupIndex, 2))

	line := buf.String()
	if !strings.Contains(line, "INFO [0f8c2a1e] enrichment: lot described") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "group_index=2") {
		t.Fatalf("expected group_index attr, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerUsesCompactKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("suppressed")
	logging.WarnWithContext(logger, "webhook slow", "webhook_slow")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "webhook slow" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["event_type"] != "webhook_slow" {
		t.Fatalf("expected event_type injected, got %v", record["event_type"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJSONLoggerKeepsOneIdentityValue(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	sessionLogger := logging.NewComponentLogger(logger, "session").With(logging.String(logging.FieldSessionID, "s-1"))
	ctx := logging.WithRequestID(logging.WithSessionID(context.Background(), "s-1"), "req-1")
	logging.WithContext(ctx, sessionLogger).Info("photos ingested",
		logging.String(logging.FieldCorrelationID, "req-2"),
		logging.Int("added", 3),
	)

	line := buf.String()
	for _, key := range []string{`"session_id"`, `"component"`, `"correlation_id"`} {
		if n := strings.Count(line, key); n != 1 {
			t.Fatalf("expected %s once, found %d times in %q", key, n, line)
		}
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record["session_id"] != "s-1" || record["component"] != "session" || record["correlation_id"] != "req-1" {
		t.Fatalf("unexpected identity fields: %v", record)
	}
	if record["added"] != float64(3) {
		t.Fatalf("expected added=3, got %v", record["added"])
	}
}

func TestErrorWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed")
	logging.ErrorWithContext(logger, "lock busy", "lock_busy", logging.String(logging.FieldErrorHint, "stop the other instance"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["level"] != "error" || first["event_type"] != "daemon_start_failed" || first["error_hint"] != "check logs for details" {
		t.Fatalf("unexpected defaults: %v", first)
	}
	if second["error_hint"] != "stop the other instance" || strings.Count(lines[1], "error_hint") != 1 {
		t.Fatalf("caller hint should win: %v", second)
	}
	if _, ok := first["impact"]; ok {
		t.Fatalf("errors carry no impact default: %v", first)
	}
}
