package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログがJSONではない: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestSetup_WritesJSONWithStandardFields(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Warn("backend request failed", slog.String("endpoint", "articles"))

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "backend request failed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "backend request failed")
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("time フィールドがない")
	}
	if entry["endpoint"] != "articles" {
		t.Errorf("endpoint = %v, want articles", entry["endpoint"])
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("articles fetched",
		slog.String("client_id", "c-123"),
		slog.String("endpoint", "articles"),
		slog.String("path", "/api/articles/"),
		slog.Int("status", 200),
		slog.Int("results", 12),
	)

	entry := decodeEntry(t, &buf)
	if entry["client_id"] != "c-123" {
		t.Errorf("client_id = %q, want %q", entry["client_id"], "c-123")
	}
	if entry["endpoint"] != "articles" {
		t.Errorf("endpoint = %q, want %q", entry["endpoint"], "articles")
	}
	if entry["path"] != "/api/articles/" {
		t.Errorf("path = %q, want %q", entry["path"], "/api/articles/")
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want %v", entry["status"], 200)
	}
	if entry["results"] != float64(12) {
		t.Errorf("results = %v, want %v", entry["results"], 12)
	}
}

func TestSetLevel_AppliesToExistingLoggers(t *testing.T) {
	t.Cleanup(func() { SetLevel(slog.LevelInfo) })

	var buf bytes.Buffer
	l := Setup(&buf)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("infoレベルでdebugが出力された: %s", buf.String())
	}

	SetLevel(slog.LevelDebug)
	l.Debug("shown")
	if entry := decodeEntry(t, &buf); entry["msg"] != "shown" {
		t.Errorf("msg = %v, want shown", entry["msg"])
	}

	buf.Reset()
	SetLevel(slog.LevelError)
	l.Warn("suppressed")
	if buf.Len() != 0 {
		t.Errorf("errorレベルでwarnが出力された: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
