package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})

	logger.Info("settings saved", "provider", "anthropic")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "settings saved" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["provider"] != "anthropic" {
		t.Errorf("provider = %v", entry["provider"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record missing")
	}
}

func TestNew_AutoFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "auto", Output: &buf})
	logger.Info("hello")

	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("auto format on a non-terminal should be JSON, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	logger.Info("updating", "api_key", "short-but-secret", "Authorization", "Bearer abc")

	out := buf.String()
	if strings.Contains(out, "short-but-secret") || strings.Contains(out, "Bearer abc") {
		t.Errorf("sensitive attribute leaked: %s", out)
	}
	if strings.Count(out, "[REDACTED]") != 2 {
		t.Errorf("expected two redactions: %s", out)
	}
}

func TestLogger_RedactsKeysInMessagesAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})
	key := "sk-ant-REDACTED"

	logger.Error("replace failed for "+key, "error", errors.New("bad key "+key))

	if strings.Contains(buf.String(), "abcdefghijklmnop") {
		t.Errorf("credential leaked: %s", buf.String())
	}
}

func TestLogger_WithKeepsRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf}).
		WithComponent("api").
		WithBackend("http").
		With("token", "orchestrator-token-value")

	logger.Info("request")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["component"] != "api" || entry["backend"] != "http" {
		t.Errorf("context fields missing: %v", entry)
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want redacted", entry["token"])
	}
}

func TestLogger_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	logger.Info("saved", slog.Group("settings", slog.String("api_key", "sk-live-123456"), slog.String("model", "claude")))

	out := buf.String()
	if strings.Contains(out, "sk-live-123456") {
		t.Errorf("grouped credential leaked: %s", out)
	}
	if !strings.Contains(out, "claude") {
		t.Errorf("non-sensitive group attr dropped: %s", out)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	if logger.Sanitizer() == nil {
		t.Error("NewNop() sanitizer is nil")
	}
	if logger.Slog() == nil {
		t.Error("Slog() is nil")
	}
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/logs/splitmind.log"
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	logger := New(Config{Format: "json", Output: f})
	logger.Info("to file")
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelInfo)
	logger := slog.New(h).With("component", "settings").WithGroup("store")

	logger.Debug("skipped")
	logger.Warn("slow replace", "backend", "sqlite")

	out := buf.String()
	if strings.Contains(out, "skipped") {
		t.Error("debug record written at info level")
	}
	for _, want := range []string{"slow replace", "component", "store.backend", "sqlite"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}
