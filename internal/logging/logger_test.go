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
	"time"

	"switchscan/internal/config"
	"switchscan/internal/services"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(newPrettyHandler(buf, lvl, false))
}

func TestConsoleLineIncludesComponentAndThread(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestLogger(&buf, slog.LevelInfo), "chatsync")
	logger.Info("thread loaded", String(FieldThread, "channel:100"), Int("messages", 3))

	line := buf.String()
	for _, want := range []string{"INFO [chatsync] (channel:100): thread loaded", "messages=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be promoted to the header: %q", line)
	}
}

func TestConsoleQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, slog.LevelInfo).Info("spoke", String("text", "hello world"))
	if !strings.Contains(buf.String(), `text="hello world"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleDebugUsesAttributeBlock(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, slog.LevelDebug).Debug("gesture", String("button", "advance"))
	if !strings.Contains(buf.String(), "\n    button: advance\n") {
		t.Fatalf("expected indented debug block, got %q", buf.String())
	}
}

func TestConsoleSuppressesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, slog.LevelWarn).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	handler, err := newJSONHandler(&buf, lvl, false)
	if err != nil {
		t.Fatalf("newJSONHandler: %v", err)
	}
	slog.New(newSessionIDHandler(handler, "session-1")).Warn("stale heartbeat")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["level"] != "warn" || payload["msg"] != "stale heartbeat" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload[FieldSessionID] != "session-1" {
		t.Fatalf("expected session id, got %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigTeesToFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "info"
	logPath := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := NewFromConfig(&cfg, logPath, "abc")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("started", String(FieldEventType, "startup"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"event_type":"startup"`) || !strings.Contains(string(data), `"session_id":"abc"`) {
		t.Fatalf("unexpected log file contents: %s", data)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := services.WithThread(context.Background(), "dm:7")
	ctx = services.WithRequestID(ctx, "req-1")
	WithContext(ctx, newTestLogger(&buf, slog.LevelInfo)).Info("send")

	out := buf.String()
	if !strings.Contains(out, "(dm:7)") || !strings.Contains(out, "correlation_id=req-1") {
		t.Fatalf("missing context fields: %q", out)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	WarnWithContext(newTestLogger(&buf, slog.LevelInfo), "fetch failed", "fetch_failed", String(FieldImpact, "thread stays empty"))
	out := buf.String()
	for _, want := range []string{"event_type=fetch_failed", "error_hint=", `impact="thread stays empty"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	WarnWithContext(nil, "ignored", "none")
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&buf, nil))
	logger.Info("only")
	if !strings.Contains(buf.String(), `"msg":"only"`) {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected noop handler when all inputs are nil")
	}
}

func TestCleanupOldLogsRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "switchscan-old.log")
	newPath := filepath.Join(dir, "switchscan-new.log")
	keepPath := filepath.Join(dir, "switchscan-current.log")
	for _, p := range []string{oldPath, newPath, keepPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, keepPath} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	CleanupOldLogs(NewNop(), 3, RetentionTarget{Dir: dir, Pattern: "switchscan-*.log", Exclude: []string{keepPath}})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{newPath, keepPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to remain: %v", p, err)
		}
	}
}
