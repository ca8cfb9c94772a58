package main

import (
	"path/filepath"
	"strings"
	"testing"

	"switchscan/internal/logs"
	"switchscan/internal/testsupport"
)

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t, false)
	logDir := filepath.Join(filepath.Dir(filepath.Dir(env.stateDir)), "logs")
	testsupport.WriteLines(t, logs.CurrentPath(logDir, "listener"),
		`{"ts":"2026-01-02T03:04:05Z","level":"info","component":"listener","msg":"listener started","channels":1}`,
		`{"ts":"2026-01-02T03:04:06Z","level":"info","component":"listener","msg":"listener stopped"}`,
	)

	t.Run("formatted tail", func(t *testing.T) {
		out, _, err := runCLI(t, []string{"logs", "--listener", "-n", "1"}, env.socketPath, env.configPath)
		if err != nil {
			t.Fatalf("logs: %v", err)
		}
		requireContains(t, out, "INFO  [listener] listener stopped")
		if strings.Contains(out, "listener started") {
			t.Fatalf("expected only the last line, got %q", out)
		}
	})

	t.Run("raw", func(t *testing.T) {
		out, _, err := runCLI(t, []string{"logs", "--listener", "--raw"}, env.socketPath, env.configPath)
		if err != nil {
			t.Fatalf("logs: %v", err)
		}
		requireContains(t, out, `"msg":"listener started"`)
	})

	t.Run("empty app log", func(t *testing.T) {
		out, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
		if err != nil {
			t.Fatalf("logs: %v", err)
		}
		requireContains(t, out, "No log entries available")
	})
}
