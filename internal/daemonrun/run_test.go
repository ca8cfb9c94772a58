package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"switchscan/internal/config"
)

func TestRunRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	tests := []struct {
		name string
		run  func(context.Context, *config.Config, Options) error
	}{
		{"app", RunApp},
		{"listener", RunListener},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(context.Background(), &cfg, Options{})
			if err == nil || !strings.Contains(err.Error(), "discord.token is required") {
				t.Fatalf("expected missing token error, got %v", err)
			}
		})
	}
	if err := RunApp(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "switchscan-app-1.log")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := ensureCurrentLogPointer(filepath.Join(dir, "switchscan-app.log"), target); err != nil {
			t.Fatalf("ensureCurrentLogPointer returned error: %v", err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "switchscan-app.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "x" {
		t.Fatalf("pointer resolves to %q", data)
	}
}
