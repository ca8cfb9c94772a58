package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, false)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	if strings.Contains(out, "Warning:") {
		t.Fatalf("credentials are configured; got %q", out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.socketPath, target)
	if err != nil {
		t.Fatalf("config validate sample: %v", err)
	}
	requireContains(t, out, "Warning: discord.token is required")
}

func TestConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t, false)
	out, _, err := runCLI(t, []string{"config", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "secret-token") {
		t.Fatalf("token leaked in config show output:\n%s", out)
	}
	requireContains(t, out, "<redacted>")
	requireContains(t, out, "[sync]")
}
