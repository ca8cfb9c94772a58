package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"switchscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Speech is silenced and no remote credentials are set unless an option
// provides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HeartbeatFile = filepath.Join(base, "state", "foreground.heartbeat")
	cfgVal.Paths.ReadStateFile = filepath.Join(base, "state", "read_state.json")
	cfgVal.Paths.PeerIndexFile = filepath.Join(base, "state", "dm_index.json")
	cfgVal.Paths.ListenerDB = filepath.Join(base, "state", "listener.db")
	cfgVal.Paths.EnvFile = ""
	cfgVal.Speech.Engine = "none"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRemote sets the token, guild, and monitored channels.
func WithRemote(token, guildID string, channelIDs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discord.Token = token
		b.cfg.Discord.GuildID = guildID
		b.cfg.Discord.ChannelIDs = append([]string(nil), channelIDs...)
	}
}

// WithBridge sets the direct message mirror channel.
func WithBridge(channelID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discord.DMBridgeChannelID = channelID
	}
}

// WithCreatedDirs creates the state and log directories up front.
func WithCreatedDirs() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default speech engine is
// stubbed and selected.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"espeak-ng"}
			b.cfg.Speech.Engine = "espeak-ng"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
