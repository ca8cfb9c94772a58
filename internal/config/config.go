package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log file locations.
type Paths struct {
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	HeartbeatFile string `toml:"heartbeat_file"`
	ReadStateFile string `toml:"read_state_file"`
	PeerIndexFile string `toml:"peer_index_file"`
	ListenerDB    string `toml:"listener_db"`
	EnvFile       string `toml:"env_file"`
}

// Discord contains the chat service credentials and transport tuning.
type Discord struct {
	Token                  string   `toml:"token"`
	GuildID                string   `toml:"guild_id"`
	ChannelIDs             []string `toml:"channel_ids"`
	DMBridgeChannelID      string   `toml:"dm_bridge_channel_id"`
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
	FetchRatePerSecond     float64  `toml:"fetch_rate_per_second"`
}

// Sync contains message fetch, render, and backfill limits.
type Sync struct {
	ChannelInitialLimit    int  `toml:"channel_initial_limit"`
	DMInitialLimit         int  `toml:"dm_initial_limit"`
	ChannelRenderLimit     int  `toml:"channel_render_limit"`
	DMRenderLimit          int  `toml:"dm_render_limit"`
	ChannelBackfillBatch   int  `toml:"channel_backfill_batch"`
	DMBackfillBatch        int  `toml:"dm_backfill_batch"`
	EnableScrollBackfill   bool `toml:"enable_scroll_backfill"`
	EnableRenderDMBackfill bool `toml:"enable_render_dm_backfill"`
	BridgeHistoryLimit     int  `toml:"bridge_history_limit"`
}

// Scan contains switch timing and anchoring settings.
type Scan struct {
	AdvanceHoldMs    int     `toml:"advance_hold_ms"`
	AdvanceRepeatMs  int     `toml:"advance_repeat_ms"`
	ActivateHoldMs   int     `toml:"activate_hold_ms"`
	CooldownMs       int     `toml:"cooldown_ms"`
	FocusAnchorRatio float64 `toml:"focus_anchor_ratio"`
	ViewportRows     int     `toml:"viewport_rows"`
}

// Input selects the switch device and key bindings.
type Input struct {
	Device      string `toml:"device"`
	AdvanceKey  string `toml:"advance_key"`
	ActivateKey string `toml:"activate_key"`
	Grab        bool   `toml:"grab"`
	// Composer is an optional command that prints composed text on stdout.
	Composer string `toml:"composer"`
}

// Speech configures the narration engine.
type Speech struct {
	Engine                   string `toml:"engine"`
	Voice                    string `toml:"voice"`
	Rate                     int    `toml:"rate"`
	Volume                   int    `toml:"volume"`
	KeepaliveIntervalSeconds int    `toml:"keepalive_interval_seconds"`
	IdleResetSeconds         int    `toml:"idle_reset_seconds"`
}

// Liveness configures the foreground heartbeat handshake.
type Liveness struct {
	IntervalMs   int `toml:"interval_ms"`
	StaleAfterMs int `toml:"stale_after_ms"`
}

// Listener configures the background direct message listener.
type Listener struct {
	ProcessedRetention    int `toml:"processed_retention"`
	AnnounceWindowSeconds int `toml:"announce_window_seconds"`
	AnnounceWords         int `toml:"announce_words"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for switchscan.
//
// Configuration sections by subsystem:
//   - Paths: state, log, heartbeat, read-state, and peer index locations
//   - Discord: credentials, monitored channels, and the mirror channel
//   - Sync: initial fetch, render, and backfill limits
//   - Scan: hold thresholds, cooldown, and the focus anchor ratio
//   - Input: switch device and key bindings
//   - Speech: narration engine and keepalive cadence
//   - Liveness: heartbeat cadence and staleness threshold
//   - Listener: background DM listener retention and announce window
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Discord  Discord  `toml:"discord"`
	Sync     Sync     `toml:"sync"`
	Scan     Scan     `toml:"scan"`
	Input    Input    `toml:"input"`
	Speech   Speech   `toml:"speech"`
	Liveness Liveness `toml:"liveness"`
	Listener Listener `toml:"listener"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/switchscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/switchscan/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("switchscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	for _, file := range []string{c.Paths.HeartbeatFile, c.Paths.ReadStateFile, c.Paths.PeerIndexFile, c.Paths.ListenerDB} {
		if strings.TrimSpace(file) != "" {
			dirs = append(dirs, filepath.Dir(file))
		}
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the IPC socket location for the foreground app.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "switchscan.sock")
}

// LockPath returns the single-instance lock file for the named process role.
func (c *Config) LockPath(role string) string {
	return filepath.Join(c.Paths.StateDir, role+".lock")
}

// PrimaryChannelID is the channel presented as the main thread.
func (c *Config) PrimaryChannelID() string {
	if len(c.Discord.ChannelIDs) == 0 {
		return ""
	}
	return c.Discord.ChannelIDs[0]
}

// RequestTimeout bounds a single remote request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Discord.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds the graceful remote disconnect.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Discord.ShutdownTimeoutSeconds) * time.Second
}

// Timings holds the scan durations converted from milliseconds.
type Timings struct {
	AdvanceHold   time.Duration
	AdvanceRepeat time.Duration
	ActivateHold  time.Duration
	Cooldown      time.Duration
}

// ScanTimings returns the configured switch timings.
func (c *Config) ScanTimings() Timings {
	return Timings{
		AdvanceHold:   time.Duration(c.Scan.AdvanceHoldMs) * time.Millisecond,
		AdvanceRepeat: time.Duration(c.Scan.AdvanceRepeatMs) * time.Millisecond,
		ActivateHold:  time.Duration(c.Scan.ActivateHoldMs) * time.Millisecond,
		Cooldown:      time.Duration(c.Scan.CooldownMs) * time.Millisecond,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "switchscan")
	}
	return "~/.local/state/switchscan"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML with the token redacted.
func (c *Config) Encode() (string, error) {
	clone := *c
	if clone.Discord.Token != "" {
		clone.Discord.Token = "<redacted>"
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
