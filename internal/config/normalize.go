package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envSource resolves variables from the process environment first and the
// dotenv file second.
type envSource struct {
	file map[string]string
}

func (e envSource) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value), true
	}
	if value, ok := e.file[key]; ok {
		return strings.TrimSpace(value), true
	}
	return "", false
}

func loadEnvFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	fileValues, err := loadEnvFile(c.Paths.EnvFile)
	if err != nil {
		return err
	}
	env := envSource{file: fileValues}
	c.normalizeDiscord(env)
	if err := c.normalizeSync(env); err != nil {
		return err
	}
	if err := c.normalizeScan(env); err != nil {
		return err
	}
	c.normalizeInput()
	c.normalizeSpeech()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	files := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.heartbeat_file", &c.Paths.HeartbeatFile, defaultHeartbeatName},
		{"paths.read_state_file", &c.Paths.ReadStateFile, defaultReadStateName},
		{"paths.peer_index_file", &c.Paths.PeerIndexFile, defaultPeerIndexName},
		{"paths.listener_db", &c.Paths.ListenerDB, defaultListenerDBName},
	}
	for _, f := range files {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = filepath.Join(c.Paths.StateDir, f.fallback)
		}
		if *f.value, err = expandPath(*f.value); err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	if c.Paths.EnvFile, err = expandPath(strings.TrimSpace(c.Paths.EnvFile)); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscord(env envSource) {
	c.Discord.Token = strings.TrimSpace(c.Discord.Token)
	if c.Discord.Token == "" {
		if value, ok := env.lookup("DISCORD_TOKEN"); ok {
			c.Discord.Token = value
		}
	}
	c.Discord.GuildID = strings.TrimSpace(c.Discord.GuildID)
	if c.Discord.GuildID == "" {
		if value, ok := env.lookup("GUILD_ID"); ok {
			c.Discord.GuildID = value
		}
	}
	if len(c.Discord.ChannelIDs) == 0 {
		if value, ok := env.lookup("CHANNEL_IDS"); ok {
			c.Discord.ChannelIDs = strings.Split(value, ",")
		} else if value, ok := env.lookup("CHANNEL_ID"); ok {
			c.Discord.ChannelIDs = []string{value}
		}
	}
	ids := make([]string, 0, len(c.Discord.ChannelIDs))
	seen := make(map[string]struct{}, len(c.Discord.ChannelIDs))
	for _, id := range c.Discord.ChannelIDs {
		id = strings.TrimSpace(id)
		if id == "" || id == "0" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	c.Discord.ChannelIDs = ids
	c.Discord.DMBridgeChannelID = strings.TrimSpace(c.Discord.DMBridgeChannelID)
	if c.Discord.DMBridgeChannelID == "" {
		if value, ok := env.lookup("DM_BRIDGE_CHANNEL_ID"); ok {
			c.Discord.DMBridgeChannelID = value
		}
	}
	if c.Discord.DMBridgeChannelID == "0" {
		c.Discord.DMBridgeChannelID = ""
	}
	if c.Discord.RequestTimeoutSeconds <= 0 {
		c.Discord.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Discord.ShutdownTimeoutSeconds <= 0 {
		c.Discord.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
	if c.Discord.FetchRatePerSecond <= 0 {
		c.Discord.FetchRatePerSecond = defaultFetchRatePerSecond
	}
}

// Tuning keys from the environment override file values.
func (c *Config) normalizeSync(env envSource) error {
	ints := []struct {
		key   string
		value *int
	}{
		{"CHANNEL_INITIAL_LIMIT", &c.Sync.ChannelInitialLimit},
		{"DM_INITIAL_LIMIT", &c.Sync.DMInitialLimit},
		{"CHANNEL_RENDER_LIMIT", &c.Sync.ChannelRenderLimit},
		{"DM_RENDER_LIMIT", &c.Sync.DMRenderLimit},
		{"CHANNEL_BACKFILL_BATCH", &c.Sync.ChannelBackfillBatch},
		{"DM_BACKFILL_BATCH", &c.Sync.DMBackfillBatch},
	}
	for _, item := range ints {
		raw, ok := env.lookup(item.key)
		if !ok || raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", item.key, raw)
		}
		*item.value = parsed
	}
	bools := []struct {
		key   string
		value *bool
	}{
		{"ENABLE_SCROLL_BACKFILL", &c.Sync.EnableScrollBackfill},
		{"ENABLE_RENDER_DM_BACKFILL", &c.Sync.EnableRenderDMBackfill},
	}
	for _, item := range bools {
		raw, ok := env.lookup(item.key)
		if !ok || raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", item.key, raw)
		}
		*item.value = parsed
	}
	if c.Sync.BridgeHistoryLimit <= 0 {
		c.Sync.BridgeHistoryLimit = defaultBridgeHistoryLimit
	}
	return nil
}

func (c *Config) normalizeScan(env envSource) error {
	if raw, ok := env.lookup("FOCUS_ANCHOR_RATIO"); ok && raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("FOCUS_ANCHOR_RATIO: invalid number %q", raw)
		}
		c.Scan.FocusAnchorRatio = parsed
	}
	if c.Scan.ViewportRows <= 0 {
		c.Scan.ViewportRows = defaultViewportRows
	}
	return nil
}

func (c *Config) normalizeInput() {
	c.Input.Device = strings.TrimSpace(c.Input.Device)
	c.Input.AdvanceKey = strings.ToUpper(strings.TrimSpace(c.Input.AdvanceKey))
	if c.Input.AdvanceKey == "" {
		c.Input.AdvanceKey = defaultAdvanceKey
	}
	c.Input.ActivateKey = strings.ToUpper(strings.TrimSpace(c.Input.ActivateKey))
	if c.Input.ActivateKey == "" {
		c.Input.ActivateKey = defaultActivateKey
	}
	c.Input.Composer = strings.TrimSpace(c.Input.Composer)
}

func (c *Config) normalizeSpeech() {
	c.Speech.Engine = strings.ToLower(strings.TrimSpace(c.Speech.Engine))
	if c.Speech.Engine == "" {
		c.Speech.Engine = defaultSpeechEngine
	}
	c.Speech.Voice = strings.TrimSpace(c.Speech.Voice)
	if c.Speech.KeepaliveIntervalSeconds <= 0 {
		c.Speech.KeepaliveIntervalSeconds = defaultKeepaliveSeconds
	}
	if c.Speech.IdleResetSeconds <= 0 {
		c.Speech.IdleResetSeconds = defaultIdleResetSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
