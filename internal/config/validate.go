package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedSpeechEngines = map[string]struct{}{
	"espeak-ng": {},
	"espeak":    {},
	"spd-say":   {},
	"none":      {},
}

// Validate ensures the configuration is usable. Discord credentials are
// checked separately by ValidateRemote because offline commands do not
// need them.
func (c *Config) Validate() error {
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateLiveness(); err != nil {
		return err
	}
	if err := c.validateListener(); err != nil {
		return err
	}
	return nil
}

// ValidateRemote ensures the chat service credentials are present.
func (c *Config) ValidateRemote() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/switchscan/config.toml"
	}
	if strings.TrimSpace(c.Discord.Token) == "" {
		return fmt.Errorf("discord.token is required. Set DISCORD_TOKEN env var or edit %s (create with 'switchscan config init')", defaultPath)
	}
	if strings.TrimSpace(c.Discord.GuildID) == "" {
		return errors.New("discord.guild_id is required (or set GUILD_ID)")
	}
	if len(c.Discord.ChannelIDs) == 0 {
		return errors.New("discord.channel_ids must include at least one channel (or set CHANNEL_IDS)")
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"sync.channel_initial_limit":  c.Sync.ChannelInitialLimit,
		"sync.dm_initial_limit":       c.Sync.DMInitialLimit,
		"sync.channel_render_limit":   c.Sync.ChannelRenderLimit,
		"sync.dm_render_limit":        c.Sync.DMRenderLimit,
		"sync.channel_backfill_batch": c.Sync.ChannelBackfillBatch,
		"sync.dm_backfill_batch":      c.Sync.DMBackfillBatch,
	}); err != nil {
		return err
	}
	if c.Sync.ChannelInitialLimit > 100 || c.Sync.DMInitialLimit > 100 {
		return errors.New("sync initial limits must not exceed 100 messages per request")
	}
	return nil
}

func (c *Config) validateScan() error {
	if err := ensurePositiveMap(map[string]int{
		"scan.advance_hold_ms":   c.Scan.AdvanceHoldMs,
		"scan.advance_repeat_ms": c.Scan.AdvanceRepeatMs,
		"scan.activate_hold_ms":  c.Scan.ActivateHoldMs,
	}); err != nil {
		return err
	}
	if c.Scan.CooldownMs < 0 {
		return errors.New("scan.cooldown_ms must be >= 0")
	}
	if c.Scan.FocusAnchorRatio < 0 || c.Scan.FocusAnchorRatio > 1 {
		return errors.New("scan.focus_anchor_ratio must be between 0 and 1")
	}
	if c.Input.AdvanceKey == c.Input.ActivateKey {
		return errors.New("input.advance_key and input.activate_key must differ")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	if _, ok := supportedSpeechEngines[c.Speech.Engine]; !ok {
		return fmt.Errorf("speech.engine: unsupported value %q", c.Speech.Engine)
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 200 {
		return errors.New("speech.volume must be between 0 and 200")
	}
	if c.Speech.Rate < 0 {
		return errors.New("speech.rate must be >= 0")
	}
	return nil
}

func (c *Config) validateLiveness() error {
	if c.Liveness.IntervalMs <= 0 {
		return errors.New("liveness.interval_ms must be positive")
	}
	if c.Liveness.StaleAfterMs <= 0 {
		return errors.New("liveness.stale_after_ms must be positive")
	}
	if c.Liveness.StaleAfterMs <= c.Liveness.IntervalMs {
		return errors.New("liveness.stale_after_ms must be greater than liveness.interval_ms")
	}
	return nil
}

func (c *Config) validateListener() error {
	if c.Listener.ProcessedRetention < 1 {
		return errors.New("listener.processed_retention must be >= 1")
	}
	if c.Listener.AnnounceWindowSeconds < 0 {
		return errors.New("listener.announce_window_seconds must be >= 0")
	}
	if c.Listener.AnnounceWords < 1 {
		return errors.New("listener.announce_words must be >= 1")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
