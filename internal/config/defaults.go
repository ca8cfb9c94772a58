package config

const (
	defaultLogDir                 = "~/.local/share/switchscan/logs"
	defaultHeartbeatName          = "foreground.heartbeat"
	defaultReadStateName          = "read_state.json"
	defaultPeerIndexName          = "dm_index.json"
	defaultListenerDBName         = "listener.db"
	defaultEnvFile                = "~/.config/switchscan/.env"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultRequestTimeoutSeconds  = 10
	defaultShutdownTimeoutSeconds = 5
	defaultFetchRatePerSecond     = 5
	defaultChannelInitialLimit    = 25
	defaultDMInitialLimit         = 10
	defaultChannelRenderLimit     = 25
	defaultDMRenderLimit          = 10
	defaultChannelBackfillBatch   = 20
	defaultDMBackfillBatch        = 10
	defaultBridgeHistoryLimit     = 200
	defaultAdvanceHoldMs          = 3000
	defaultAdvanceRepeatMs        = 2000
	defaultActivateHoldMs         = 2500
	defaultCooldownMs             = 1000
	defaultFocusAnchorRatio       = 0.5
	defaultViewportRows           = 24
	defaultAdvanceKey             = "KEY_SPACE"
	defaultActivateKey            = "KEY_ENTER"
	defaultSpeechEngine           = "espeak-ng"
	defaultSpeechRate             = 175
	defaultSpeechVolume           = 100
	defaultKeepaliveSeconds       = 5
	defaultIdleResetSeconds       = 30
	defaultLivenessIntervalMs     = 2000
	defaultLivenessStaleAfterMs   = 5000
	defaultProcessedRetention     = 2000
	defaultAnnounceWindowSeconds  = 120
	defaultAnnounceWords          = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir(),
			LogDir:   defaultLogDir,
			EnvFile:  defaultEnvFile,
		},
		Discord: Discord{
			RequestTimeoutSeconds:  defaultRequestTimeoutSeconds,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
			FetchRatePerSecond:     defaultFetchRatePerSecond,
		},
		Sync: Sync{
			ChannelInitialLimit:    defaultChannelInitialLimit,
			DMInitialLimit:         defaultDMInitialLimit,
			ChannelRenderLimit:     defaultChannelRenderLimit,
			DMRenderLimit:          defaultDMRenderLimit,
			ChannelBackfillBatch:   defaultChannelBackfillBatch,
			DMBackfillBatch:        defaultDMBackfillBatch,
			EnableScrollBackfill:   true,
			EnableRenderDMBackfill: false,
			BridgeHistoryLimit:     defaultBridgeHistoryLimit,
		},
		Scan: Scan{
			AdvanceHoldMs:    defaultAdvanceHoldMs,
			AdvanceRepeatMs:  defaultAdvanceRepeatMs,
			ActivateHoldMs:   defaultActivateHoldMs,
			CooldownMs:       defaultCooldownMs,
			FocusAnchorRatio: defaultFocusAnchorRatio,
			ViewportRows:     defaultViewportRows,
		},
		Input: Input{
			AdvanceKey:  defaultAdvanceKey,
			ActivateKey: defaultActivateKey,
			Grab:        true,
		},
		Speech: Speech{
			Engine:                   defaultSpeechEngine,
			Rate:                     defaultSpeechRate,
			Volume:                   defaultSpeechVolume,
			KeepaliveIntervalSeconds: defaultKeepaliveSeconds,
			IdleResetSeconds:         defaultIdleResetSeconds,
		},
		Liveness: Liveness{
			IntervalMs:   defaultLivenessIntervalMs,
			StaleAfterMs: defaultLivenessStaleAfterMs,
		},
		Listener: Listener{
			ProcessedRetention:    defaultProcessedRetention,
			AnnounceWindowSeconds: defaultAnnounceWindowSeconds,
			AnnounceWords:         defaultAnnounceWords,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
