package speech

import (
	"log/slog"
	"strings"
	"time"

	"switchscan/internal/config"
	"switchscan/internal/services/espeak"
)

// EngineNone narrates to the log only.
const EngineNone = "none"

// FactoryFor builds devices for the configured engine.
func FactoryFor(cfg config.Speech, logger *slog.Logger) Factory {
	engine := strings.ToLower(strings.TrimSpace(cfg.Engine))
	if engine == EngineNone {
		return func() (Device, error) { return LogDevice{Logger: logger}, nil }
	}
	return func() (Device, error) {
		return espeak.New(engine,
			espeak.WithVoice(cfg.Voice),
			espeak.WithRate(cfg.Rate),
			espeak.WithVolume(cfg.Volume),
		)
	}
}

// OptionsFor converts the configured cadences.
func OptionsFor(cfg config.Speech) Options {
	return Options{
		KeepaliveInterval: time.Duration(cfg.KeepaliveIntervalSeconds) * time.Second,
		IdleReset:         time.Duration(cfg.IdleResetSeconds) * time.Second,
	}
}
