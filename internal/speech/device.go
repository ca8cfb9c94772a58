package speech

import (
	"context"
	"log/slog"

	"switchscan/internal/logging"
)

// Device speaks one utterance at a time.
type Device interface {
	// Speak blocks until playback finishes or ctx is cancelled.
	Speak(ctx context.Context, text string) error
	// Probe performs a harmless health check.
	Probe(ctx context.Context) error
	Close() error
}

// Factory builds a fresh Device. It is called at start, on Reset, and after
// any failure.
type Factory func() (Device, error)

// LogDevice writes utterances to a logger instead of audio. It backs the
// "none" speech engine.
type LogDevice struct {
	Logger *slog.Logger
}

func (d LogDevice) Speak(_ context.Context, text string) error {
	if d.Logger != nil {
		d.Logger.Info("narration", logging.String("text", text))
	}
	return nil
}

func (LogDevice) Probe(context.Context) error { return nil }

func (LogDevice) Close() error { return nil }
