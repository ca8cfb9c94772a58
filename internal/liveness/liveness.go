// Package liveness implements the heartbeat-file handshake between the
// foreground app and the background listener.
package liveness

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"switchscan/internal/fileutil"
	"switchscan/internal/logging"
)

// Heartbeat rewrites its file on a fixed cadence while the app is active.
type Heartbeat struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
}

func NewHeartbeat(path string, interval time.Duration, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Heartbeat{path: path, interval: interval, logger: logging.NewComponentLogger(logger, "liveness")}
}

// Beat writes the current unix time to the file.
func (h *Heartbeat) Beat(now time.Time) error {
	return fileutil.WriteFileAtomic(h.path, []byte(strconv.FormatInt(now.Unix(), 10)+"\n"), 0o644)
}

// Run beats immediately and then on every interval until ctx ends, at which
// point the file is removed.
func (h *Heartbeat) Run(ctx context.Context) error {
	if err := h.Beat(time.Now()); err != nil {
		return err
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer h.Clear()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := h.Beat(now); err != nil {
				logging.WarnWithContext(h.logger, "heartbeat write failed", "heartbeat_failed",
					logging.String("path", h.path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "background listener may narrate over the app"),
				)
			}
		}
	}
}

// Clear removes the heartbeat file.
func (h *Heartbeat) Clear() {
	if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.logger.Debug("heartbeat remove failed", logging.Error(err))
	}
}

// Age returns how long ago the file was last written.
func Age(path string, now time.Time) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	age := now.Sub(info.ModTime())
	if age < 0 {
		age = 0
	}
	return age, true
}

// Fresh reports whether the foreground app wrote the file within staleAfter.
func Fresh(path string, staleAfter time.Duration, now time.Time) bool {
	age, ok := Age(path, now)
	return ok && age < staleAfter
}
