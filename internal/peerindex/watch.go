package peerindex

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"switchscan/internal/logging"
)

const debounceWindow = 200 * time.Millisecond

// Watcher reloads the index when the file changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	onChange func(map[uint64]string)

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Watch observes the directory holding path, since atomic writes replace the
// file rather than modifying it. onChange receives each reloaded index.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(map[uint64]string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		logger:   logging.NewComponentLogger(logger, "peerindex"),
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			timerCh = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "peer index watch error", "peer_index_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "new direct message peers may not appear until restart"),
			)
		case <-timerCh:
			timerCh = nil
			index, err := Load(w.path)
			if err != nil {
				logging.WarnWithContext(w.logger, "peer index reload failed", "peer_index_reload_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "keeping previous peer list"),
				)
				continue
			}
			w.logger.Debug("peer index reloaded", logging.Int("peers", len(index)))
			if w.onChange != nil {
				w.onChange(index)
			}
		}
	}
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		err = w.watcher.Close()
	})
	return err
}
