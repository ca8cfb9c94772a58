package logs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// resyncInterval rereads the file even without notifications, which some
// filesystems never deliver.
const resyncInterval = 2 * time.Second

// Follow calls emit for every line appended to path after offset until ctx
// ends. When path is replaced by a different file, reading restarts at the
// top of the new file. When the file shrinks, reading restarts at zero.
func Follow(ctx context.Context, path string, offset int64, emit func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create log watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch log directory: %w", err)
	}

	current, _ := os.Stat(path)
	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()

	drain := func() error {
		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		if current != nil && !os.SameFile(current, info) {
			offset = 0
		}
		current = info
		if info.Size() < offset {
			offset = 0
		}
		lines, next, err := readFrom(path, offset)
		offset = next
		for _, line := range lines {
			emit(line)
		}
		return err
	}

	if err := drain(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if err := drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher: %w", err)
		case <-ticker.C:
			if err := drain(); err != nil {
				return err
			}
		}
	}
}
