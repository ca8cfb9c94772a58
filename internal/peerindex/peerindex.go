// Package peerindex reads and writes the persisted map of direct-message
// peers to display names. The listener process is the only writer; the
// interactive app loads it and watches it for changes.
package peerindex

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"switchscan/internal/fileutil"
	"switchscan/internal/services"
)

// Load reads path into a peer id to display name map. A missing file is an
// empty index. Entries with non-numeric keys are skipped.
func Load(path string) (map[uint64]string, error) {
	raw := map[string]string{}
	if _, err := fileutil.ReadJSON(path, &raw); err != nil {
		return map[uint64]string{}, services.Wrap(services.ErrData, "peerindex", "load", "", err)
	}
	out := make(map[uint64]string, len(raw))
	for key, name := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		out[id] = strings.TrimSpace(name)
	}
	return out, nil
}

// Save writes index atomically.
func Save(path string, index map[uint64]string) error {
	raw := make(map[string]string, len(index))
	for id, name := range index {
		raw[strconv.FormatUint(id, 10)] = name
	}
	if err := fileutil.WriteJSONAtomic(path, raw); err != nil {
		return fmt.Errorf("save peer index: %w", err)
	}
	return nil
}

// Writer serializes read-modify-write updates from the listener.
type Writer struct {
	path string
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Remember stores name for id, writing only when the entry changes. It
// reports whether the file was rewritten.
func (w *Writer) Remember(id uint64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if id == 0 || name == "" {
		return false, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	index, err := Load(w.path)
	if err != nil {
		index = map[uint64]string{}
	}
	if index[id] == name {
		return false, nil
	}
	index[id] = name
	if err := Save(w.path, index); err != nil {
		return false, err
	}
	return true, nil
}
