// Package readstate persists which messages the user has read, so unread
// markers survive restarts without delivery receipts from the chat service.
package readstate

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"switchscan/internal/fileutil"
	"switchscan/internal/services"
	"switchscan/internal/thread"
)

type fileFormat struct {
	ReadIDs    []uint64 `json:"read_ids"`
	LastSeenTS float64  `json:"last_seen_ts"`
}

// Store tracks read ids and the last shutdown time.
type Store struct {
	path string

	mu       sync.Mutex
	read     map[uint64]struct{}
	lastSeen float64
	dirty    bool
}

// Open loads path. A missing file yields an empty store. A corrupt file
// returns an empty store together with an ErrData error so the caller can
// log it and continue.
func Open(path string) (*Store, error) {
	s := &Store{path: path, read: make(map[uint64]struct{})}
	var payload fileFormat
	found, err := fileutil.ReadJSON(path, &payload)
	if err != nil {
		if found {
			return s, services.Wrap(services.ErrData, "readstate", "load", "ignoring corrupt read state", err)
		}
		return s, services.Wrap(services.ErrData, "readstate", "load", "", err)
	}
	for _, id := range payload.ReadIDs {
		s.read[id] = struct{}{}
	}
	s.lastSeen = payload.LastSeenTS
	return s, nil
}

// LastSeen is the wall-clock time of the previous shutdown in unix seconds.
func (s *Store) LastSeen() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Unread applies the offline rule: a message from someone else, newer than
// the last shutdown and never read, is unread. Nothing is unread on the
// first run.
func (s *Store) Unread(msg thread.Message) bool {
	if msg.FromSelf {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeen <= 0 || msg.Timestamp <= s.lastSeen {
		return false
	}
	_, read := s.read[msg.ID]
	return !read
}

func (s *Store) IsRead(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.read[id]
	return ok
}

// MarkRead records id as read.
func (s *Store) MarkRead(id uint64) {
	if id == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.read[id]; ok {
		return
	}
	s.read[id] = struct{}{}
	s.dirty = true
}

// Save writes the state atomically, stamping last_seen_ts with now.
func (s *Store) Save(now time.Time) error {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.read))
	for id := range s.read {
		ids = append(ids, id)
	}
	s.lastSeen = float64(now.UnixNano()) / 1e9
	payload := fileFormat{ReadIDs: ids, LastSeenTS: s.lastSeen}
	s.dirty = false
	s.mu.Unlock()

	slices.Sort(payload.ReadIDs)
	if err := fileutil.WriteJSONAtomic(s.path, payload); err != nil {
		return fmt.Errorf("save read state: %w", err)
	}
	return nil
}

// Dirty reports whether MarkRead has changed anything since the last Save.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
