package thread

import (
	"slices"
	"sort"
	"sync"
)

type threadData struct {
	name     string
	stub     bool
	messages []Message
	unread   map[uint64]struct{}
}

// Store owns every thread plus the global seen-id set.
type Store struct {
	mu        sync.RWMutex
	threads   map[Ref]*threadData
	order     []Ref
	seen      map[uint64]Ref
	reactions map[uint64][]Reaction
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		threads:   make(map[Ref]*threadData),
		seen:      make(map[uint64]Ref),
		reactions: make(map[uint64][]Reaction),
	}
}

func (s *Store) ensureLocked(ref Ref) (*threadData, bool) {
	if t, ok := s.threads[ref]; ok {
		return t, false
	}
	t := &threadData{unread: make(map[uint64]struct{})}
	s.threads[ref] = t
	s.order = append(s.order, ref)
	return t, true
}

// Ensure creates ref if it does not exist. Stub marks that the peer identity
// is known but no content has been fetched yet.
func (s *Store) Ensure(ref Ref, name string, stub bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, created := s.ensureLocked(ref)
	if name != "" {
		t.name = name
	}
	if created {
		t.stub = stub
	}
	return created
}

// SetName updates the display name of an existing or new thread.
func (s *Store) SetName(ref Ref, name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _ := s.ensureLocked(ref)
	t.name = name
}

// Admit inserts messages into ref in timestamp order, skipping any id already
// present anywhere in the store. It returns the messages actually added.
func (s *Store) Admit(ref Ref, msgs ...Message) []Message {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _ := s.ensureLocked(ref)
	added := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID == 0 {
			continue
		}
		if _, dup := s.seen[msg.ID]; dup {
			continue
		}
		msg = msg.clone()
		idx := sort.Search(len(t.messages), func(i int) bool { return before(msg, t.messages[i]) })
		t.messages = slices.Insert(t.messages, idx, msg)
		s.seen[msg.ID] = ref
		added = append(added, msg)
	}
	if len(added) > 0 {
		t.stub = false
	}
	return added
}

// Seen reports whether id has been admitted into any thread.
func (s *Store) Seen(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Lookup returns the thread and message holding id.
func (s *Store) Lookup(id uint64) (Ref, Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.seen[id]
	if !ok {
		return Ref{}, Message{}, false
	}
	for _, msg := range s.threads[ref].messages {
		if msg.ID == id {
			return ref, msg.clone(), true
		}
	}
	return Ref{}, Message{}, false
}

func (s *Store) Has(ref Ref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.threads[ref]
	return ok
}

// Len is the number of materialized messages in ref.
func (s *Store) Len(ref Ref) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.threads[ref]; ok {
		return len(t.messages)
	}
	return 0
}

// Oldest returns the earliest message in ref.
func (s *Store) Oldest(ref Ref) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[ref]
	if !ok || len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[0].clone(), true
}

// MarkUnread flags id as unread if it belongs to ref.
func (s *Store) MarkUnread(ref Ref, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.seen[id]; !ok || owner != ref {
		return
	}
	s.threads[ref].unread[id] = struct{}{}
}

// MarkRead clears the unread flag and reports whether it was set.
func (s *Store) MarkRead(ref Ref, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[ref]
	if !ok {
		return false
	}
	if _, unread := t.unread[id]; !unread {
		return false
	}
	delete(t.unread, id)
	return true
}

// SetReactions replaces the reaction set for id wholesale.
func (s *Store) SetReactions(id uint64, reactions []Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(reactions) == 0 {
		delete(s.reactions, id)
		return
	}
	s.reactions[id] = append([]Reaction(nil), reactions...)
}

func (s *Store) Reactions(id uint64) []Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Reaction(nil), s.reactions[id]...)
}

// Snapshot is an immutable copy of one thread.
type Snapshot struct {
	Ref      Ref
	Name     string
	Stub     bool
	Messages []Message
	Unread   map[uint64]struct{}
}

// Snapshot copies ref. The second result is false when the thread is unknown.
func (s *Store) Snapshot(ref Ref) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[ref]
	if !ok {
		return Snapshot{Ref: ref}, false
	}
	snap := Snapshot{
		Ref:      ref,
		Name:     t.name,
		Stub:     t.stub,
		Messages: make([]Message, len(t.messages)),
		Unread:   make(map[uint64]struct{}, len(t.unread)),
	}
	for i, msg := range t.messages {
		snap.Messages[i] = msg.clone()
	}
	for id := range t.unread {
		snap.Unread[id] = struct{}{}
	}
	return snap, true
}

// Newest returns at most n of the most recent messages, oldest first. A
// non-positive n returns everything.
func (s Snapshot) Newest(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

func (s Snapshot) IsUnread(id uint64) bool {
	_, ok := s.Unread[id]
	return ok
}

// Summary describes one thread for list views.
type Summary struct {
	Ref      Ref     `json:"ref"`
	Name     string  `json:"name"`
	Stub     bool    `json:"stub"`
	Messages int     `json:"messages"`
	Unread   int     `json:"unread"`
	LastTS   float64 `json:"last_ts"`
}

// Threads lists every thread in creation order.
func (s *Store) Threads() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.order))
	for _, ref := range s.order {
		t := s.threads[ref]
		summary := Summary{
			Ref:      ref,
			Name:     t.name,
			Stub:     t.stub,
			Messages: len(t.messages),
			Unread:   len(t.unread),
		}
		if n := len(t.messages); n > 0 {
			summary.LastTS = t.messages[n-1].Timestamp
		}
		out = append(out, summary)
	}
	return out
}

// Refs lists every thread reference in creation order.
func (s *Store) Refs() []Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Ref(nil), s.order...)
}
