// Package events is the typed bus between the synchronizer and its consumers.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"switchscan/internal/logging"
	"switchscan/internal/thread"
)

// Event is implemented by every bus payload.
type Event interface {
	eventName() string
}

// ThreadsChanged signals that the thread list or its labels changed.
type ThreadsChanged struct{}

// MessageAdded carries a newly admitted message. Live is false for warm-load
// and backfill admissions.
type MessageAdded struct {
	Ref     thread.Ref
	Message thread.Message
	Live    bool
}

// ReactionChanged signals a rebuilt reaction set.
type ReactionChanged struct {
	Ref       thread.Ref
	MessageID uint64
}

// HistoryExtended signals that older messages were merged into Ref and the
// view must be fully re-rendered.
type HistoryExtended struct {
	Ref   thread.Ref
	Added int
}

// ConnectionStatus reports a user-visible connection state string.
type ConnectionStatus struct {
	Text      string
	Connected bool
	Degraded  bool
}

// WarmComplete fires once the initial load has finished.
type WarmComplete struct{}

// ReactionSpoken asks the UI to narrate another user's reaction.
type ReactionSpoken struct {
	Ref       thread.Ref
	MessageID uint64
	Text      string
}

func (ThreadsChanged) eventName() string   { return "threads_changed" }
func (MessageAdded) eventName() string     { return "message_added" }
func (ReactionChanged) eventName() string  { return "reaction_changed" }
func (HistoryExtended) eventName() string  { return "history_extended" }
func (ConnectionStatus) eventName() string { return "connection_status" }
func (WarmComplete) eventName() string     { return "warm_complete" }
func (ReactionSpoken) eventName() string   { return "reaction_spoken" }

// Name returns the stable log name of an event.
func Name(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventName()
}

const defaultBuffer = 256

// Bus fans events out to subscribers without ever blocking the publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	dropped atomic.Uint64
	logger  *slog.Logger
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	bus     *Bus
	ch      chan Event
	once    sync.Once
	dropped atomic.Uint64
}

// NewBus constructs a bus. A nil logger discards drop warnings.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logging.NewComponentLogger(logger, "events"),
	}
}

// Subscribe registers a consumer with the given buffer size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &Subscription{bus: b, ch: make(chan Event, buffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every subscriber with room in its buffer. Full
// subscribers lose the event and the drop is counted.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			total := b.dropped.Add(1)
			b.logger.Warn("event dropped for slow subscriber",
				logging.String("event", ev.eventName()),
				logging.Uint64("dropped_total", total),
				logging.String(logging.FieldEventType, "event_dropped"),
				logging.String(logging.FieldImpact, "view may lag until the next full refresh"),
			)
		}
	}
}

// Dropped is the number of events lost across all subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscription channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	b.subs = nil
}

// C is the receive side. It is closed when the subscription or bus closes.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Dropped counts events this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close detaches the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.bus.subs != nil {
		delete(s.bus.subs, s)
	}
	s.once.Do(func() { close(s.ch) })
}
