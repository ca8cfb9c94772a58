package chatsync

import (
	"context"
	"fmt"

	"switchscan/internal/events"
	"switchscan/internal/logging"
	"switchscan/internal/services"
	"switchscan/internal/thread"
)

func errNoChannel(ref thread.Ref) error {
	return services.Wrap(services.ErrNotFound, componentName, "resolve channel", fmt.Sprintf("no channel for %s", ref), nil)
}

// EnsureHistory grows ref to at least k messages by fetching older history
// before the oldest known message. Concurrent calls for one thread share a
// single fetch. Messages already admitted elsewhere are skipped.
func (s *Synchronizer) EnsureHistory(ctx context.Context, ref thread.Ref, k int) error {
	for {
		if k <= 0 || s.store.Len(ref) >= k {
			return nil
		}
		s.mu.Lock()
		wait, busy := s.inflight[ref]
		if !busy {
			done := make(chan struct{})
			s.inflight[ref] = done
			s.mu.Unlock()
			err := s.backfill(ctx, ref, k)
			s.mu.Lock()
			delete(s.inflight, ref)
			s.mu.Unlock()
			close(done)
			return err
		}
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Synchronizer) backfill(ctx context.Context, ref thread.Ref, k int) error {
	have := s.store.Len(ref)
	need := k - have
	if need <= 0 {
		return nil
	}
	channelID, err := s.channelFor(ctx, ref)
	if err != nil {
		return err
	}
	var before uint64
	if oldest, ok := s.store.Oldest(ref); ok {
		before = oldest.ID
	}
	msgs, err := s.history(ctx, channelID, need, before)
	added := s.admit(ctx, ref, msgs, false)
	s.logger.Debug("history extended",
		logging.String(logging.FieldThread, ref.String()),
		logging.Int("requested", need),
		logging.Int("added", len(added)),
	)
	s.bus.Publish(events.HistoryExtended{Ref: ref, Added: len(added)})
	if err != nil {
		return fmt.Errorf("backfill %s: %w", ref, err)
	}
	return nil
}

// FetchRecent admits the newest n messages of ref. It is used after the
// warm load so direct message stubs pick up offline unread messages.
func (s *Synchronizer) FetchRecent(ctx context.Context, ref thread.Ref, n int) error {
	if n <= 0 {
		return nil
	}
	channelID, err := s.channelFor(ctx, ref)
	if err != nil {
		return err
	}
	msgs, err := s.history(ctx, channelID, n, 0)
	if err != nil {
		return fmt.Errorf("fetch recent %s: %w", ref, err)
	}
	added := s.admit(ctx, ref, msgs, false)
	s.bus.Publish(events.HistoryExtended{Ref: ref, Added: len(added)})
	return nil
}
