package chatsync

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"switchscan/internal/events"
	"switchscan/internal/logging"
	"switchscan/internal/thread"
)

const warmConcurrency = 4

// warmLoad fetches the recent history of every monitored channel and
// indexes direct message peers from open channels, the peer index, and
// the mirror channel. Failures are logged per source and never abort the
// others.
func (s *Synchronizer) warmLoad(ctx context.Context) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	for _, id := range s.opts.ChannelIDs {
		ref, ok := s.monitoredRef(id)
		if !ok {
			continue
		}
		s.store.Ensure(ref, "", false)
		g.Go(func() error {
			s.loadChannel(gctx, ref, id)
			return nil
		})
	}
	g.Go(func() error {
		s.indexPrivateChannels(gctx)
		return nil
	})
	g.Go(func() error {
		s.indexPeers(s.opts.Peers)
		return nil
	})
	if s.opts.BridgeChannelID != 0 {
		g.Go(func() error {
			s.indexMirrorHistory(gctx)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.status.Warm = true
	s.mu.Unlock()
	s.logger.Info("warm load complete",
		logging.Int("threads", len(s.store.Refs())),
		logging.Duration("elapsed", time.Since(start)),
	)
	s.bus.Publish(events.ThreadsChanged{})
	s.bus.Publish(events.WarmComplete{})

	limit := s.opts.Limits.DMInitialLimit
	for _, ref := range s.store.Refs() {
		if !ref.IsDirect() {
			continue
		}
		s.Go("fetch_recent", func(ctx context.Context) error {
			return s.FetchRecent(ctx, ref, limit)
		})
	}
}

func (s *Synchronizer) loadChannel(ctx context.Context, ref thread.Ref, id uint64) {
	var ch Channel
	if err := s.call(ctx, "channel", func(ctx context.Context) error {
		var err error
		ch, err = s.remote.Channel(ctx, id)
		return err
	}); err != nil {
		logging.WarnWithContext(s.logger, "channel not found or invalid", "channel_lookup_failed",
			logging.String(logging.FieldThread, ref.String()),
			logging.Uint64("channel_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check discord.channel_ids and bot permissions"),
			logging.String(logging.FieldImpact, "channel is listed without history"),
		)
		return
	}
	if ch.Name != "" {
		s.store.SetName(ref, ch.Name)
	}
	msgs, err := s.history(ctx, id, s.opts.Limits.ChannelInitialLimit, 0)
	if err != nil {
		logging.WarnWithContext(s.logger, "channel history fetch failed", "history_failed",
			logging.String(logging.FieldThread, ref.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "channel starts empty"),
		)
		return
	}
	added := s.admit(ctx, ref, msgs, false)
	s.logger.Debug("channel warmed",
		logging.String(logging.FieldThread, ref.String()),
		logging.Int("messages", len(added)),
	)
}

func (s *Synchronizer) indexPrivateChannels(ctx context.Context) {
	self := s.Self()
	for _, ch := range s.remote.PrivateChannels() {
		if ch.Recipient == nil || ch.Recipient.ID == 0 || ch.Recipient.ID == self.ID {
			continue
		}
		peer := ch.Recipient.ID
		s.linkDirect(peer, ch.ID)
		name := s.resolveUser(ctx, *ch.Recipient)
		if name == fallbackName {
			name = ""
		}
		s.store.Ensure(thread.Direct(peer), name, true)
	}
}

func (s *Synchronizer) indexMirrorHistory(ctx context.Context) {
	msgs, err := s.history(ctx, s.opts.BridgeChannelID, s.opts.Limits.BridgeHistoryLimit, 0)
	if err != nil {
		logging.WarnWithContext(s.logger, "mirror history fetch failed", "mirror_history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "older direct message peers may be missing from the list"),
		)
		return
	}
	// Oldest first so later lines win name updates.
	slices.Reverse(msgs)
	for _, m := range msgs {
		s.learnFromMirror(m.Content)
	}
}

// history pages backwards from beforeID until limit messages were fetched
// or the channel is exhausted. The result is newest first.
func (s *Synchronizer) history(ctx context.Context, channelID uint64, limit int, beforeID uint64) ([]RemoteMessage, error) {
	var out []RemoteMessage
	for limit > 0 {
		batch := min(limit, maxPageSize)
		var page []RemoteMessage
		err := s.call(ctx, "history", func(ctx context.Context) error {
			var err error
			page, err = s.remote.History(ctx, channelID, batch, beforeID)
			return err
		})
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		if len(page) < batch {
			break
		}
		limit -= len(page)
		beforeID = page[len(page)-1].ID
	}
	return out, nil
}
