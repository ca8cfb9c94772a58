package chatsync

import (
	"context"

	"switchscan/internal/events"
	"switchscan/internal/logging"
	"switchscan/internal/thread"
)

// handleMessage routes a live message: monitored channels are admitted,
// the mirror channel only teaches identities, and direct messages are
// admitted to the peer's thread.
func (s *Synchronizer) handleMessage(ctx context.Context, m RemoteMessage) {
	if ref, ok := s.monitoredRef(m.ChannelID); ok {
		s.admitLive(ctx, ref, m)
		return
	}
	if s.opts.BridgeChannelID != 0 && m.ChannelID == s.opts.BridgeChannelID {
		if s.learnFromMirror(m.Content) {
			s.bus.Publish(events.ThreadsChanged{})
		}
		return
	}
	if m.GuildID != 0 {
		return
	}
	peer, ok := s.peerFor(ctx, m)
	if !ok {
		return
	}
	ref := thread.Direct(peer)
	created := s.store.Ensure(ref, "", false)
	if m.Author.ID == peer {
		if name := s.resolveUser(ctx, m.Author); name != fallbackName {
			s.store.SetName(ref, name)
		}
	}
	if created {
		s.bus.Publish(events.ThreadsChanged{})
	}
	s.admitLive(ctx, ref, m)
}

func (s *Synchronizer) admitLive(ctx context.Context, ref thread.Ref, m RemoteMessage) {
	live := s.warmed()
	created := !s.store.Has(ref)
	added := s.admit(ctx, ref, []RemoteMessage{m}, live)
	if created {
		s.bus.Publish(events.ThreadsChanged{})
	}
	for _, msg := range added {
		s.logger.Debug("message admitted",
			logging.String(logging.FieldThread, ref.String()),
			logging.Uint64(logging.FieldMessageID, msg.ID),
			logging.Bool("live", live),
		)
		s.bus.Publish(events.MessageAdded{Ref: ref, Message: msg, Live: live})
	}
}

func (s *Synchronizer) monitoredRef(channelID uint64) (thread.Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.monitored[channelID]
	return ref, ok
}

// peerFor resolves the other participant of a direct message channel:
// the channel's declared recipient, else an author who is not me. Self
// direct messages resolve to nothing.
func (s *Synchronizer) peerFor(ctx context.Context, m RemoteMessage) (uint64, bool) {
	self := s.Self()
	s.mu.Lock()
	peer, known := s.dmPeers[m.ChannelID]
	s.mu.Unlock()
	if !known {
		var ch Channel
		err := s.call(ctx, "channel", func(ctx context.Context) error {
			var err error
			ch, err = s.remote.Channel(ctx, m.ChannelID)
			return err
		})
		if err == nil && ch.Recipient != nil && ch.Recipient.ID != 0 {
			peer = ch.Recipient.ID
			s.rememberHint(peer, ch.Recipient.Name())
		} else if m.Author.ID != 0 && m.Author.ID != self.ID {
			peer = m.Author.ID
		}
	}
	if peer == 0 || (self.ID != 0 && peer == self.ID) {
		return 0, false
	}
	s.linkDirect(peer, m.ChannelID)
	return peer, true
}

func (s *Synchronizer) linkDirect(peer, channelID uint64) {
	if peer == 0 || channelID == 0 {
		return
	}
	s.mu.Lock()
	s.dmPeers[channelID] = peer
	s.dmChans[peer] = channelID
	s.mu.Unlock()
}

// channelFor maps ref to the remote channel that holds it.
func (s *Synchronizer) channelFor(ctx context.Context, ref thread.Ref) (uint64, error) {
	switch ref.Kind() {
	case thread.KindMain:
		if len(s.opts.ChannelIDs) == 0 {
			return 0, errNoChannel(ref)
		}
		return s.opts.ChannelIDs[0], nil
	case thread.KindChannel:
		return ref.ID(), nil
	case thread.KindDirect:
		s.mu.Lock()
		id, ok := s.dmChans[ref.ID()]
		s.mu.Unlock()
		if ok {
			return id, nil
		}
		var ch Channel
		err := s.call(ctx, "direct_channel", func(ctx context.Context) error {
			var err error
			ch, err = s.remote.DirectChannel(ctx, ref.ID())
			return err
		})
		if err != nil {
			return 0, err
		}
		s.linkDirect(ref.ID(), ch.ID)
		return ch.ID, nil
	}
	return 0, errNoChannel(ref)
}
