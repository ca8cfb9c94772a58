package chatsync

import (
	"context"
	"fmt"
	"strings"

	"switchscan/internal/events"
	"switchscan/internal/logging"
	"switchscan/internal/services"
	"switchscan/internal/thread"
)

// Send posts text to ref. The confirmed message is admitted like any
// inbound one.
func (s *Synchronizer) Send(ctx context.Context, ref thread.Ref, text string) error {
	return s.post(ctx, ref, text, 0)
}

// Reply answers message id. Channels use a native reply reference; direct
// messages are prefixed with "(reply to <author>)".
func (s *Synchronizer) Reply(ctx context.Context, ref thread.Ref, id uint64, text string) error {
	if !ref.IsDirect() {
		return s.post(ctx, ref, text, id)
	}
	author := ""
	if owner, msg, ok := s.store.Lookup(id); ok && owner == ref {
		author = msg.Author
	}
	if author == "" {
		author = s.DisplayName(ref.ID())
	}
	return s.post(ctx, ref, fmt.Sprintf("(reply to %s) %s", author, text), 0)
}

func (s *Synchronizer) post(ctx context.Context, ref thread.Ref, text string, replyTo uint64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrData, componentName, "send", "empty message", nil)
	}
	if !s.Status().Connected {
		return services.Wrap(services.ErrTransport, componentName, "send", "not connected", nil)
	}
	channelID, err := s.channelFor(ctx, ref)
	if err != nil {
		return err
	}
	msg, err := s.remote.Send(ctx, channelID, text, replyTo)
	if err != nil {
		return fmt.Errorf("send to %s: %w", ref, err)
	}
	s.logger.Info("message sent",
		logging.String(logging.FieldThread, ref.String()),
		logging.Uint64(logging.FieldMessageID, msg.ID),
	)
	if msg.ChannelID == 0 {
		msg.ChannelID = channelID
	}
	if ref.IsDirect() {
		if s.store.Ensure(ref, "", false) {
			s.bus.Publish(events.ThreadsChanged{})
		}
	}
	s.admitLive(ctx, ref, msg)
	if ref.IsDirect() && s.opts.BridgeChannelID != 0 {
		s.mirrorOutgoing(ctx, ref.ID(), text)
	}
	return nil
}

func (s *Synchronizer) mirrorOutgoing(ctx context.Context, peer uint64, text string) {
	name := s.resolveUser(ctx, User{ID: peer})
	line := FormatOutgoingMirror(name, peer, text)
	if _, err := s.remote.Send(ctx, s.opts.BridgeChannelID, line, 0); err != nil {
		logging.WarnWithContext(s.logger, "mirror send failed", "mirror_failed",
			logging.Uint64("peer", peer),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mirror channel misses an outgoing message"),
		)
	}
}
