package chatsync

import (
	"context"
	"fmt"
	"strings"

	"switchscan/internal/events"
	"switchscan/internal/logging"
	"switchscan/internal/thread"
)

var spokenNames = map[string]string{
	"👍":  "thumbs up",
	"👎":  "thumbs down",
	"❤️": "heart",
	"❤":  "heart",
	"😂":  "laughing face",
}

// SpokenReaction names an emoji for narration. Custom emoji read their
// name with underscores as spaces.
func SpokenReaction(emoji, emojiID string) string {
	if emojiID != "" {
		if name := strings.TrimSpace(strings.ReplaceAll(emoji, "_", " ")); name != "" {
			return name
		}
		return "emoji"
	}
	if name, ok := spokenNames[emoji]; ok {
		return name
	}
	return "emoji"
}

func convertReactions(rs []Reaction) []thread.Reaction {
	if len(rs) == 0 {
		return nil
	}
	out := make([]thread.Reaction, 0, len(rs))
	for _, r := range rs {
		count := r.Count
		if count <= 0 {
			count = 1
		}
		out = append(out, thread.Reaction{
			Symbol:      r.Emoji,
			DisplayName: SpokenReaction(r.Emoji, r.EmojiID),
			Count:       count,
			Me:          r.Me,
			EmojiID:     r.EmojiID,
		})
	}
	return out
}

// refFor finds the thread a message belongs to.
func (s *Synchronizer) refFor(channelID, messageID uint64) (thread.Ref, bool) {
	if ref, ok := s.monitoredRef(channelID); ok {
		return ref, true
	}
	s.mu.Lock()
	peer, ok := s.dmPeers[channelID]
	s.mu.Unlock()
	if ok {
		return thread.Direct(peer), true
	}
	if ref, _, ok := s.store.Lookup(messageID); ok {
		return ref, true
	}
	return thread.Ref{}, false
}

// handleReaction rebuilds the reaction set from the authoritative message
// and narrates additions by other users on materialized messages.
func (s *Synchronizer) handleReaction(ctx context.Context, ev ReactionEvent) {
	ref, ok := s.refFor(ev.ChannelID, ev.MessageID)
	if !ok {
		return
	}
	if err := s.refreshReactions(ctx, ref, ev.ChannelID, ev.MessageID); err != nil {
		logging.WarnWithContext(s.logger, "reaction refresh failed", "reaction_refresh_failed",
			logging.String(logging.FieldThread, ref.String()),
			logging.Uint64(logging.FieldMessageID, ev.MessageID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "reaction badges may be stale"),
		)
		return
	}
	if !ev.Added || ev.UserID == 0 || ev.UserID == s.Self().ID {
		return
	}
	owner, _, ok := s.store.Lookup(ev.MessageID)
	if !ok || owner != ref {
		return
	}
	name := s.resolveUser(ctx, User{ID: ev.UserID})
	s.bus.Publish(events.ReactionSpoken{
		Ref:       ref,
		MessageID: ev.MessageID,
		Text:      fmt.Sprintf("%s reacted %s", name, SpokenReaction(ev.Emoji, ev.EmojiID)),
	})
}

func (s *Synchronizer) refreshReactions(ctx context.Context, ref thread.Ref, channelID, messageID uint64) error {
	msg, err := s.fetchMessage(ctx, channelID, messageID)
	if err != nil {
		return err
	}
	s.store.SetReactions(messageID, convertReactions(msg.Reactions))
	s.bus.Publish(events.ReactionChanged{Ref: ref, MessageID: messageID})
	return nil
}

func (s *Synchronizer) fetchMessage(ctx context.Context, channelID, messageID uint64) (RemoteMessage, error) {
	var msg RemoteMessage
	err := s.call(ctx, "message", func(ctx context.Context) error {
		var err error
		msg, err = s.remote.Message(ctx, channelID, messageID)
		return err
	})
	return msg, err
}

// reactionKey is the form the reaction endpoints accept: the emoji itself,
// or name:id for custom emoji.
func reactionKey(r Reaction) string {
	if r.EmojiID == "" {
		return r.Emoji
	}
	return r.Emoji + ":" + r.EmojiID
}

// React toggles symbol on message id: it is removed when I already
// reacted with it and added otherwise. The reaction set is refreshed
// afterwards.
func (s *Synchronizer) React(ctx context.Context, ref thread.Ref, id uint64, symbol string) error {
	if symbol == "" {
		return nil
	}
	channelID, err := s.channelFor(ctx, ref)
	if err != nil {
		return err
	}
	msg, err := s.fetchMessage(ctx, channelID, id)
	if err != nil {
		return fmt.Errorf("react: %w", err)
	}
	mine := false
	for _, r := range msg.Reactions {
		if r.Me && reactionKey(r) == symbol {
			mine = true
			break
		}
	}
	if mine {
		err = s.remote.RemoveReaction(ctx, channelID, id, symbol)
	} else {
		err = s.remote.AddReaction(ctx, channelID, id, symbol)
	}
	if err != nil {
		return fmt.Errorf("react: %w", err)
	}
	return s.refreshReactions(ctx, ref, channelID, id)
}
