package messenger

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"switchscan/internal/chatsync"
	"switchscan/internal/logging"
	"switchscan/internal/scan"
	"switchscan/internal/speech"
	"switchscan/internal/thread"
)

// QuickReactions are offered by the Reactions overlay, in order.
var QuickReactions = []string{"👍", "👎", "❤️", "😂"}

func (u *ui) actions(ref thread.Ref, m thread.Message) scan.Result {
	opts := []scan.Option{{Label: "Read", Invoke: func() scan.Result { return u.read(ref, m) }}}
	if m.HasMedia() {
		opts = append(opts, scan.Option{Label: "View", Invoke: func() scan.Result {
			return scan.Result{Close: true, Say: describeMedia(m)}
		}})
	}
	if !m.FromSelf {
		opts = append(opts,
			scan.Option{Label: "Reply", Invoke: func() scan.Result {
				return u.compose("Reply", "Replied", func(ctx context.Context, text string) error {
					return u.chat.Reply(ctx, ref, m.ID, text)
				})
			}},
			scan.Option{Label: "React", Invoke: func() scan.Result { return u.reactions(ref, m) }},
		)
	}
	return scan.Result{Overlay: &scan.Overlay{Title: "Actions", Options: opts}}
}

func (u *ui) read(ref thread.Ref, m thread.Message) scan.Result {
	text := speech.Sanitize(m.Body)
	if text == "" {
		text = "No text"
	}
	u.markRead(ref, m.ID)
	return scan.Result{Close: true, Say: text}
}

func (u *ui) reactions(ref thread.Ref, m thread.Message) scan.Result {
	opts := make([]scan.Option, 0, len(QuickReactions))
	for _, emoji := range QuickReactions {
		opts = append(opts, scan.Option{
			Label: chatsync.SpokenReaction(emoji, ""),
			Invoke: func() scan.Result {
				return u.react(ref, m.ID, emoji)
			},
		})
	}
	return scan.Result{Overlay: &scan.Overlay{Title: "Reactions", Options: opts}}
}

func (u *ui) react(ref thread.Ref, id uint64, emoji string) scan.Result {
	ok := u.chat.Go("react", func(ctx context.Context) error {
		if err := u.chat.React(ctx, ref, id, emoji); err != nil {
			u.speaker.Say("Failed to react")
			return err
		}
		return nil
	})
	if !ok {
		return scan.Result{Close: true, Say: "Failed to react"}
	}
	return scan.Result{Close: true, Say: "Reacted"}
}

// composeGate admits one composition at a time. While it is held, switch
// edges are dropped so the entry program has the user's attention.
type composeGate struct{ held atomic.Bool }

func (g *composeGate) acquire() bool { return g.held.CompareAndSwap(false, true) }
func (g *composeGate) release()      { g.held.Store(false) }
func (g *composeGate) Held() bool    { return g.held.Load() }

// compose runs the composer and send as one background task. done is
// spoken after a successful send.
func (u *ui) compose(purpose, done string, send func(ctx context.Context, text string) error) scan.Result {
	if u.composer == nil {
		return scan.Result{Close: true, Say: "Keyboard not found"}
	}
	if !u.busy.acquire() {
		return scan.Result{Close: true, Say: "Busy"}
	}
	ok := u.chat.Go("compose", func(ctx context.Context) error {
		defer u.busy.release()
		text, err := u.composer.Compose(ctx, purpose)
		switch {
		case errors.Is(err, ErrCanceled):
			u.speaker.Say("Canceled")
			return nil
		case err != nil:
			u.speaker.Say("Failed to send")
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			u.speaker.Say("Canceled")
			return nil
		}
		if err := send(ctx, text); err != nil {
			u.speaker.Say("Failed to send")
			return err
		}
		u.logger.Debug("message sent",
			logging.String("purpose", purpose),
			logging.Int("length", len(text)),
		)
		u.speaker.Say(done)
		return nil
	})
	if !ok {
		u.busy.release()
		return scan.Result{Close: true, Say: "Failed to send"}
	}
	return scan.Result{Close: true, Say: purpose}
}
