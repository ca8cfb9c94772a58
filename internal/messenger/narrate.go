package messenger

import (
	"strings"

	"switchscan/internal/chatsync"
	"switchscan/internal/events"
	"switchscan/internal/logging"
)

// handle folds one bus event into the screens.
func (u *ui) handle(ev events.Event) {
	switch ev := ev.(type) {
	case events.WarmComplete:
		u.warm = true
		u.refreshThreads()
	case events.ThreadsChanged:
		u.refreshThreads()
	case events.MessageAdded:
		u.refreshThreads()
		u.refreshMessages(ev.Ref)
		if ev.Live && u.warm && !ev.Message.FromSelf {
			u.speaker.Say(liveNarration(ev))
		}
	case events.HistoryExtended:
		u.refreshMessages(ev.Ref)
	case events.ReactionSpoken:
		u.speaker.Say(ev.Text)
	case events.ConnectionStatus:
		u.logger.Info("connection status",
			logging.String("status", ev.Text),
			logging.Bool("connected", ev.Connected),
			logging.Bool("degraded", ev.Degraded),
		)
		if !ev.Connected && (ev.Text == chatsync.StatusFallback || strings.HasPrefix(ev.Text, "Discord closed")) {
			u.speaker.Say(ev.Text)
		}
	}
}

func liveNarration(ev events.MessageAdded) string {
	body := strings.TrimSpace(ev.Message.Body)
	if body == "" {
		body = "No text"
	}
	if ev.Ref.IsDirect() {
		return "DM from " + ev.Message.Author + ": " + body
	}
	return "New Message from " + ev.Message.Author + ": " + body
}
