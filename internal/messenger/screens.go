package messenger

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"switchscan/internal/config"
	"switchscan/internal/logging"
	"switchscan/internal/readstate"
	"switchscan/internal/scan"
	"switchscan/internal/thread"
)

// Chat is the synchronizer surface the screens drive.
type Chat interface {
	EnsureHistory(ctx context.Context, ref thread.Ref, k int) error
	Send(ctx context.Context, ref thread.Ref, text string) error
	Reply(ctx context.Context, ref thread.Ref, id uint64, text string) error
	React(ctx context.Context, ref thread.Ref, id uint64, symbol string) error
	Go(op string, fn func(ctx context.Context) error) bool
}

// Speaker narrates outside the scan engine's own focus narration.
type Speaker interface {
	Say(text string)
}

// Screen names, also reported over IPC.
const (
	ScreenChannels = "channels"
	ScreenMessages = "messages"
)

const (
	blockMessages = 0
	blockSend     = 1
)

// ui holds the screens. Every method runs on the scan loop goroutine except
// where a task is handed to Chat.Go.
type ui struct {
	chat     Chat
	store    *thread.Store
	reads    *readstate.Store
	speaker  Speaker
	composer Composer
	limits   config.Sync
	rows     int
	loc      *time.Location
	logger   *slog.Logger
	self     func() uint64
	exit     func()
	busy     *composeGate

	engine   *scan.Engine
	channels *scan.Screen
	threads  *threadList
	view     *scan.Screen
	messages *messageList
	warm     bool
}

type uiDeps struct {
	Chat     Chat
	Store    *thread.Store
	Reads    *readstate.Store
	Speaker  Speaker
	Composer Composer
	Limits   config.Sync
	Rows     int
	Location *time.Location
	Logger   *slog.Logger
	Self     func() uint64
	Exit     func()
}

func newUI(d uiDeps) *ui {
	u := &ui{
		chat:     d.Chat,
		store:    d.Store,
		reads:    d.Reads,
		speaker:  d.Speaker,
		composer: d.Composer,
		limits:   d.Limits,
		rows:     d.Rows,
		loc:      d.Location,
		logger:   logging.NewComponentLogger(d.Logger, "messenger"),
		self:     d.Self,
		exit:     d.Exit,
		busy:     &composeGate{},
	}
	if u.loc == nil {
		u.loc = time.Local
	}
	if u.self == nil {
		u.self = func() uint64 { return 0 }
	}
	if u.exit == nil {
		u.exit = func() {}
	}
	if u.rows <= 0 {
		u.rows = 24
	}
	u.threads = &threadList{u: u}
	u.threads.reload()
	u.channels = &scan.Screen{Name: ScreenChannels, Blocks: []scan.Block{
		{Label: "Channels", Items: u.threads, Empty: "No channels"},
		{Label: "Exit", Action: func() scan.Result {
			u.exit()
			return scan.Say("Exiting")
		}},
	}}
	return u
}

// attach binds the engine and lands on the channel list.
func (u *ui) attach(e *scan.Engine) {
	u.engine = e
	e.SetScreen(u.channels, 0)
}

// openThread builds the message view for ref and lands on its Messages
// block.
func (u *ui) openThread(ref thread.Ref) scan.Result {
	if ref.IsDirect() && ref.ID() != 0 && ref.ID() == u.self() {
		return scan.Say("Cannot open self direct message")
	}
	u.messages = newMessageList(u, ref)
	u.view = &scan.Screen{Name: ScreenMessages, Blocks: []scan.Block{
		{Label: "Messages", Items: u.messages, Empty: "No messages", ReturnTo: blockSend},
		{Label: "Send Message", Action: func() scan.Result {
			return u.compose("Send Message", "Sent", func(ctx context.Context, text string) error {
				return u.chat.Send(ctx, ref, text)
			})
		}},
		{Label: "Back", Action: func() scan.Result {
			u.threads.reload()
			return scan.SwitchTo(u.channels, 0)
		}},
	}}
	if ref.IsDirect() && u.limits.EnableRenderDMBackfill {
		u.backfill(ref, u.store.Len(ref)+u.limits.DMBackfillBatch)
	}
	return scan.SwitchTo(u.view, blockMessages)
}

func (u *ui) backfill(ref thread.Ref, k int) {
	if k <= 0 {
		return
	}
	u.chat.Go("backfill", func(ctx context.Context) error {
		return u.chat.EnsureHistory(ctx, ref, k)
	})
}

// refreshThreads reloads the channel list and keeps focus on the same
// thread when the order changed under it.
func (u *ui) refreshThreads() {
	var focused thread.Ref
	tracked := false
	if u.onScreen(u.channels) {
		if i := u.engine.State().ItemIndex; i >= 0 && i < len(u.threads.items) {
			focused, tracked = u.threads.items[i].Ref, true
		}
	}
	u.threads.reload()
	if !u.onScreen(u.channels) {
		return
	}
	u.rebase(func(old int) int {
		if !tracked {
			return old
		}
		if i := u.threads.indexOf(focused); i >= 0 {
			return i
		}
		return old
	})
}

// refreshMessages reloads the open thread and keeps focus on the same
// message.
func (u *ui) refreshMessages(ref thread.Ref) {
	if u.messages == nil || u.messages.ref != ref {
		return
	}
	var focused uint64
	if u.onScreen(u.view) {
		if i := u.engine.State().ItemIndex; i >= 0 && i < len(u.messages.msgs) {
			focused = u.messages.msgs[i].ID
		}
	}
	u.messages.reload()
	if !u.onScreen(u.view) {
		return
	}
	u.rebase(func(old int) int {
		if i := u.messages.indexOf(focused); focused != 0 && i >= 0 {
			return i
		}
		return old
	})
}

func (u *ui) rebase(remap func(old int) int) {
	switch u.engine.State().Mode {
	case scan.ModeItems, scan.ModeOverlay:
		u.engine.Rebase(remap)
	default:
		u.engine.Refresh()
	}
}

func (u *ui) onScreen(s *scan.Screen) bool {
	return u.engine != nil && s != nil && u.engine.Screen() == s
}

// screenName reports the active screen for status queries.
func (u *ui) screenName() string {
	if u.engine == nil || u.engine.Screen() == nil {
		return ""
	}
	return u.engine.Screen().Name
}

// markRead clears the unread flag in the store and records it durably.
func (u *ui) markRead(ref thread.Ref, id uint64) {
	changed := u.store.MarkRead(ref, id)
	if u.reads != nil {
		u.reads.MarkRead(id)
	}
	if changed {
		u.refreshThreads()
	}
}

// threadList is the channel list collection.
type threadList struct {
	u     *ui
	items []thread.Summary
}

func (l *threadList) reload() {
	l.items = SortThreads(l.u.store.Threads(), l.u.self())
}

func (l *threadList) indexOf(ref thread.Ref) int {
	return slices.IndexFunc(l.items, func(s thread.Summary) bool { return s.Ref == ref })
}

func (l *threadList) Len() int { return len(l.items) }

func (l *threadList) Label(i int) string { return ThreadLabel(l.items[i]) }

func (l *threadList) Activate(i int) scan.Result {
	return l.u.openThread(l.items[i].Ref)
}
