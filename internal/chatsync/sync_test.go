package chatsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"switchscan/internal/config"
	"switchscan/internal/events"
	"switchscan/internal/retry"
	"switchscan/internal/services"
	"switchscan/internal/thread"
)

var (
	me  = User{ID: 1, Username: "ben"}
	eve = User{ID: 5, Username: "eve"}
	bot = User{ID: 6, Username: "helper", Bot: true}
)

type harness struct {
	remote *fakeRemote
	store  *thread.Store
	bus    *events.Bus
	sub    *events.Subscription
	sync   *Synchronizer
}

func newHarness(t *testing.T, remote *fakeRemote, opts Options) *harness {
	t.Helper()
	if opts.Limits == (config.Sync{}) {
		opts.Limits = config.Default().Sync
	}
	opts.FetchRate = 1000
	opts.Retry = retry.Policy{MaxRetries: 0, Multiplier: 1}
	bus := events.NewBus(nil)
	h := &harness{remote: remote, store: thread.NewStore(), bus: bus, sub: bus.Subscribe(1024)}
	h.sync = New(remote, h.store, bus, opts, nil)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.sync.Start(context.Background())
	waitEvent[events.WarmComplete](t, h.sub, nil)
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	if err := h.sync.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	h.bus.Close()
}

// collectUntil returns every event seen before one of type T matches.
func collectUntil[T events.Event](t *testing.T, sub *events.Subscription, match func(T) bool) []events.Event {
	t.Helper()
	var seen []events.Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				t.Fatal("bus closed")
			}
			if v, ok := ev.(T); ok && (match == nil || match(v)) {
				return seen
			}
			seen = append(seen, ev)
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %s", events.Name(zero))
		}
	}
}

func waitEvent[T events.Event](t *testing.T, sub *events.Subscription, match func(T) bool) {
	t.Helper()
	collectUntil(t, sub, match)
}

func messageIDs(t *testing.T, store *thread.Store, ref thread.Ref) []uint64 {
	t.Helper()
	snap, ok := store.Snapshot(ref)
	if !ok {
		t.Fatalf("thread %s missing", ref)
	}
	ids := make([]uint64, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

func addedFor(ref thread.Ref, id uint64) func(events.MessageAdded) bool {
	return func(ev events.MessageAdded) bool { return ev.Ref == ref && ev.Message.ID == id }
}

func TestWarmLoadIndexesEverySource(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.channels[20] = Channel{ID: 20, Name: "random"}
	remote.channels[30] = Channel{ID: 30, Name: "dm-log"}
	alice := Channel{ID: 500, Direct: true, Recipient: &User{ID: 7, Username: "alice"}}
	remote.channels[500] = alice
	remote.private = []Channel{alice}
	remote.members[5] = Member{User: eve, Nick: "Eve"}
	remote.addHistory(10, msgAt(101, 10, eve, "hi", 1), msgAt(102, 10, me, "yo", 2), msgAt(103, 10, eve, "sup", 3))
	remote.addHistory(20, msgAt(201, 20, eve, "a", 1), msgAt(202, 20, eve, "b", 2))
	remote.addHistory(30,
		msgAt(301, 30, bot, "DM from Carol (9): hello", 1),
		msgAt(302, 30, bot, "DM from ben (1): talking to myself", 2),
		msgAt(303, 30, bot, "DM from Dan (11): (outgoing) test", 3),
	)
	remote.addHistory(500, msgAt(501, 500, User{ID: 7, Username: "alice"}, "hey", 4))

	h := newHarness(t, remote, Options{
		GuildID:         77,
		ChannelIDs:      []uint64{10, 20},
		BridgeChannelID: 30,
		Peers:           map[uint64]string{8: "Bob"},
	})
	h.start(t)
	defer h.stop(t)

	if diff := cmp.Diff([]uint64{101, 102, 103}, messageIDs(t, h.store, thread.Main())); diff != "" {
		t.Fatalf("main ids (-want +got):\n%s", diff)
	}
	if got := h.store.Len(thread.Channel(20)); got != 2 {
		t.Fatalf("channel:20 len: got %d want 2", got)
	}
	snap, _ := h.store.Snapshot(thread.Main())
	if snap.Name != "general" {
		t.Fatalf("main name: got %q want %q", snap.Name, "general")
	}
	if got := snap.Messages[0].Author; got != "Eve" {
		t.Fatalf("author: got %q want nickname %q", got, "Eve")
	}
	if !snap.Messages[1].FromSelf {
		t.Fatal("message 102 should be from self")
	}
	for _, peer := range []uint64{7, 8, 9} {
		if !h.store.Has(thread.Direct(peer)) {
			t.Fatalf("dm:%d not indexed", peer)
		}
	}
	for _, peer := range []uint64{1, 11} {
		if h.store.Has(thread.Direct(peer)) {
			t.Fatalf("dm:%d must not be indexed", peer)
		}
	}

	waitEvent(t, h.sub, func(ev events.HistoryExtended) bool { return ev.Ref == thread.Direct(7) })
	if diff := cmp.Diff([]uint64{501}, messageIDs(t, h.store, thread.Direct(7))); diff != "" {
		t.Fatalf("dm:7 ids (-want +got):\n%s", diff)
	}
}

func TestDedupAcrossAdmissionPaths(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.channels[20] = Channel{ID: 20, Name: "random"}
	for i := uint64(1); i <= 5; i++ {
		remote.addHistory(10, msgAt(100+i, 10, eve, "m", int(i)))
	}
	limits := config.Default().Sync
	limits.ChannelInitialLimit = 3
	h := newHarness(t, remote, Options{ChannelIDs: []uint64{10, 20}, Limits: limits})
	h.start(t)
	defer h.stop(t)

	// Warm load admitted 103..105. A live duplicate must not be re-admitted.
	m106 := msgAt(106, 10, eve, "new", 6)
	remote.addHistory(10, m106)
	remote.deliver(msgAt(105, 10, eve, "m", 5))
	remote.deliver(m106)
	for _, ev := range collectUntil(t, h.sub, addedFor(thread.Main(), 106)) {
		if added, ok := ev.(events.MessageAdded); ok && added.Message.ID == 105 {
			t.Fatal("duplicate live message admitted")
		}
	}

	// Backfill fetches 101 and 102 only.
	if err := h.sync.EnsureHistory(context.Background(), thread.Main(), 6); err != nil {
		t.Fatalf("ensure history: %v", err)
	}

	// A sent message echoed back by the gateway is admitted once.
	if err := h.sync.Send(context.Background(), thread.Main(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	sent := remote.sentMessages()
	echo := msgAt(9001, 10, me, "hello", 9001)
	remote.deliver(echo)
	// The same id arriving on another channel is rejected globally.
	remote.deliver(msgAt(101, 20, eve, "m", 1))
	remote.deliver(msgAt(107, 10, eve, "later", 7))
	waitEvent(t, h.sub, addedFor(thread.Main(), 107))

	if len(sent) != 1 {
		t.Fatalf("sent: got %d want 1", len(sent))
	}
	want := []uint64{101, 102, 103, 104, 105, 106, 107, 9001}
	if diff := cmp.Diff(want, messageIDs(t, h.store, thread.Main())); diff != "" {
		t.Fatalf("main ids (-want +got):\n%s", diff)
	}
	if got := h.store.Len(thread.Channel(20)); got != 0 {
		t.Fatalf("channel:20 len: got %d want 0", got)
	}
}

func TestEnsureHistoryBackfill(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	for i := uint64(1); i <= 30; i++ {
		remote.addHistory(10, msgAt(300+i, 10, eve, "m", int(i)))
	}
	limits := config.Default().Sync
	limits.ChannelInitialLimit = 5
	h := newHarness(t, remote, Options{ChannelIDs: []uint64{10}, Limits: limits})
	h.start(t)
	defer h.stop(t)
	ctx := context.Background()

	if got := h.store.Len(thread.Main()); got != 5 {
		t.Fatalf("initial: got %d want 5", got)
	}
	tests := []struct {
		ensure     int
		wantLen    int
		wantOldest uint64
	}{
		{ensure: 10, wantLen: 10, wantOldest: 321},
		{ensure: 25, wantLen: 25, wantOldest: 306},
		{ensure: 20, wantLen: 25, wantOldest: 306},
		{ensure: 100, wantLen: 30, wantOldest: 301},
	}
	for _, tt := range tests {
		if err := h.sync.EnsureHistory(ctx, thread.Main(), tt.ensure); err != nil {
			t.Fatalf("ensure %d: %v", tt.ensure, err)
		}
		if got := h.store.Len(thread.Main()); got != tt.wantLen {
			t.Fatalf("ensure %d: len got %d want %d", tt.ensure, got, tt.wantLen)
		}
		oldest, _ := h.store.Oldest(thread.Main())
		if oldest.ID != tt.wantOldest {
			t.Fatalf("ensure %d: oldest got %d want %d", tt.ensure, oldest.ID, tt.wantOldest)
		}
	}
	ids := messageIDs(t, h.store, thread.Main())
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids out of order at %d: %v", i, ids)
		}
	}
}

func TestEnsureHistoryConcurrentCallsCoalesce(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	for i := uint64(1); i <= 40; i++ {
		remote.addHistory(10, msgAt(400+i, 10, eve, "m", int(i)))
	}
	limits := config.Default().Sync
	limits.ChannelInitialLimit = 5
	h := newHarness(t, remote, Options{ChannelIDs: []uint64{10}, Limits: limits})
	h.start(t)
	defer h.stop(t)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.sync.EnsureHistory(context.Background(), thread.Main(), 20)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if got := h.store.Len(thread.Main()); got != 20 {
		t.Fatalf("len: got %d want 20", got)
	}
}

func TestEnsureHistoryHonorsContext(t *testing.T) {
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10}
	h := newHarness(t, remote, Options{ChannelIDs: []uint64{10}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.sync.EnsureHistory(ctx, thread.Main(), 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
}

func TestCapabilityFallbackDegrades(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.openErrs = []error{services.Wrap(services.ErrCapability, "discord", "open", "disallowed intent", nil)}
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.addHistory(10,
		msgAt(1, 10, eve, "", 1),
		msgAt(2, 10, bot, "", 2),
		msgAt(3, 10, me, "", 3),
		msgAt(4, 10, eve, "visible", 4),
	)
	h := newHarness(t, remote, Options{ChannelIDs: []uint64{10}})
	h.sync.Start(context.Background())
	seen := collectUntil[events.WarmComplete](t, h.sub, nil)
	defer h.stop(t)

	var statuses []events.ConnectionStatus
	for _, ev := range seen {
		if st, ok := ev.(events.ConnectionStatus); ok {
			statuses = append(statuses, st)
		}
	}
	want := []events.ConnectionStatus{
		{Text: StatusFallback, Degraded: true},
		{Text: "Logged in as ben", Connected: true, Degraded: true},
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Fatalf("statuses (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Capabilities{{MessageContent: true}, {}}, remote.openCaps()); diff != "" {
		t.Fatalf("open attempts (-want +got):\n%s", diff)
	}
	if !h.sync.Degraded() {
		t.Fatal("expected degraded mode")
	}

	snap, _ := h.store.Snapshot(thread.Main())
	var bodies []string
	for _, m := range snap.Messages {
		bodies = append(bodies, m.Body)
	}
	if diff := cmp.Diff([]string{ContentPlaceholder, "", "", "visible"}, bodies); diff != "" {
		t.Fatalf("bodies (-want +got):\n%s", diff)
	}
}

func TestFatalConnectStops(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.openErrs = []error{errors.New("invalid token")}
	h := newHarness(t, remote, Options{ChannelIDs: []uint64{10}})
	h.sync.Start(context.Background())
	waitEvent(t, h.sub, func(ev events.ConnectionStatus) bool { return ev.Text == "Discord closed: invalid token" })
	h.stop(t)

	if got := len(remote.openCaps()); got != 1 {
		t.Fatalf("open attempts: got %d want 1", got)
	}
	if h.sync.Status().Connected {
		t.Fatal("should not be connected")
	}
	if remote.closed != 0 {
		t.Fatal("close should not run when never connected")
	}
}

func TestEnqueueDropsWhenInboxFull(t *testing.T) {
	h := newHarness(t, newFakeRemote(me), Options{ChannelIDs: []uint64{10}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sync.mu.Lock()
	h.sync.ctx = ctx
	h.sync.mu.Unlock()

	handle := handler{s: h.sync}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range inboxSize + 3 {
			handle.HandleMessage(RemoteMessage{ID: uint64(i + 1), ChannelID: 10, Author: eve})
		}
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("enqueue blocked on a full inbox")
	}

	if got := len(h.sync.inbox); got != inboxSize {
		t.Fatalf("inbox length: got %d want %d", got, inboxSize)
	}
	if got := h.sync.Dropped(); got != 3 {
		t.Fatalf("dropped: got %d want 3", got)
	}
	h.bus.Close()
}

func TestLiveDirectMessageRouting(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.channels[30] = Channel{ID: 30, Name: "dm-log"}
	remote.channels[600] = Channel{ID: 600, Direct: true, Recipient: &eve}
	remote.channels[700] = Channel{ID: 700, Direct: true, Recipient: &me}
	remote.members[5] = Member{User: eve, Nick: "Eve"}
	h := newHarness(t, remote, Options{
		GuildID:         77,
		ChannelIDs:      []uint64{10},
		BridgeChannelID: 30,
		Unread:          func(_ thread.Message, live bool) bool { return live },
	})
	h.start(t)
	defer h.stop(t)

	remote.deliver(msgAt(601, 600, eve, "are you there", 10))
	waitEvent(t, h.sub, func(ev events.MessageAdded) bool { return ev.Ref == thread.Direct(5) && ev.Live })
	snap, ok := h.store.Snapshot(thread.Direct(5))
	if !ok || snap.Name != "Eve" {
		t.Fatalf("dm thread: got %+v", snap)
	}
	if !snap.IsUnread(601) {
		t.Fatal("live direct message should be unread")
	}

	remote.deliver(msgAt(701, 700, me, "note to self", 11))
	remote.deliver(RemoteMessage{ID: 801, ChannelID: 999, GuildID: 77, Author: eve, Content: "elsewhere", Timestamp: epoch})
	remote.deliver(msgAt(901, 30, bot, "DM from Zoe (13): hey", 12))
	remote.deliver(msgAt(602, 600, eve, "hello?", 13))
	for _, ev := range collectUntil(t, h.sub, addedFor(thread.Direct(5), 602)) {
		if added, ok := ev.(events.MessageAdded); ok {
			t.Fatalf("unexpected admission %+v", added)
		}
	}
	if h.store.Has(thread.Direct(1)) {
		t.Fatal("self direct message must be ignored")
	}
	if !h.store.Has(thread.Direct(13)) || h.store.Len(thread.Direct(13)) != 0 {
		t.Fatal("mirror line should index a stub without admitting")
	}
	if h.store.Seen(801) || h.store.Seen(901) {
		t.Fatal("unmonitored and mirror messages must not be admitted")
	}
}

func TestNicknameReplacesLearnedNames(t *testing.T) {
	defer goleak.VerifyNone(t)
	zoe := User{ID: 13, Username: "zoe"}
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.channels[30] = Channel{ID: 30, Name: "dm-log"}
	remote.channels[650] = Channel{ID: 650, Direct: true, Recipient: &zoe}
	remote.members[13] = Member{User: zoe, Nick: "Zoe Z"}
	h := newHarness(t, remote, Options{
		GuildID:         77,
		ChannelIDs:      []uint64{10},
		BridgeChannelID: 30,
	})
	h.start(t)
	defer h.stop(t)

	remote.deliver(msgAt(901, 30, bot, "DM from zoe (13): hey", 12))
	remote.deliver(msgAt(651, 650, zoe, "still there?", 13))
	waitEvent(t, h.sub, func(ev events.MessageAdded) bool { return ev.Ref == thread.Direct(13) })

	snap, ok := h.store.Snapshot(thread.Direct(13))
	if !ok || snap.Name != "Zoe Z" {
		t.Fatalf("dm thread: got %+v, want the guild nickname", snap)
	}
	if got := h.sync.DisplayName(13); got != "Zoe Z" {
		t.Fatalf("DisplayName = %q, want Zoe Z", got)
	}
}

func TestReactionsRefreshAndSpeak(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.members[5] = Member{User: eve, Nick: "Eve"}
	remote.addHistory(10, msgAt(101, 10, eve, "hi", 1))
	h := newHarness(t, remote, Options{GuildID: 77, ChannelIDs: []uint64{10}})
	h.start(t)
	defer h.stop(t)

	remote.mu.Lock()
	remote.reactions[101] = []Reaction{{Emoji: "👍", Count: 1}}
	remote.mu.Unlock()
	remote.deliverReaction(ReactionEvent{ChannelID: 10, MessageID: 101, UserID: 5, Emoji: "👍", Added: true})

	var spoken string
	seen := collectUntil(t, h.sub, func(ev events.ReactionSpoken) bool {
		spoken = ev.Text
		return true
	})
	if spoken != "Eve reacted thumbs up" {
		t.Fatalf("spoken: got %q", spoken)
	}
	changed := false
	for _, ev := range seen {
		if _, ok := ev.(events.ReactionChanged); ok {
			changed = true
		}
	}
	if !changed {
		t.Fatal("expected ReactionChanged before ReactionSpoken")
	}
	want := []thread.Reaction{{Symbol: "👍", DisplayName: "thumbs up", Count: 1}}
	if diff := cmp.Diff(want, h.store.Reactions(101)); diff != "" {
		t.Fatalf("reactions (-want +got):\n%s", diff)
	}

	t.Run("own reactions are silent", func(t *testing.T) {
		remote.deliverReaction(ReactionEvent{ChannelID: 10, MessageID: 101, UserID: 1, Emoji: "👍", Added: true})
		remote.deliver(msgAt(102, 10, eve, "sentinel", 2))
		for _, ev := range collectUntil(t, h.sub, addedFor(thread.Main(), 102)) {
			if _, ok := ev.(events.ReactionSpoken); ok {
				t.Fatal("own reaction narrated")
			}
		}
	})

	t.Run("react toggles", func(t *testing.T) {
		ctx := context.Background()
		if err := h.sync.React(ctx, thread.Main(), 101, "❤️"); err != nil {
			t.Fatalf("react: %v", err)
		}
		got := h.store.Reactions(101)
		if len(got) != 2 || !got[1].Me || got[1].DisplayName != "heart" {
			t.Fatalf("after add: %+v", got)
		}
		if err := h.sync.React(ctx, thread.Main(), 101, "❤️"); err != nil {
			t.Fatalf("react: %v", err)
		}
		if got := h.store.Reactions(101); len(got) != 1 {
			t.Fatalf("after remove: %+v", got)
		}
	})
}

func TestSendAndReply(t *testing.T) {
	defer goleak.VerifyNone(t)
	remote := newFakeRemote(me)
	remote.channels[10] = Channel{ID: 10, Name: "general"}
	remote.channels[30] = Channel{ID: 30, Name: "dm-log"}
	dm := Channel{ID: 600, Direct: true, Recipient: &eve}
	remote.channels[600] = dm
	remote.private = []Channel{dm}
	remote.members[5] = Member{User: eve, Nick: "Eve"}
	remote.addHistory(10, msgAt(101, 10, eve, "lunch?", 1))
	remote.addHistory(600, msgAt(601, 600, eve, "ping", 2))
	h := newHarness(t, remote, Options{GuildID: 77, ChannelIDs: []uint64{10}, BridgeChannelID: 30})
	h.start(t)
	defer h.stop(t)
	waitEvent(t, h.sub, func(ev events.HistoryExtended) bool { return ev.Ref == thread.Direct(5) })
	ctx := context.Background()

	if err := h.sync.Reply(ctx, thread.Main(), 101, "agreed"); err != nil {
		t.Fatalf("channel reply: %v", err)
	}
	if err := h.sync.Reply(ctx, thread.Direct(5), 601, "sure"); err != nil {
		t.Fatalf("dm reply: %v", err)
	}
	want := []sentMessage{
		{ChannelID: 10, Content: "agreed", ReplyTo: 101},
		{ChannelID: 600, Content: "(reply to Eve) sure"},
		{ChannelID: 30, Content: "To Eve (5): (reply to Eve) sure"},
	}
	if diff := cmp.Diff(want, remote.sentMessages()); diff != "" {
		t.Fatalf("sent (-want +got):\n%s", diff)
	}
	snap, _ := h.store.Snapshot(thread.Direct(5))
	last := snap.Messages[len(snap.Messages)-1]
	if !last.FromSelf || last.Body != "(reply to Eve) sure" {
		t.Fatalf("admitted reply: %+v", last)
	}
	if h.store.Seen(9003) {
		t.Fatal("mirror copy must not be admitted")
	}

	if err := h.sync.Send(ctx, thread.Main(), "   "); !errors.Is(err, services.ErrData) {
		t.Fatalf("empty send: got %v want ErrData", err)
	}
}

func TestFormatBody(t *testing.T) {
	h := newHarness(t, newFakeRemote(me), Options{ChannelIDs: []uint64{10}})
	h.sync.rememberName(42, "Zed")
	msg := RemoteMessage{
		Content:  "hi <@42> and <@!43>, not <@99>",
		Mentions: []User{{ID: 43, GlobalName: "Quinn"}},
		Embeds:   []Embed{{Title: "Title", Description: "Desc"}, {Description: "  "}},
	}
	got := h.sync.formatBody(thread.Main(), msg)
	if want := "hi @Zed and @Quinn, not @user\nTitle — Desc"; got != want {
		t.Fatalf("body: got %q want %q", got, want)
	}
	if got := h.sync.formatBody(thread.Main(), RemoteMessage{Author: eve}); got != "" {
		t.Fatalf("empty body outside degraded mode: got %q", got)
	}
}

func TestExtractAttachments(t *testing.T) {
	msg := RemoteMessage{
		Attachments: []Attachment{
			{URL: "https://cdn/a.PNG", Filename: "a.PNG"},
			{ProxyURL: "https://proxy/clip", Filename: "clip", ContentType: "video/mp4"},
			{URL: "https://cdn/doc.pdf", Filename: "doc.pdf"},
		},
		Embeds: []Embed{{ThumbnailURL: "https://thumb"}, {VideoURL: "https://video"}},
	}
	want := []thread.Attachment{
		{Kind: thread.AttachmentImage, URL: "https://cdn/a.PNG", Filename: "a.PNG"},
		{Kind: thread.AttachmentVideo, URL: "https://proxy/clip", Filename: "clip"},
		{Kind: thread.AttachmentOther, URL: "https://cdn/doc.pdf", Filename: "doc.pdf"},
		{Kind: thread.AttachmentImage, URL: "https://thumb", Filename: "embedded-image"},
		{Kind: thread.AttachmentVideo, URL: "https://video", Filename: "embedded-video"},
	}
	if diff := cmp.Diff(want, extractAttachments(msg)); diff != "" {
		t.Fatalf("attachments (-want +got):\n%s", diff)
	}
}

func TestSpokenReaction(t *testing.T) {
	tests := []struct {
		emoji, id, want string
	}{
		{emoji: "👍", want: "thumbs up"},
		{emoji: "👎", want: "thumbs down"},
		{emoji: "❤️", want: "heart"},
		{emoji: "😂", want: "laughing face"},
		{emoji: "🎉", want: "emoji"},
		{emoji: "party_parrot", id: "123", want: "party parrot"},
		{emoji: "", id: "123", want: "emoji"},
	}
	for _, tt := range tests {
		if got := SpokenReaction(tt.emoji, tt.id); got != tt.want {
			t.Fatalf("SpokenReaction(%q, %q): got %q want %q", tt.emoji, tt.id, got, tt.want)
		}
	}
}

func TestMirrorFormats(t *testing.T) {
	line := FormatIncomingMirror("Carol Ann", 9, "hello\nsecond line")
	name, peer, body, ok := ParseIncomingMirror(line)
	if !ok || name != "Carol Ann" || peer != 9 || body != "hello\nsecond line" {
		t.Fatalf("parse: %q %d %q %v", name, peer, body, ok)
	}
	if _, _, _, ok := ParseIncomingMirror("To Carol (9): hi"); ok {
		t.Fatal("outgoing mirror lines are not incoming")
	}
	if got := FormatOutgoingMirror("Carol", 9, "hi"); got != "To Carol (9): hi" {
		t.Fatalf("outgoing: got %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Discord.GuildID = "77"
	cfg.Discord.ChannelIDs = []string{"10", "20"}
	cfg.Discord.DMBridgeChannelID = "30"
	opts, err := OptionsFromConfig(&cfg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.GuildID != 77 || opts.BridgeChannelID != 30 {
		t.Fatalf("ids: %+v", opts)
	}
	if diff := cmp.Diff([]uint64{10, 20}, opts.ChannelIDs); diff != "" {
		t.Fatalf("channels (-want +got):\n%s", diff)
	}
	cfg.Discord.GuildID = "not-a-number"
	if _, err := OptionsFromConfig(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("got %v want ErrConfiguration", err)
	}
}
