package chatsync

import (
	"context"
	"slices"
	"sync"
	"time"

	"switchscan/internal/services"
)

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type sentMessage struct {
	ChannelID uint64
	Content   string
	ReplyTo   uint64
}

type fakeRemote struct {
	mu        sync.Mutex
	self      User
	openErrs  []error
	opens     []Capabilities
	handler   Handler
	channels  map[uint64]Channel
	history   map[uint64][]RemoteMessage
	members   map[uint64]Member
	private   []Channel
	reactions map[uint64][]Reaction
	sent      []sentMessage
	nextID    uint64
	closed    int
	historyN  int
}

func newFakeRemote(self User) *fakeRemote {
	return &fakeRemote{
		self:      self,
		channels:  make(map[uint64]Channel),
		history:   make(map[uint64][]RemoteMessage),
		members:   make(map[uint64]Member),
		reactions: make(map[uint64][]Reaction),
		nextID:    9000,
	}
}

func msgAt(id, channel uint64, author User, content string, offset int) RemoteMessage {
	return RemoteMessage{
		ID:        id,
		ChannelID: channel,
		Author:    author,
		Content:   content,
		Timestamp: epoch.Add(time.Duration(offset) * time.Second),
	}
}

func (f *fakeRemote) addHistory(channel uint64, msgs ...RemoteMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[channel] = append(f.history[channel], msgs...)
}

func (f *fakeRemote) deliver(m RemoteMessage) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h.HandleMessage(m)
}

func (f *fakeRemote) deliverReaction(ev ReactionEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h.HandleReaction(ev)
}

func (f *fakeRemote) Open(_ context.Context, caps Capabilities, h Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, caps)
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return err
		}
	}
	f.handler = h
	return nil
}

func (f *fakeRemote) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRemote) Self() User { return f.self }

func (f *fakeRemote) PrivateChannels() []Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.private)
}

func (f *fakeRemote) Channel(_ context.Context, id uint64) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return Channel{}, services.Wrap(services.ErrNotFound, "fake", "channel", "unknown channel", nil)
	}
	return ch, nil
}

func (f *fakeRemote) DirectChannel(_ context.Context, userID uint64) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		if ch.Direct && ch.Recipient != nil && ch.Recipient.ID == userID {
			return ch, nil
		}
	}
	ch := Channel{ID: userID + 100000, Direct: true, Recipient: &User{ID: userID}}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *fakeRemote) History(_ context.Context, channelID uint64, limit int, beforeID uint64) ([]RemoteMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyN++
	all := f.history[channelID]
	end := len(all)
	if beforeID != 0 {
		end = slices.IndexFunc(all, func(m RemoteMessage) bool { return m.ID == beforeID })
		if end < 0 {
			end = len(all)
		}
	}
	start := max(0, end-limit)
	page := slices.Clone(all[start:end])
	slices.Reverse(page)
	return page, nil
}

func (f *fakeRemote) Message(_ context.Context, channelID, messageID uint64) (RemoteMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.history[channelID] {
		if m.ID == messageID {
			m.Reactions = slices.Clone(f.reactions[messageID])
			return m, nil
		}
	}
	return RemoteMessage{}, services.Wrap(services.ErrNotFound, "fake", "message", "unknown message", nil)
}

func (f *fakeRemote) Member(_ context.Context, _ uint64, userID uint64) (Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return Member{}, services.Wrap(services.ErrNotFound, "fake", "member", "unknown member", nil)
	}
	return m, nil
}

func (f *fakeRemote) User(_ context.Context, userID uint64) (User, error) {
	return User{}, services.Wrap(services.ErrNotFound, "fake", "user", "unknown user", nil)
}

func (f *fakeRemote) Send(_ context.Context, channelID uint64, content string, replyTo uint64) (RemoteMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: content, ReplyTo: replyTo})
	m := msgAt(f.nextID, channelID, f.self, content, int(f.nextID))
	f.history[channelID] = append(f.history[channelID], m)
	return m, nil
}

func (f *fakeRemote) AddReaction(_ context.Context, _ uint64, messageID uint64, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reactions[messageID]
	for i := range rs {
		if rs[i].Emoji == emoji {
			rs[i].Count++
			rs[i].Me = true
			return nil
		}
	}
	f.reactions[messageID] = append(rs, Reaction{Emoji: emoji, Count: 1, Me: true})
	return nil
}

func (f *fakeRemote) RemoveReaction(_ context.Context, _ uint64, messageID uint64, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs := f.reactions[messageID]
	for i := range rs {
		if rs[i].Emoji == emoji && rs[i].Me {
			rs[i].Count--
			rs[i].Me = false
			if rs[i].Count <= 0 {
				f.reactions[messageID] = slices.Delete(rs, i, i+1)
			}
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

func (f *fakeRemote) openCaps() []Capabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.opens)
}
