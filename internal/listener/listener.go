package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"switchscan/internal/chatsync"
	"switchscan/internal/config"
	"switchscan/internal/daemon"
	"switchscan/internal/liveness"
	"switchscan/internal/logging"
	"switchscan/internal/peerindex"
	"switchscan/internal/services"
)

const (
	// Role names the listener's single-instance lock.
	Role = "listener"

	queueSize = 256
)

// Remote is the part of the chat transport the listener uses.
type Remote interface {
	Open(ctx context.Context, caps chatsync.Capabilities, h chatsync.Handler) error
	Close() error
	Self() chatsync.User
	Channel(ctx context.Context, id uint64) (chatsync.Channel, error)
	Member(ctx context.Context, guildID, userID uint64) (chatsync.Member, error)
	Send(ctx context.Context, channelID uint64, content string, replyTo uint64) (chatsync.RemoteMessage, error)
}

// Speaker narrates announcements.
type Speaker interface {
	Say(text string)
}

// Options wires a Listener.
type Options struct {
	Config  *config.Config
	Remote  Remote
	Speaker Speaker
	Logger  *slog.Logger
	// Now overrides the clock for tests.
	Now func() time.Time
}

// Listener mirrors and announces direct messages while the foreground app
// is not running.
type Listener struct {
	cfg     *config.Config
	remote  Remote
	speaker Speaker
	logger  *slog.Logger
	now     func() time.Time
	peers   *peerindex.Writer

	guildID  uint64
	bridgeID uint64
	channels map[uint64]bool

	window     time.Duration
	staleAfter time.Duration
	words      int

	store *Store
	queue chan chatsync.RemoteMessage

	mu           sync.Mutex
	limiters     map[uint64]*rate.Limiter
	channelNames map[uint64]string
	dropped      int
}

// New validates the configuration. Nothing connects until Run.
func New(opts Options) (*Listener, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("listener: config is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("listener: remote is required")
	}
	ids, err := chatsync.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	l := &Listener{
		cfg:          cfg,
		remote:       opts.Remote,
		speaker:      opts.Speaker,
		logger:       logging.NewComponentLogger(opts.Logger, Role),
		now:          now,
		peers:        peerindex.NewWriter(cfg.Paths.PeerIndexFile),
		guildID:      ids.GuildID,
		bridgeID:     ids.BridgeChannelID,
		channels:     make(map[uint64]bool, len(ids.ChannelIDs)),
		window:       time.Duration(cfg.Listener.AnnounceWindowSeconds) * time.Second,
		staleAfter:   time.Duration(cfg.Liveness.StaleAfterMs) * time.Millisecond,
		words:        cfg.Listener.AnnounceWords,
		queue:        make(chan chatsync.RemoteMessage, queueSize),
		limiters:     make(map[uint64]*rate.Limiter),
		channelNames: make(map[uint64]string),
	}
	for _, id := range ids.ChannelIDs {
		if id != ids.BridgeChannelID {
			l.channels[id] = true
		}
	}
	return l, nil
}

// Run holds the listener lock, connects, and handles messages until ctx
// ends. It returns an error wrapping daemon.ErrAlreadyRunning when another
// listener holds the lock.
func (l *Listener) Run(ctx context.Context) error {
	lock := daemon.NewLock(l.cfg.LockPath(Role), Role)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := OpenStore(l.cfg.Paths.ListenerDB, l.cfg.Listener.ProcessedRetention)
	if err != nil {
		return err
	}
	defer store.Close()
	l.store = store

	if err := l.connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.remote.Close(); err != nil {
			l.logger.Debug("remote close failed", logging.Error(err))
		}
	}()

	self := l.remote.Self()
	l.logger.Info("listener started",
		logging.String(logging.FieldEventType, "listener_started"),
		logging.Uint64("self_id", self.ID),
		logging.Bool("mirror", l.bridgeID != 0),
		logging.Int("channels", len(l.channels)),
	)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("listener stopped", logging.String(logging.FieldEventType, "listener_stopped"))
			return nil
		case msg := <-l.queue:
			l.process(ctx, msg)
		}
	}
}

// connect asks for message content first and retries once without it when
// the intent is refused.
func (l *Listener) connect(ctx context.Context) error {
	err := l.remote.Open(ctx, chatsync.Capabilities{MessageContent: true}, l)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrCapability) {
		return fmt.Errorf("connect: %w", err)
	}
	logging.WarnWithContext(l.logger, "message content intent refused", "intent_downgrade",
		logging.Error(err),
		logging.String(logging.FieldImpact, "announcements omit message text"),
		logging.String(logging.FieldErrorHint, "enable the Message Content intent in the developer portal"),
	)
	if err := l.remote.Open(ctx, chatsync.Capabilities{}, l); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// HandleMessage queues a gateway message without blocking the gateway.
func (l *Listener) HandleMessage(msg chatsync.RemoteMessage) {
	select {
	case l.queue <- msg:
	default:
		l.mu.Lock()
		l.dropped++
		dropped := l.dropped
		l.mu.Unlock()
		logging.WarnWithContext(l.logger, "listener queue full", "listener_queue_full",
			logging.Uint64(logging.FieldMessageID, msg.ID),
			logging.Int("dropped", dropped),
			logging.String(logging.FieldImpact, "message not mirrored or announced"),
		)
	}
}

// HandleReaction ignores reactions.
func (l *Listener) HandleReaction(chatsync.ReactionEvent) {}

// process handles one message: direct messages are remembered, mirrored,
// and announced; messages in monitored channels are announced only.
func (l *Listener) process(ctx context.Context, msg chatsync.RemoteMessage) {
	direct := msg.GuildID == 0
	if !direct && !l.channels[msg.ChannelID] {
		return
	}
	self := l.remote.Self()
	mine := self.ID != 0 && msg.Author.ID == self.ID
	if msg.Author.Bot && !mine {
		return
	}
	if !direct && mine {
		return
	}

	fresh, err := l.store.Mark(ctx, msg.ID, l.now())
	if err != nil {
		logging.WarnWithContext(l.logger, "processed id store failed", "listener_store_failed",
			logging.Uint64(logging.FieldMessageID, msg.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message may be handled twice"),
		)
	} else if !fresh {
		return
	}

	logger := l.logger.With(logging.Uint64(logging.FieldMessageID, msg.ID))
	active := liveness.Fresh(l.cfg.Paths.HeartbeatFile, l.staleAfter, l.now())

	switch {
	case direct && mine:
		if active {
			return
		}
		l.mirrorOutgoing(ctx, logger, msg)
	case direct:
		name := l.resolveName(ctx, msg.Author)
		if _, err := l.peers.Remember(msg.Author.ID, name); err != nil {
			logging.WarnWithContext(logger, "peer index write failed", "peer_index_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "direct message missing from the app until it arrives again"),
			)
		}
		if active {
			logger.Debug("foreground app active; skipping mirror and announcement")
			return
		}
		l.mirror(ctx, logger, chatsync.FormatIncomingMirror(name, msg.Author.ID, bridgeBody(msg)))
		l.announce(msg.Author.ID, directAnnouncement(name, msg.Content, l.words))
	default:
		if active {
			return
		}
		name := l.resolveName(ctx, msg.Author)
		l.announce(msg.Author.ID, channelAnnouncement(name, l.channelName(ctx, msg.ChannelID), msg.Content, l.words))
	}
}

func (l *Listener) mirrorOutgoing(ctx context.Context, logger *slog.Logger, msg chatsync.RemoteMessage) {
	if l.bridgeID == 0 {
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout())
	ch, err := l.remote.Channel(reqCtx, msg.ChannelID)
	cancel()
	if err != nil || ch.Recipient == nil {
		logger.Debug("outgoing direct message recipient unknown", logging.Error(err))
		return
	}
	name := l.resolveName(ctx, *ch.Recipient)
	l.mirror(ctx, logger, chatsync.FormatOutgoingMirror(name, ch.Recipient.ID, bridgeBody(msg)))
}

func (l *Listener) mirror(ctx context.Context, logger *slog.Logger, line string) {
	if l.bridgeID == 0 {
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout())
	defer cancel()
	if _, err := l.remote.Send(reqCtx, l.bridgeID, line, 0); err != nil {
		logging.WarnWithContext(logger, "mirror forward failed", "mirror_forward_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the app will not list this direct message after restart"),
		)
	}
}

// announce speaks text unless the author was announced within the window.
func (l *Listener) announce(author uint64, text string) {
	if l.speaker == nil || !l.allow(author) {
		return
	}
	l.speaker.Say(text)
}

func (l *Listener) allow(author uint64) bool {
	if l.window <= 0 {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[author]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.window), 1)
		l.limiters[author] = limiter
	}
	l.mu.Unlock()
	return limiter.AllowN(l.now(), 1)
}

// resolveName prefers the guild nickname, then the account's display name.
func (l *Listener) resolveName(ctx context.Context, u chatsync.User) string {
	if l.guildID != 0 {
		reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout())
		member, err := l.remote.Member(reqCtx, l.guildID, u.ID)
		cancel()
		if err == nil {
			if name := member.DisplayName(); name != "" {
				return displayName(name)
			}
		}
	}
	return displayName(u.Name())
}

func (l *Listener) channelName(ctx context.Context, id uint64) string {
	l.mu.Lock()
	name, ok := l.channelNames[id]
	l.mu.Unlock()
	if ok {
		return name
	}
	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout())
	ch, err := l.remote.Channel(reqCtx, id)
	cancel()
	if err != nil || ch.Name == "" {
		return "channel"
	}
	name = displayName(ch.Name)
	l.mu.Lock()
	l.channelNames[id] = name
	l.mu.Unlock()
	return name
}
