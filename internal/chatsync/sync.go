package chatsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"switchscan/internal/config"
	"switchscan/internal/events"
	"switchscan/internal/logging"
	"switchscan/internal/retry"
	"switchscan/internal/services"
	"switchscan/internal/thread"
)

// Status lines published as events.ConnectionStatus.
const (
	StatusFallback     = "Message Content intent not enabled. Falling back without it..."
	ContentPlaceholder = "[message content not available — enable Message Content intent]"
)

const (
	inboxSize     = 256
	maxPageSize   = 100
	defaultRate   = 5.0
	fallbackName  = "user"
	componentName = "chatsync"
)

// Options configures a Synchronizer.
type Options struct {
	GuildID         uint64
	ChannelIDs      []uint64
	BridgeChannelID uint64
	Limits          config.Sync
	FetchRate       float64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// Peers seeds direct message stubs from the persisted peer index.
	Peers map[uint64]string
	// Unread decides whether an admitted message starts unread. live is true
	// for messages that arrive after the warm load.
	Unread func(msg thread.Message, live bool) bool
	Retry  retry.Policy
}

// OptionsFromConfig parses the configured identifiers and limits.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		Limits:          cfg.Sync,
		FetchRate:       cfg.Discord.FetchRatePerSecond,
		RequestTimeout:  cfg.RequestTimeout(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Retry:           retry.DefaultPolicy(),
	}
	var err error
	if opts.GuildID, err = parseID("discord.guild_id", cfg.Discord.GuildID); err != nil {
		return Options{}, err
	}
	if opts.BridgeChannelID, err = parseID("discord.dm_bridge_channel_id", cfg.Discord.DMBridgeChannelID); err != nil {
		return Options{}, err
	}
	for _, raw := range cfg.Discord.ChannelIDs {
		id, err := parseID("discord.channel_ids", raw)
		if err != nil {
			return Options{}, err
		}
		if id != 0 {
			opts.ChannelIDs = append(opts.ChannelIDs, id)
		}
	}
	return opts, nil
}

func parseID(field, raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid id %q: %w", field, raw, services.ErrConfiguration)
	}
	return id, nil
}

// Status is a point-in-time view of the connection.
type Status struct {
	Text      string `json:"text"`
	Connected bool   `json:"connected"`
	Degraded  bool   `json:"degraded"`
	Warm      bool   `json:"warm"`
	Self      string `json:"self,omitempty"`
}

// Synchronizer owns the Remote and is the writer of the thread store.
type Synchronizer struct {
	remote  Remote
	store   *thread.Store
	bus     *events.Bus
	logger  *slog.Logger
	opts    Options
	limiter *rate.Limiter

	mu        sync.Mutex
	self      User
	names     map[uint64]string
	hints     map[uint64]string
	monitored map[uint64]thread.Ref
	dmPeers   map[uint64]uint64
	dmChans   map[uint64]uint64
	inflight  map[thread.Ref]chan struct{}
	status    Status
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   bool

	inbox   chan any
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// New builds a synchronizer. The store and bus are owned by the caller.
func New(remote Remote, store *thread.Store, bus *events.Bus, opts Options, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.FetchRate <= 0 {
		opts.FetchRate = defaultRate
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Retry.Multiplier == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Unread == nil {
		opts.Unread = func(thread.Message, bool) bool { return false }
	}
	s := &Synchronizer{
		remote:    remote,
		store:     store,
		bus:       bus,
		logger:    logging.NewComponentLogger(logger, componentName),
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Limit(opts.FetchRate), int(opts.FetchRate)+1),
		names:     make(map[uint64]string),
		hints:     make(map[uint64]string),
		monitored: make(map[uint64]thread.Ref),
		dmPeers:   make(map[uint64]uint64),
		dmChans:   make(map[uint64]uint64),
		inflight:  make(map[thread.Ref]chan struct{}),
		status:    Status{Text: "Connecting..."},
		inbox:     make(chan any, inboxSize),
	}
	for i, id := range opts.ChannelIDs {
		if _, dup := s.monitored[id]; dup {
			continue
		}
		if i == 0 {
			s.monitored[id] = thread.Main()
		} else {
			s.monitored[id] = thread.Channel(id)
		}
	}
	return s
}

// Start connects and warm-loads in the background, then routes live events
// until Stop. Calling Start twice has no effect.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
}

// Stop closes the remote within the shutdown timeout, then cancels every
// outstanding task and waits for them.
func (s *Synchronizer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	connected := s.status.Connected
	s.mu.Unlock()

	var err error
	if connected {
		closed := make(chan error, 1)
		go func() { closed <- s.remote.Close() }()
		timer := time.NewTimer(s.opts.ShutdownTimeout)
		select {
		case err = <-closed:
		case <-timer.C:
			err = services.Wrap(services.ErrTimeout, componentName, "close", "remote did not close in time", nil)
		case <-ctx.Done():
			err = ctx.Err()
		}
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	prev := s.Status()
	s.setStatus(Status{Text: "Disconnected", Degraded: prev.Degraded, Warm: prev.Warm})
	return err
}

// Go runs fn as a tracked background task bound to the synchronizer's
// lifetime. Errors are logged. It reports false when the synchronizer is
// not running.
func (s *Synchronizer) Go(op string, fn func(ctx context.Context) error) bool {
	s.mu.Lock()
	if s.ctx == nil || s.stopped {
		s.mu.Unlock()
		return false
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(s.logger, "background task failed", "chatsync_task_failed",
				logging.String("op", op),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check network connectivity and bot permissions"),
			)
		}
	}()
	return true
}

// Status returns the current connection status.
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Degraded reports whether the connection runs without message content.
func (s *Synchronizer) Degraded() bool {
	return s.Status().Degraded
}

// Self returns the connected account.
func (s *Synchronizer) Self() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

func (s *Synchronizer) setStatus(st Status) {
	s.mu.Lock()
	st.Self = s.self.Name()
	s.status = st
	s.mu.Unlock()
	s.bus.Publish(events.ConnectionStatus{Text: st.Text, Connected: st.Connected, Degraded: st.Degraded})
}

func (s *Synchronizer) warmed() bool {
	return s.Status().Warm
}

func (s *Synchronizer) run(ctx context.Context) {
	if err := s.connect(ctx); err != nil {
		return
	}
	s.warmLoad(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.inbox:
			switch ev := ev.(type) {
			case RemoteMessage:
				s.handleMessage(ctx, ev)
			case ReactionEvent:
				s.handleReaction(ctx, ev)
			}
		}
	}
}

// connect opens the remote with full capabilities, downgrading once when
// message content is refused.
func (s *Synchronizer) connect(ctx context.Context) error {
	h := handler{s: s}
	degraded := false
	err := s.remote.Open(ctx, Capabilities{MessageContent: true}, h)
	if errors.Is(err, services.ErrCapability) {
		degraded = true
		logging.WarnWithContext(s.logger, "message content capability denied", "capability_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "enable the Message Content intent in the developer portal"),
			logging.String(logging.FieldImpact, "channel message bodies will be unavailable"),
		)
		s.setStatus(Status{Text: StatusFallback, Degraded: true})
		err = s.remote.Open(ctx, Capabilities{}, h)
	}
	if err != nil {
		logging.ErrorWithContext(s.logger, "remote connect failed", "connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the bot token and network"),
		)
		s.setStatus(Status{Text: "Discord closed: " + err.Error(), Degraded: degraded})
		return err
	}
	self := s.remote.Self()
	s.mu.Lock()
	s.self = self
	s.mu.Unlock()
	s.logger.Info("connected", logging.String("self", self.Name()), logging.Bool("degraded", degraded))
	s.setStatus(Status{Text: "Logged in as " + self.Name(), Connected: true, Degraded: degraded})
	return nil
}

// call runs a read-only remote request through the rate limiter with
// retries for transport failures.
func (s *Synchronizer) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := retry.Do(ctx, s.opts.Retry, s.logger, op, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
		return fn(reqCtx)
	})
	return err
}

// handler forwards gateway callbacks into the synchronizer's inbox.
type handler struct{ s *Synchronizer }

func (h handler) HandleMessage(m RemoteMessage)   { h.s.enqueue(m) }
func (h handler) HandleReaction(ev ReactionEvent) { h.s.enqueue(ev) }

func (s *Synchronizer) enqueue(ev any) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	if ctx.Err() != nil {
		return
	}
	// Gateway callbacks run on the connection goroutine, so a full inbox
	// drops the event rather than stalling the gateway.
	select {
	case s.inbox <- ev:
	default:
		n := s.dropped.Add(1)
		if n == 1 || n%100 == 0 {
			logging.WarnWithContext(s.logger, "gateway event dropped", "inbox_full",
				logging.Uint64("dropped_total", n),
				logging.Int("inbox_size", cap(s.inbox)),
				logging.String(logging.FieldImpact, "a live message or reaction was not routed"),
				logging.String(logging.FieldErrorHint, "restart the messenger to resync missed messages"),
			)
		}
	}
}

// Dropped reports how many gateway events were discarded on a full inbox.
func (s *Synchronizer) Dropped() uint64 {
	return s.dropped.Load()
}
