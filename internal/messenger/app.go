package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"switchscan/internal/chatsync"
	"switchscan/internal/config"
	"switchscan/internal/events"
	"switchscan/internal/input"
	"switchscan/internal/liveness"
	"switchscan/internal/logging"
	"switchscan/internal/peerindex"
	"switchscan/internal/readstate"
	"switchscan/internal/scan"
	"switchscan/internal/services"
	"switchscan/internal/speech"
	"switchscan/internal/thread"
)

const eventBuffer = 512

// ErrNotRunning is returned by control calls made while the scan loop is
// stopped.
var ErrNotRunning = errors.New("switchscan is not running")

// Options wires an App.
type Options struct {
	Config *config.Config
	Remote chatsync.Remote
	// Speech builds narration devices. Nil uses the configured engine.
	Speech speech.Factory
	// Composer collects outgoing text. Nil uses input.composer when set.
	Composer Composer
	// Headless skips the switch device; actions then arrive through Signal.
	Headless  bool
	SessionID string
	Logger    *slog.Logger
}

// App is the foreground process.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string
	started   time.Time

	store     *thread.Store
	bus       *events.Bus
	sync      *chatsync.Synchronizer
	reads     *readstate.Store
	voice     *speech.Coordinator
	engine    *scan.Engine
	loop      *scan.Loop
	ui        *ui
	heartbeat *liveness.Heartbeat
	sw        *input.Switch
	monitor   *input.Monitor

	running  atomic.Bool
	exitOnce sync.Once
	exitCh   chan struct{}
}

// New builds the app. Nothing runs until Run.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("messenger: config is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("messenger: remote is required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "app")

	reads, err := readstate.Open(cfg.Paths.ReadStateFile)
	if err != nil {
		if !errors.Is(err, services.ErrData) || reads == nil {
			return nil, err
		}
		logging.WarnWithContext(logger, "read state unreadable", "read_state_load_failed",
			logging.String("path", cfg.Paths.ReadStateFile),
			logging.Error(err),
			logging.String(logging.FieldImpact, "offline unread labels start empty"),
			logging.String(logging.FieldErrorHint, "the file is rewritten at the next clean exit"),
		)
	}
	peers, err := peerindex.Load(cfg.Paths.PeerIndexFile)
	if err != nil {
		logging.WarnWithContext(logger, "peer index unreadable", "peer_index_load_failed",
			logging.String("path", cfg.Paths.PeerIndexFile),
			logging.Error(err),
			logging.String(logging.FieldImpact, "direct messages appear once they are received"),
		)
		peers = nil
	}

	syncOpts, err := chatsync.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	syncOpts.Peers = peers
	syncOpts.Unread = unreadRule(reads)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		sessionID: opts.SessionID,
		store:     thread.NewStore(),
		bus:       events.NewBus(opts.Logger),
		reads:     reads,
		started:   time.Now(),
		exitCh:    make(chan struct{}),
	}
	a.sync = chatsync.New(opts.Remote, a.store, a.bus, syncOpts, opts.Logger)

	factory := opts.Speech
	if factory == nil {
		factory = speech.FactoryFor(cfg.Speech, opts.Logger)
	}
	a.voice = speech.New(factory, speech.OptionsFor(cfg.Speech), opts.Logger)

	composer := opts.Composer
	if composer == nil && cfg.Input.Composer != "" {
		cc, err := NewCommandComposer(cfg.Input.Composer)
		if err != nil {
			return nil, err
		}
		composer = cc
	}

	a.engine = scan.NewEngine(a.voice.Say, scan.NewAnchor(cfg.Scan.FocusAnchorRatio), opts.Logger)
	t := cfg.ScanTimings()
	gesture := scan.NewGesture(scan.Timings{
		AdvanceHold:   t.AdvanceHold,
		AdvanceRepeat: t.AdvanceRepeat,
		ActivateHold:  t.ActivateHold,
		Cooldown:      t.Cooldown,
	})
	a.loop = scan.NewLoop(a.engine, gesture, opts.Logger)
	a.ui = newUI(uiDeps{
		Chat:     a.sync,
		Store:    a.store,
		Reads:    reads,
		Speaker:  a.voice,
		Composer: composer,
		Limits:   cfg.Sync,
		Rows:     cfg.Scan.ViewportRows,
		Logger:   opts.Logger,
		Self:     func() uint64 { return a.sync.Self().ID },
		Exit:     a.Exit,
	})

	a.heartbeat = liveness.NewHeartbeat(cfg.Paths.HeartbeatFile,
		time.Duration(cfg.Liveness.IntervalMs)*time.Millisecond, opts.Logger)

	if !opts.Headless {
		a.sw, err = input.NewSwitch(input.ConfigFrom(cfg.Input), a.feed, opts.Logger)
		if err != nil {
			return nil, err
		}
		a.monitor = input.NewMonitor(opts.Logger, func(input.HotplugEvent) { a.sw.Notify() })
	}
	return a, nil
}

// unreadRule marks warm-load messages by the offline rule and live
// messages as unread unless they were read before.
func unreadRule(reads *readstate.Store) func(thread.Message, bool) bool {
	return func(msg thread.Message, live bool) bool {
		if msg.FromSelf {
			return false
		}
		if live {
			return !reads.IsRead(msg.ID)
		}
		return reads.Unread(msg)
	}
}

// feed drops switch edges while a composition has the user's attention.
func (a *App) feed(edge scan.Edge) bool {
	if a.ui.busy.Held() {
		return true
	}
	return a.loop.Feed(edge)
}

// Exit asks Run to shut down. It is safe to call more than once.
func (a *App) Exit() {
	a.exitOnce.Do(func() { close(a.exitCh) })
}

// Run starts every component and blocks until ctx ends, Exit is called, or
// a component fails. Shutdown always runs before it returns.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("messenger: app already running")
	}
	// Components outlive ctx so shutdown can stop them in order.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	inputCtx, stopInput := context.WithCancel(runCtx)
	defer stopInput()

	a.voice.Start(runCtx)
	sub := a.bus.Subscribe(eventBuffer)

	group, gctx := errgroup.WithContext(runCtx)
	group.Go(func() error { return a.loop.Run(gctx) })
	group.Go(func() error {
		if err := a.heartbeat.Run(gctx); err != nil {
			logging.WarnWithContext(a.logger, "heartbeat unavailable", "heartbeat_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "background listener may narrate over the app"),
			)
		}
		return nil
	})
	group.Go(func() error {
		a.pump(gctx, sub)
		return nil
	})

	var inputs sync.WaitGroup
	if a.sw != nil {
		if err := a.monitor.Start(inputCtx); err != nil {
			a.logger.Warn("hotplug monitor unavailable", logging.Error(err))
		}
		inputs.Go(func() {
			if err := a.sw.Run(inputCtx); err != nil {
				a.logger.Warn("switch reader stopped", logging.Error(err))
			}
		})
	}

	watcher, err := peerindex.Watch(runCtx, a.cfg.Paths.PeerIndexFile, a.logger, a.sync.UpdatePeers)
	if err != nil {
		logging.WarnWithContext(a.logger, "peer index watch unavailable", "peer_index_watch_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new direct message peers appear after restart"),
		)
	}

	a.sync.Start(runCtx)
	a.loop.Do(a.ui.attach)
	a.logger.Info("switchscan started",
		logging.String(logging.FieldEventType, "app_started"),
		logging.Bool("headless", a.sw == nil),
	)

	select {
	case <-ctx.Done():
	case <-a.exitCh:
	case <-gctx.Done():
	}

	// Shutdown order: input, read state, remote, tasks, heartbeat, speech.
	var errs []error
	stopInput()
	if a.monitor != nil {
		a.monitor.Stop()
	}
	inputs.Wait()

	if err := a.reads.Save(time.Now()); err != nil {
		errs = append(errs, err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	if err := a.sync.Stop(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop synchronizer: %w", err))
	}
	stopCancel()

	cancel()
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	if watcher != nil {
		_ = watcher.Close()
	}

	a.heartbeat.Clear()

	if err := a.voice.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close speech: %w", err))
	}
	sub.Close()
	a.bus.Close()

	a.logger.Info("switchscan stopped", logging.String(logging.FieldEventType, "app_stopped"))
	return errors.Join(errs...)
}

// pump hands bus events to the scan loop in publish order.
func (a *App) pump(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if !a.loop.Do(func(*scan.Engine) { a.ui.handle(ev) }) {
				return
			}
		}
	}
}
