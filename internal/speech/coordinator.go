package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"switchscan/internal/logging"
	"switchscan/internal/services"
)

const probeTimeout = 2 * time.Second

// Options tunes the coordinator. Zero values disable the periodic keepalive
// and the idle reset respectively.
type Options struct {
	KeepaliveInterval time.Duration
	IdleReset         time.Duration
}

// Stats is a point-in-time view of the coordinator.
type Stats struct {
	Spoken     uint64 `json:"spoken"`
	Superseded uint64 `json:"superseded"`
	Resets     uint64 `json:"resets"`
	Failures   uint64 `json:"failures"`
	Speaking   bool   `json:"speaking"`
	LastText   string `json:"last_text"`
}

// Coordinator owns the narration worker.
type Coordinator struct {
	factory Factory
	opts    Options
	logger  *slog.Logger

	mu        sync.Mutex
	pending   *string
	interrupt context.CancelFunc
	speaking  bool
	lastUse   time.Time
	lastText  string

	device Device // worker-owned

	wake      chan struct{}
	resetCh   chan struct{}
	keepalive chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool

	spoken     atomic.Uint64
	superseded atomic.Uint64
	resets     atomic.Uint64
	failures   atomic.Uint64
}

// New constructs a coordinator. Start must be called before anything is spoken.
func New(factory Factory, opts Options, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		factory:   factory,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "speech"),
		wake:      make(chan struct{}, 1),
		resetCh:   make(chan struct{}, 1),
		keepalive: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start builds the device and launches the worker. A device that fails to
// build is retried on the next request.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		c.started.Store(true)
		c.mu.Lock()
		c.lastUse = time.Now()
		c.mu.Unlock()
		go c.run(runCtx)
	})
}

// Say requests text. It never blocks. A request made while the device is
// busy interrupts playback and replaces any request still pending.
func (c *Coordinator) Say(text string) {
	text = Sanitize(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.pending != nil {
		c.superseded.Add(1)
	}
	c.pending = &text
	if c.interrupt != nil {
		c.interrupt()
	}
	c.mu.Unlock()
	signal(c.wake)
}

// Halt drops pending text and stops playback.
func (c *Coordinator) Halt() {
	c.mu.Lock()
	c.pending = nil
	if c.interrupt != nil {
		c.interrupt()
	}
	c.mu.Unlock()
}

// Reset tears down and recreates the device.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	if c.interrupt != nil {
		c.interrupt()
	}
	c.mu.Unlock()
	signal(c.resetCh)
}

// Keepalive requests an immediate health check.
func (c *Coordinator) Keepalive() {
	signal(c.keepalive)
}

// Stats reports counters and the current playback state.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	speaking, last := c.speaking, c.lastText
	c.mu.Unlock()
	return Stats{
		Spoken:     c.spoken.Load(),
		Superseded: c.superseded.Load(),
		Resets:     c.resets.Load(),
		Failures:   c.failures.Load(),
		Speaking:   speaking,
		LastText:   last,
	}
}

// Close stops the worker and closes the device.
func (c *Coordinator) Close() error {
	if !c.started.Load() {
		return nil
	}
	c.stopOnce.Do(func() {
		c.Halt()
		c.cancel()
		<-c.done
	})
	return nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer c.closeDevice()

	c.reinit("start")

	var tick <-chan time.Time
	if c.opts.KeepaliveInterval > 0 {
		ticker := time.NewTicker(c.opts.KeepaliveInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		case <-c.resetCh:
			c.reinit("reset requested")
		case <-c.keepalive:
			c.checkHealth(ctx)
		case <-tick:
			c.checkHealth(ctx)
		}
		c.drain(ctx)
	}
}

// drain speaks pending text until none remains.
func (c *Coordinator) drain(ctx context.Context) {
	for ctx.Err() == nil {
		c.mu.Lock()
		if c.pending == nil {
			c.mu.Unlock()
			return
		}
		text := *c.pending
		c.pending = nil
		speakCtx, interrupt := context.WithCancel(ctx)
		c.interrupt = interrupt
		c.speaking = true
		c.lastText = text
		c.mu.Unlock()

		err := c.speak(speakCtx, text)
		interrupted := speakCtx.Err() != nil
		interrupt()

		c.mu.Lock()
		c.interrupt = nil
		c.speaking = false
		c.lastUse = time.Now()
		c.mu.Unlock()

		switch {
		case err == nil:
			c.spoken.Add(1)
		case interrupted:
			c.spoken.Add(1)
			c.logger.Debug("utterance interrupted", logging.String("text", text))
		default:
			c.failures.Add(1)
			logging.WarnWithContext(c.logger, "speech device failed; rebuilding", "speech_device_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "utterance dropped"),
				logging.String(logging.FieldErrorHint, "check the speech engine binary and audio output"),
			)
			c.reinit("speak failed")
		}
	}
}

func (c *Coordinator) speak(ctx context.Context, text string) error {
	if c.device == nil {
		c.reinit("device missing")
		if c.device == nil {
			return services.Wrap(services.ErrDevice, "speech", "speak", "no device available", nil)
		}
	}
	return safeCall(func() error { return c.device.Speak(ctx, text) })
}

func (c *Coordinator) checkHealth(ctx context.Context) {
	c.mu.Lock()
	speaking := c.speaking
	idle := time.Since(c.lastUse)
	c.mu.Unlock()
	if speaking {
		return
	}
	if c.device == nil {
		c.reinit("device missing")
		return
	}
	if c.opts.IdleReset > 0 && idle >= c.opts.IdleReset {
		c.reinit("idle")
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := safeCall(func() error { return c.device.Probe(probeCtx) }); err != nil {
		c.failures.Add(1)
		c.logger.Warn("speech probe failed; rebuilding",
			logging.Error(err),
			logging.String(logging.FieldEventType, "speech_probe_failed"),
		)
		c.reinit("probe failed")
	}
}

func (c *Coordinator) reinit(reason string) {
	c.closeDevice()
	if c.factory == nil {
		return
	}
	var device Device
	err := safeCall(func() error {
		var ferr error
		device, ferr = c.factory()
		return ferr
	})
	c.mu.Lock()
	c.lastUse = time.Now()
	c.mu.Unlock()
	if err != nil {
		c.failures.Add(1)
		logging.WarnWithContext(c.logger, "speech device unavailable", "speech_device_unavailable",
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldImpact, "narration silent until the device recovers"),
		)
		return
	}
	c.device = device
	if reason != "start" {
		c.resets.Add(1)
	}
	c.logger.Debug("speech device ready", logging.String("reason", reason))
}

func (c *Coordinator) closeDevice() {
	if c.device == nil {
		return
	}
	device := c.device
	c.device = nil
	if err := safeCall(device.Close); err != nil {
		c.logger.Debug("speech device close failed", logging.Error(err))
	}
}

// safeCall converts a panic inside a device call into an ErrDevice error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrDevice, "speech", "device call", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	err = fn()
	if err != nil && !errors.Is(err, services.ErrDevice) && !errors.Is(err, context.Canceled) {
		err = services.Wrap(services.ErrDevice, "speech", "device call", "", err)
	}
	return err
}
