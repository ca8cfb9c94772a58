package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"switchscan/internal/config"
	"switchscan/internal/logging"
	"switchscan/internal/scan"
	"switchscan/internal/services"
)

// eviocgrab is _IOW('E', 0x90, int).
const eviocgrab = 0x40044590

const defaultRetryInterval = 2 * time.Second

// Config selects the device and bindings for a Switch.
type Config struct {
	// Device is an event node path. Empty picks the first device that
	// reports both keys.
	Device        string
	AdvanceKey    string
	ActivateKey   string
	Grab          bool
	SysRoot       string
	RetryInterval time.Duration
}

// ConfigFrom converts the [input] settings.
func ConfigFrom(in config.Input) Config {
	return Config{
		Device:      in.Device,
		AdvanceKey:  in.AdvanceKey,
		ActivateKey: in.ActivateKey,
		Grab:        in.Grab,
	}
}

// Opener opens an event device for reading.
type Opener func(path string, grab bool) (io.ReadCloser, error)

// Switch turns key events from one device into scan edges.
type Switch struct {
	cfg      Config
	advance  uint16
	activate uint16
	sink     func(scan.Edge) bool
	logger   *slog.Logger
	open     Opener
	now      func() time.Time
	hotplug  chan struct{}

	mu     sync.Mutex
	down   map[scan.Button]bool
	active string
}

// SwitchOption customizes a Switch.
type SwitchOption func(*Switch)

// WithOpener replaces the device opener.
func WithOpener(open Opener) SwitchOption {
	return func(s *Switch) {
		if open != nil {
			s.open = open
		}
	}
}

// WithClock overrides the edge timestamp source.
func WithClock(now func() time.Time) SwitchOption {
	return func(s *Switch) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSwitch resolves the key bindings. sink receives every edge and
// reports false once the consumer has stopped.
func NewSwitch(cfg Config, sink func(scan.Edge) bool, logger *slog.Logger, opts ...SwitchOption) (*Switch, error) {
	advance, err := ParseKey(cfg.AdvanceKey)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "input", "advance key", err.Error(), nil)
	}
	activate, err := ParseKey(cfg.ActivateKey)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "input", "activate key", err.Error(), nil)
	}
	if advance == activate {
		return nil, services.Wrap(services.ErrConfiguration, "input", "bindings", "advance and activate keys must differ", nil)
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	s := &Switch{
		cfg:      cfg,
		advance:  advance,
		activate: activate,
		sink:     sink,
		logger:   logging.NewComponentLogger(logger, "input"),
		open:     OpenDevice,
		now:      time.Now,
		hotplug:  make(chan struct{}, 1),
		down:     make(map[scan.Button]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Notify wakes a Switch that is waiting for its device to appear.
func (s *Switch) Notify() {
	select {
	case s.hotplug <- struct{}{}:
	default:
	}
}

// Device returns the path currently being read, if any.
func (s *Switch) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Run reads the device until ctx is cancelled, re-opening it after
// failures when udev announces a device or the retry interval elapses.
func (s *Switch) Run(ctx context.Context) error {
	for {
		path, err := s.resolve()
		if err == nil {
			err = s.session(ctx, path)
		}
		if ctx.Err() != nil {
			return nil
		}
		logging.WarnWithContext(s.logger, "switch device unavailable", "input_device_unavailable",
			logging.String("device", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check input.device and that the user may read /dev/input"),
			logging.String(logging.FieldImpact, "switch presses are ignored until the device returns"),
		)
		timer := time.NewTimer(s.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.hotplug:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (s *Switch) resolve() (string, error) {
	if path := strings.TrimSpace(s.cfg.Device); path != "" {
		return path, nil
	}
	dev, err := Find(s.cfg.SysRoot, s.advance, s.activate)
	if err != nil {
		return "", err
	}
	return dev.Path, nil
}

func (s *Switch) session(ctx context.Context, path string) error {
	rc, err := s.open(path, s.cfg.Grab)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.active = path
	s.mu.Unlock()
	s.logger.Info("switch device opened",
		logging.String(logging.FieldEventType, "input_device_opened"),
		logging.String("device", path),
		logging.String("advance_key", KeyName(s.advance)),
		logging.String("activate_key", KeyName(s.activate)),
		logging.Bool("grab", s.cfg.Grab),
	)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = rc.Close()
	}()
	err = readEvents(rc, s.handle)
	close(done)

	s.releaseAll()
	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()
	if errors.Is(err, syscall.ENODEV) {
		return errDeviceGone
	}
	return err
}

func (s *Switch) handle(ev Event) {
	if ev.Type != evKey || ev.Value == keyRepeat {
		return
	}
	var button scan.Button
	switch ev.Code {
	case s.advance:
		button = scan.Advance
	case s.activate:
		button = scan.Activate
	default:
		return
	}
	pressed := ev.Value == keyPress
	s.mu.Lock()
	if s.down[button] == pressed {
		s.mu.Unlock()
		return
	}
	s.down[button] = pressed
	s.mu.Unlock()
	s.emit(scan.Edge{Button: button, Pressed: pressed, At: s.now()})
}

// releaseAll closes any press left open by a lost device so the gesture
// tracker does not see the button as stuck.
func (s *Switch) releaseAll() {
	s.mu.Lock()
	var held []scan.Button
	for b, down := range s.down {
		if down {
			held = append(held, b)
			s.down[b] = false
		}
	}
	s.mu.Unlock()
	for _, b := range held {
		s.emit(scan.Edge{Button: b, Pressed: false, At: s.now()})
	}
}

func (s *Switch) emit(edge scan.Edge) {
	if s.sink != nil {
		s.sink(edge)
	}
}

// OpenDevice opens an evdev node for non-blocking reads so Close unblocks
// a pending Read. With grab set, the device is grabbed exclusively.
func OpenDevice(path string, grab bool) (io.ReadCloser, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, services.Wrap(services.ErrDevice, "input", "open", path, err)
	}
	if !grab {
		return f, nil
	}
	raw, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, services.Wrap(services.ErrDevice, "input", "grab", path, err)
	}
	var grabErr error
	if err := raw.Control(func(fd uintptr) {
		grabErr = unix.IoctlSetInt(int(fd), eviocgrab, 1)
	}); err != nil {
		grabErr = err
	}
	if grabErr != nil {
		f.Close()
		return nil, services.Wrap(services.ErrDevice, "input", "grab", fmt.Sprintf("%s is held by another reader", path), grabErr)
	}
	return f, nil
}
