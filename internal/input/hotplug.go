package input

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"switchscan/internal/logging"
)

// HotplugEvent is an input device arriving or leaving.
type HotplugEvent struct {
	Action string
	Device string
}

// Monitor listens for udev netlink events on the input subsystem.
type Monitor struct {
	logger  *slog.Logger
	handler func(HotplugEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewMonitor creates a monitor that calls handler for every event node
// added or removed.
func NewMonitor(logger *slog.Logger, handler func(HotplugEvent)) *Monitor {
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		handler: handler,
	}
}

// Start connects to the netlink socket. A connection failure is logged and
// not returned: re-opening then relies on the switch retry interval.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; device re-open will poll",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "a re-plugged switch is noticed on the next retry"),
		)
		return nil
	}
	m.conn = conn
	m.quit = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	quit, done := m.quit, m.done
	go m.monitorLoop(ctx, conn, quit, done)

	m.logger.Info("hotplug monitor started", logging.String(logging.FieldEventType, "hotplug_monitor_started"))
	return nil
}

// Stop shuts the monitor down and waits for its loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.quit)
	done := m.done
	conn := m.conn
	m.quit, m.done, m.conn = nil, nil, nil
	m.running = false
	m.mu.Unlock()

	<-done
	_ = conn.Close()
	m.logger.Info("hotplug monitor stopped", logging.String(logging.FieldEventType, "hotplug_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit, done chan struct{}) {
	defer close(done)
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "switch hotplug may go unnoticed"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=input with ACTION=add|remove.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "input"},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	device := eventDevice(uevent.Env)
	if device == "" {
		return
	}
	ev := HotplugEvent{Action: string(uevent.Action), Device: device}
	m.logger.Debug("input hotplug",
		logging.String("action", ev.Action),
		logging.String("device", ev.Device),
	)
	if m.handler != nil {
		m.handler(ev)
	}
}

// eventDevice returns the /dev path of an event node uevent, or "" for
// other input nodes such as mice or js.
func eventDevice(env map[string]string) string {
	name := env["DEVNAME"]
	if name == "" {
		devpath := env["DEVPATH"]
		if devpath == "" {
			return ""
		}
		name = filepath.Base(devpath)
	}
	base := filepath.Base(name)
	if !strings.HasPrefix(base, "event") {
		return ""
	}
	return filepath.Join(devInput, base)
}
