package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"switchscan/internal/logging"
)

// Edge is one raw switch transition.
type Edge struct {
	Button  Button
	Pressed bool
	// At is when the edge happened; zero means when the loop receives it.
	At time.Time
}

// Loop is the UI goroutine. It owns the Engine and the Gesture and is the
// only place either is touched.
type Loop struct {
	engine  *Engine
	gesture *Gesture
	logger  *slog.Logger

	edges chan Edge
	calls chan func(*Engine)
	done  chan struct{}
}

// NewLoop wires an engine to a gesture classifier.
func NewLoop(engine *Engine, gesture *Gesture, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	if gesture == nil {
		gesture = NewGesture(DefaultTimings())
	}
	return &Loop{
		engine:  engine,
		gesture: gesture,
		logger:  logger,
		edges:   make(chan Edge, 64),
		calls:   make(chan func(*Engine), 64),
		done:    make(chan struct{}),
	}
}

// Feed hands a switch edge to the loop. It reports false once the loop has
// stopped.
func (l *Loop) Feed(edge Edge) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.edges <- edge:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop goroutine. It reports false once the loop has
// stopped.
func (l *Loop) Do(fn func(*Engine)) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.calls <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Inject applies an action as though a gesture had produced it.
func (l *Loop) Inject(a Action) bool {
	return l.Do(func(e *Engine) { e.Apply(a) })
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run processes edges, hold timers, and queued calls until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var fire <-chan time.Time
		if deadline, ok := l.gesture.NextDeadline(); ok {
			timer.Reset(time.Until(deadline))
			fire = timer.C
		}
		select {
		case <-ctx.Done():
			return nil
		case edge := <-l.edges:
			l.handleEdge(edge)
		case fn := <-l.calls:
			l.call(fn)
		case now := <-fire:
			l.perform(l.gesture.Tick(now))
		}
	}
}

func (l *Loop) handleEdge(edge Edge) {
	at := edge.At
	if at.IsZero() {
		at = time.Now()
	}
	if edge.Pressed {
		l.perform(l.gesture.Press(edge.Button, at))
		return
	}
	l.perform(l.gesture.Release(edge.Button, at))
}

func (l *Loop) perform(actions []Action) {
	for _, a := range actions {
		l.logger.Debug("scan action", logging.String("action", a.String()))
		l.engine.Apply(a)
	}
}

func (l *Loop) call(fn func(*Engine)) {
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(l.logger, "scan call panicked", "scan_call_panic",
				logging.Error(fmt.Errorf("panic: %v", r)),
				logging.String(logging.FieldImpact, "queued UI update skipped"),
			)
		}
	}()
	fn(l.engine)
}
