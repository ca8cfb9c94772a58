package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type syncRecorder struct {
	mu     sync.Mutex
	spoken []string
}

func (r *syncRecorder) speak(text string) {
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()
}

func startLoop(t *testing.T) (*Loop, *syncRecorder, func()) {
	t.Helper()
	rec := &syncRecorder{}
	engine := NewEngine(rec.speak, nil, nil)
	engine.SetScreen(twoBlockScreen(&listItems{labels: []string{"a", "b"}}), -1)
	loop := NewLoop(engine, NewGesture(DefaultTimings()), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	return loop, rec, func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("run: %v", err)
		}
	}
}

func stateOf(t *testing.T, loop *Loop) State {
	t.Helper()
	ch := make(chan State, 1)
	if !loop.Do(func(e *Engine) { ch <- e.State() }) {
		t.Fatal("loop stopped")
	}
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not answer")
	}
	return State{}
}

func waitForState(t *testing.T, loop *Loop, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := stateOf(t, loop)
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("state never matched, last %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoopEdgesDriveEngine(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop, _, stop := startLoop(t)
	defer stop()

	now := time.Now()
	loop.Feed(Edge{Button: Advance, Pressed: true, At: now})
	loop.Feed(Edge{Button: Advance, At: now.Add(50 * time.Millisecond)})
	waitForState(t, loop, func(st State) bool { return st.Mode == ModeBlocks })
}

func TestLoopHoldTimerFires(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop, rec, stop := startLoop(t)
	defer stop()

	loop.Inject(ActionForward)
	loop.Inject(ActionConfirm)
	waitForState(t, loop, func(st State) bool { return st.Mode == ModeItems })

	// A press already past the hold threshold fires as soon as the loop
	// arms its timer.
	loop.Feed(Edge{Button: Activate, Pressed: true, At: time.Now().Add(-3 * time.Second)})
	waitForState(t, loop, func(st State) bool { return st.Mode == ModeBlocks })
	loop.Feed(Edge{Button: Activate})
	st := stateOf(t, loop)
	if st.Mode != ModeBlocks {
		t.Fatalf("release after hold changed mode to %v", st.Mode)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.spoken) != 3 || rec.spoken[2] != "Channels" {
		t.Fatalf("spoken: got %v", rec.spoken)
	}
}

func TestLoopSurvivesPanickingCall(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop, _, stop := startLoop(t)
	defer stop()

	loop.Do(func(*Engine) { panic("bad update") })
	loop.Inject(ActionForward)
	waitForState(t, loop, func(st State) bool { return st.Mode == ModeBlocks })
}

func TestLoopStopsAcceptingAfterRun(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop, _, stop := startLoop(t)
	stop()
	<-loop.Done()
	if loop.Do(func(*Engine) {}) {
		t.Fatal("Do after stop should report false")
	}
	if loop.Feed(Edge{Button: Advance, Pressed: true}) {
		t.Fatal("Feed after stop should report false")
	}
}
