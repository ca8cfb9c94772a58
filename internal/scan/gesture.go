package scan

import "time"

// Timings are the gesture thresholds.
type Timings struct {
	AdvanceHold   time.Duration
	AdvanceRepeat time.Duration
	ActivateHold  time.Duration
	Cooldown      time.Duration
}

// DefaultTimings returns the stock thresholds.
func DefaultTimings() Timings {
	return Timings{
		AdvanceHold:   3000 * time.Millisecond,
		AdvanceRepeat: 2000 * time.Millisecond,
		ActivateHold:  2500 * time.Millisecond,
		Cooldown:      1000 * time.Millisecond,
	}
}

type buttonState struct {
	down          bool
	ignored       bool
	fired         bool
	pressedAt     time.Time
	nextFire      time.Time
	cooldownUntil time.Time
}

// Gesture classifies press and release edges into actions. Time is always
// supplied by the caller so the classifier is deterministic.
//
// ADVANCE released before its hold threshold steps forward. Held past the
// threshold it steps backward immediately and again every repeat interval;
// that release does nothing. ACTIVATE released early confirms. Held past
// its threshold it backs out once while still down.
type Gesture struct {
	timings Timings
	buttons [2]buttonState
}

// NewGesture builds a classifier. Non-positive thresholds fall back to the
// defaults; a negative cooldown is treated as zero.
func NewGesture(t Timings) *Gesture {
	def := DefaultTimings()
	if t.AdvanceHold <= 0 {
		t.AdvanceHold = def.AdvanceHold
	}
	if t.AdvanceRepeat <= 0 {
		t.AdvanceRepeat = def.AdvanceRepeat
	}
	if t.ActivateHold <= 0 {
		t.ActivateHold = def.ActivateHold
	}
	if t.Cooldown < 0 {
		t.Cooldown = 0
	}
	return &Gesture{timings: t}
}

func (g *Gesture) state(b Button) *buttonState {
	if b == Activate {
		return &g.buttons[1]
	}
	return &g.buttons[0]
}

func (g *Gesture) hold(b Button) time.Duration {
	if b == Activate {
		return g.timings.ActivateHold
	}
	return g.timings.AdvanceHold
}

// Press records a press edge.
func (g *Gesture) Press(b Button, t time.Time) []Action {
	st := g.state(b)
	if st.down {
		return nil
	}
	st.down = true
	if t.Before(st.cooldownUntil) {
		st.ignored = true
		return nil
	}
	st.ignored = false
	st.fired = false
	st.pressedAt = t
	st.nextFire = t.Add(g.hold(b))
	return nil
}

// Release records a release edge. Hold actions that came due before t and
// were not yet collected through Tick are emitted first.
func (g *Gesture) Release(b Button, t time.Time) []Action {
	st := g.state(b)
	if !st.down {
		return nil
	}
	if st.ignored {
		st.down = false
		st.ignored = false
		return nil
	}
	actions := g.fire(b, st, t)
	st.down = false
	st.cooldownUntil = t.Add(g.timings.Cooldown)
	if st.fired {
		return actions
	}
	if b == Activate {
		return append(actions, ActionConfirm)
	}
	return append(actions, ActionForward)
}

// Tick emits the hold actions due at t.
func (g *Gesture) Tick(t time.Time) []Action {
	var actions []Action
	actions = append(actions, g.fire(Advance, g.state(Advance), t)...)
	actions = append(actions, g.fire(Activate, g.state(Activate), t)...)
	return actions
}

func (g *Gesture) fire(b Button, st *buttonState, t time.Time) []Action {
	if !st.down || st.ignored {
		return nil
	}
	if b == Activate {
		if st.fired || t.Before(st.nextFire) {
			return nil
		}
		st.fired = true
		return []Action{ActionBack}
	}
	var actions []Action
	for !t.Before(st.nextFire) {
		st.fired = true
		actions = append(actions, ActionBackward)
		st.nextFire = st.nextFire.Add(g.timings.AdvanceRepeat)
	}
	return actions
}

// NextDeadline reports when Tick next has work to do.
func (g *Gesture) NextDeadline() (time.Time, bool) {
	var next time.Time
	found := false
	for i := range g.buttons {
		st := &g.buttons[i]
		if !st.down || st.ignored {
			continue
		}
		if Button(i) == Activate && st.fired {
			continue
		}
		if !found || st.nextFire.Before(next) {
			next = st.nextFire
			found = true
		}
	}
	return next, found
}

// Held reports whether b is currently down.
func (g *Gesture) Held(b Button) bool {
	return g.state(b).down
}
