package messenger

import (
	"context"
	"fmt"
	"time"

	"switchscan/internal/liveness"
	"switchscan/internal/scan"
	"switchscan/internal/speech"
)

// Status is the snapshot served to `switchscan status`.
type Status struct {
	SessionID     string       `json:"session_id"`
	StartedAt     time.Time    `json:"started_at"`
	Connection    string       `json:"connection"`
	Connected     bool         `json:"connected"`
	Degraded      bool         `json:"degraded"`
	Warm          bool         `json:"warm"`
	Self          string       `json:"self,omitempty"`
	Threads       int          `json:"threads"`
	Unread        int          `json:"unread"`
	Screen        string       `json:"screen"`
	Mode          string       `json:"mode"`
	Device        string       `json:"device,omitempty"`
	Composing     bool         `json:"composing"`
	HeartbeatAge  float64      `json:"heartbeat_age_seconds"`
	HeartbeatSeen bool         `json:"heartbeat_seen"`
	EventsDropped uint64       `json:"events_dropped"`
	Speech        speech.Stats `json:"speech"`
}

// ThreadInfo is one row of `switchscan threads`.
type ThreadInfo struct {
	Ref      string  `json:"ref"`
	Kind     string  `json:"kind"`
	Label    string  `json:"label"`
	Stub     bool    `json:"stub"`
	Messages int     `json:"messages"`
	Unread   int     `json:"unread"`
	LastTS   float64 `json:"last_ts"`
}

type scanView struct {
	mode   scan.Mode
	screen string
}

// Status gathers the current state. The scan position is read on the loop
// goroutine, so ctx bounds the wait.
func (a *App) Status(ctx context.Context) (Status, error) {
	st := a.sync.Status()
	out := Status{
		SessionID:     a.sessionID,
		StartedAt:     a.started,
		Connection:    st.Text,
		Connected:     st.Connected,
		Degraded:      st.Degraded,
		Warm:          st.Warm,
		Self:          st.Self,
		Composing:     a.ui.busy.Held(),
		EventsDropped: a.bus.Dropped(),
		Speech:        a.voice.Stats(),
	}
	for _, s := range a.store.Threads() {
		out.Threads++
		out.Unread += s.Unread
	}
	if a.sw != nil {
		out.Device = a.sw.Device()
	}
	if age, ok := liveness.Age(a.cfg.Paths.HeartbeatFile, time.Now()); ok {
		out.HeartbeatAge = age.Seconds()
		out.HeartbeatSeen = true
	}

	ch := make(chan scanView, 1)
	if !a.loop.Do(func(e *scan.Engine) { ch <- scanView{mode: e.State().Mode, screen: a.ui.screenName()} }) {
		return out, ErrNotRunning
	}
	select {
	case v := <-ch:
		out.Mode = v.mode.String()
		out.Screen = v.screen
	case <-ctx.Done():
		return out, ctx.Err()
	}
	return out, nil
}

// Threads lists the channel list in display order.
func (a *App) Threads() []ThreadInfo {
	sorted := SortThreads(a.store.Threads(), a.sync.Self().ID)
	out := make([]ThreadInfo, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, ThreadInfo{
			Ref:      s.Ref.String(),
			Kind:     s.Ref.Kind().String(),
			Label:    ThreadLabel(s),
			Stub:     s.Stub,
			Messages: s.Messages,
			Unread:   s.Unread,
			LastTS:   s.LastTS,
		})
	}
	return out
}

func (a *App) Say(text string) { a.voice.Say(text) }

func (a *App) Halt() { a.voice.Halt() }

// Signal injects a scan action by name, as if the switch produced it.
func (a *App) Signal(action string) error {
	act, err := scan.ParseAction(action)
	if err != nil {
		return err
	}
	if !a.loop.Inject(act) {
		return ErrNotRunning
	}
	return nil
}

// Stop requests shutdown. It mirrors Exit for control clients.
func (a *App) Stop() error {
	if !a.running.Load() {
		return fmt.Errorf("stop: %w", ErrNotRunning)
	}
	a.Exit()
	return nil
}
