package scan

import (
	"fmt"
	"log/slog"

	"switchscan/internal/logging"
)

const (
	noAction     = "No action"
	defaultEmpty = "No items"
)

// Engine is the scanning focus state machine.
type Engine struct {
	logger  *slog.Logger
	speak   func(string)
	anchor  *Anchor
	screen  *Screen
	state   State
	overlay *Overlay
	// overlayFrom is the mode an overlay returns to when it closes.
	overlayFrom Mode
}

type snapshot struct {
	state       State
	overlay     *Overlay
	overlayFrom Mode
	screen      *Screen
	anchor      Anchor
}

// NewEngine builds an engine that narrates through speak. A nil anchor pins
// at half the viewport height.
func NewEngine(speak func(string), anchor *Anchor, logger *slog.Logger) *Engine {
	if speak == nil {
		speak = func(string) {}
	}
	if anchor == nil {
		anchor = NewAnchor(0.5)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{logger: logger, speak: speak, anchor: anchor}
}

// State returns the current focus position.
func (e *Engine) State() State {
	st := e.state
	st.AnchorActive = e.anchor.Active()
	return st
}

func (e *Engine) Screen() *Screen { return e.screen }

// Overlay returns the open overlay, if any.
func (e *Engine) Overlay() *Overlay {
	if e.state.Mode != ModeOverlay {
		return nil
	}
	return e.overlay
}

// SetScreen switches screens. A negative focus lands in Idle silently;
// otherwise the focused block's label is narrated.
func (e *Engine) SetScreen(screen *Screen, focus int) {
	e.dispatch("set_screen", func() (string, error) {
		return e.switchScreen(screen, focus), nil
	})
}

// Apply performs a classified action.
func (e *Engine) Apply(a Action) {
	switch a {
	case ActionForward:
		e.Step(1)
	case ActionBackward:
		e.Step(-1)
	case ActionConfirm:
		e.Confirm()
	case ActionBack:
		e.Back()
	}
}

// Step moves focus by dir within the current level, wrapping at both ends.
func (e *Engine) Step(dir int) {
	if dir == 0 {
		return
	}
	e.dispatch("step", func() (string, error) { return e.step(dir) })
}

// Confirm activates the focused element.
func (e *Engine) Confirm() {
	e.dispatch("confirm", e.confirm)
}

// Back pops out one level.
func (e *Engine) Back() {
	e.dispatch("back", e.back)
}

// Rebase remaps the focused item after the collection under it was
// reordered, for example when a new message is inserted ahead of it. It
// does not narrate.
func (e *Engine) Rebase(remap func(old int) int) {
	if remap == nil || (e.state.Mode != ModeItems && e.state.Mode != ModeOverlay) {
		return
	}
	if e.state.Mode == ModeOverlay && e.overlayFrom != ModeItems {
		return
	}
	e.state.ItemIndex = remap(e.state.ItemIndex)
	e.Refresh()
}

// Refresh clamps focus after the screen's contents changed. It never
// narrates.
func (e *Engine) Refresh() {
	if e.screen == nil || len(e.screen.Blocks) == 0 {
		e.state = State{Mode: ModeIdle, OverlayIndex: -1}
		e.overlay = nil
		return
	}
	if e.state.Mode == ModeIdle {
		return
	}
	e.state.BlockIndex = clamp(e.state.BlockIndex, len(e.screen.Blocks))
	inItems := e.state.Mode == ModeItems || (e.state.Mode == ModeOverlay && e.overlayFrom == ModeItems)
	if !inItems {
		return
	}
	items := e.screen.Blocks[e.state.BlockIndex].Items
	if items == nil || items.Len() == 0 {
		e.state.Mode = ModeBlocks
		e.state.ItemIndex = 0
		e.overlay = nil
		return
	}
	e.state.ItemIndex = clamp(e.state.ItemIndex, items.Len())
	if e.state.Mode == ModeItems {
		e.reposition()
	}
}

// dispatch runs fn behind the failure boundary. A panic or error restores
// the prior state and narrates "No action"; otherwise fn's narration, if
// any, is spoken once.
func (e *Engine) dispatch(op string, fn func() (string, error)) {
	saved := e.save()
	text, err := guard(fn)
	if err != nil {
		e.restore(saved)
		logging.WarnWithContext(e.logger, "scan handler failed", "scan_handler_failed",
			logging.String("op", op),
			logging.String("mode", saved.state.Mode.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the focused element's handler returned an error"),
			logging.String(logging.FieldImpact, "focus left unchanged"),
		)
		e.speak(noAction)
		return
	}
	if text != "" {
		e.speak(text)
	}
}

func guard(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (e *Engine) save() snapshot {
	return snapshot{
		state:       e.state,
		overlay:     e.overlay,
		overlayFrom: e.overlayFrom,
		screen:      e.screen,
		anchor:      *e.anchor,
	}
}

func (e *Engine) restore(s snapshot) {
	e.state = s.state
	e.overlay = s.overlay
	e.overlayFrom = s.overlayFrom
	e.screen = s.screen
	*e.anchor = s.anchor
}

func (e *Engine) switchScreen(screen *Screen, focus int) string {
	e.screen = screen
	e.overlay = nil
	e.state = State{Mode: ModeIdle, OverlayIndex: -1}
	e.anchor.Rearm()
	if screen == nil || len(screen.Blocks) == 0 || focus < 0 {
		return ""
	}
	e.state.Mode = ModeBlocks
	e.state.BlockIndex = clamp(focus, len(screen.Blocks))
	return e.screen.Blocks[e.state.BlockIndex].Label
}

func (e *Engine) step(dir int) (string, error) {
	if e.screen == nil || len(e.screen.Blocks) == 0 {
		return "", nil
	}
	blocks := e.screen.Blocks
	switch e.state.Mode {
	case ModeIdle:
		e.state.Mode = ModeBlocks
		if dir > 0 {
			e.state.BlockIndex = 0
		} else {
			e.state.BlockIndex = len(blocks) - 1
		}
		return blocks[e.state.BlockIndex].Label, nil
	case ModeBlocks:
		e.state.BlockIndex = wrap(e.state.BlockIndex+dir, len(blocks))
		return blocks[e.state.BlockIndex].Label, nil
	case ModeItems:
		block := blocks[e.state.BlockIndex]
		n := block.Items.Len()
		if n == 0 {
			return emptyText(block), nil
		}
		next := e.state.ItemIndex + dir
		if next < 0 || next >= n {
			e.anchor.Rearm()
		}
		e.state.ItemIndex = wrap(next, n)
		return e.focusItem(block.Items), nil
	case ModeOverlay:
		n := len(e.overlay.Options)
		if n == 0 {
			return "", nil
		}
		switch {
		case e.state.OverlayIndex < 0 && dir > 0:
			e.state.OverlayIndex = 0
		case e.state.OverlayIndex < 0:
			e.state.OverlayIndex = n - 1
		default:
			e.state.OverlayIndex = wrap(e.state.OverlayIndex+dir, n)
		}
		return e.overlay.Options[e.state.OverlayIndex].Label, nil
	}
	return "", nil
}

func (e *Engine) confirm() (string, error) {
	if e.screen == nil || len(e.screen.Blocks) == 0 {
		return "", nil
	}
	switch e.state.Mode {
	case ModeBlocks:
		block := e.screen.Blocks[e.state.BlockIndex]
		if block.Items != nil {
			if block.Items.Len() == 0 {
				return emptyText(block), nil
			}
			e.state.Mode = ModeItems
			e.state.ItemIndex = 0
			e.anchor.Rearm()
			return e.focusItem(block.Items), nil
		}
		if block.Action != nil {
			return e.apply(block.Action())
		}
	case ModeItems:
		items := e.screen.Blocks[e.state.BlockIndex].Items
		return e.apply(items.Activate(e.state.ItemIndex))
	case ModeOverlay:
		if e.state.OverlayIndex < 0 || e.state.OverlayIndex >= len(e.overlay.Options) {
			return "", nil
		}
		opt := e.overlay.Options[e.state.OverlayIndex]
		if opt.Invoke == nil {
			return "", nil
		}
		return e.apply(opt.Invoke())
	}
	return "", nil
}

func (e *Engine) back() (string, error) {
	if e.screen == nil || len(e.screen.Blocks) == 0 {
		return "", nil
	}
	switch e.state.Mode {
	case ModeItems:
		block := e.screen.Blocks[e.state.BlockIndex]
		e.state.Mode = ModeBlocks
		e.state.BlockIndex = clamp(block.ReturnTo, len(e.screen.Blocks))
		return e.screen.Blocks[e.state.BlockIndex].Label, nil
	case ModeOverlay:
		closing := e.overlay
		e.closeOverlay()
		if closing != nil && closing.CloseNarration != "" {
			return closing.CloseNarration, nil
		}
		return e.currentLabel(), nil
	}
	return "", nil
}

// apply folds a handler result into the state and returns its narration.
func (e *Engine) apply(r Result) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	switch {
	case r.Screen != nil:
		label := e.switchScreen(r.Screen, r.Focus)
		if r.Say != "" {
			return r.Say, nil
		}
		return label, nil
	case r.Overlay != nil:
		if e.state.Mode != ModeOverlay {
			e.overlayFrom = e.state.Mode
		}
		e.overlay = r.Overlay
		e.state.Mode = ModeOverlay
		e.state.OverlayIndex = -1
		if r.Say != "" {
			return r.Say, nil
		}
		return r.Overlay.Title, nil
	case r.Close:
		if e.state.Mode == ModeOverlay {
			e.closeOverlay()
		}
		return r.Say, nil
	}
	return r.Say, nil
}

func (e *Engine) closeOverlay() {
	e.overlay = nil
	e.state.OverlayIndex = -1
	e.state.Mode = e.overlayFrom
	if e.state.Mode == ModeOverlay || e.state.Mode == ModeIdle {
		e.state.Mode = ModeBlocks
	}
}

func (e *Engine) currentLabel() string {
	block := e.screen.Blocks[e.state.BlockIndex]
	if e.state.Mode == ModeItems && block.Items != nil && e.state.ItemIndex < block.Items.Len() {
		return block.Items.Label(e.state.ItemIndex)
	}
	return block.Label
}

// focusItem notifies observers, repositions the viewport, and returns the
// item narration.
func (e *Engine) focusItem(items Collection) string {
	i := e.state.ItemIndex
	if obs, ok := items.(FocusObserver); ok {
		obs.Focused(i)
	}
	// Focused may grow the collection; clamp against the new length.
	if n := items.Len(); n > 0 && i >= n {
		i = n - 1
		e.state.ItemIndex = i
	}
	e.reposition()
	return items.Label(i)
}

func (e *Engine) reposition() {
	items := e.screen.Blocks[e.state.BlockIndex].Items
	if s, ok := items.(Scrollable); ok {
		e.anchor.Focus(s.Viewport(), e.state.ItemIndex)
	}
}

func emptyText(b Block) string {
	if b.Empty != "" {
		return b.Empty
	}
	return defaultEmpty
}

func wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clamp(i, n int) int {
	switch {
	case n <= 0 || i < 0:
		return 0
	case i >= n:
		return n - 1
	}
	return i
}
