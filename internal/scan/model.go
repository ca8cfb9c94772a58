package scan

import "fmt"

// Button is one of the two logical switches.
type Button int

const (
	Advance Button = iota
	Activate
)

func (b Button) String() string {
	if b == Activate {
		return "activate"
	}
	return "advance"
}

// ParseButton accepts "advance" or "activate".
func ParseButton(value string) (Button, error) {
	switch value {
	case "advance":
		return Advance, nil
	case "activate":
		return Activate, nil
	default:
		return 0, fmt.Errorf("unknown button %q", value)
	}
}

// Action is a classified gesture.
type Action int

const (
	ActionNone Action = iota
	ActionForward
	ActionBackward
	ActionConfirm
	ActionBack
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionBackward:
		return "backward"
	case ActionConfirm:
		return "confirm"
	case ActionBack:
		return "back"
	default:
		return "none"
	}
}

// ParseAction accepts the String forms plus the gesture aliases used by the
// signal command.
func ParseAction(value string) (Action, error) {
	switch value {
	case "forward", "advance", "advance-short":
		return ActionForward, nil
	case "backward", "advance-long":
		return ActionBackward, nil
	case "confirm", "activate", "activate-short":
		return ActionConfirm, nil
	case "back", "activate-long":
		return ActionBack, nil
	default:
		return ActionNone, fmt.Errorf("unknown action %q", value)
	}
}

// Mode is the scanning depth.
type Mode int

const (
	ModeIdle Mode = iota
	ModeBlocks
	ModeItems
	ModeOverlay
)

func (m Mode) String() string {
	switch m {
	case ModeBlocks:
		return "blocks"
	case ModeItems:
		return "items"
	case ModeOverlay:
		return "overlay"
	default:
		return "idle"
	}
}

// State is the engine's focus position.
type State struct {
	Mode         Mode
	BlockIndex   int
	ItemIndex    int
	OverlayIndex int
	AnchorActive bool
}

// Collection is a scannable list of items.
type Collection interface {
	Len() int
	// Label is the narration for item i.
	Label(i int) string
	// Activate runs when ACTIVATE is pressed on item i.
	Activate(i int) Result
}

// FocusObserver is implemented by collections that react to focus moves.
type FocusObserver interface {
	Focused(i int)
}

// Scrollable is implemented by collections rendered in a scrolling viewport.
type Scrollable interface {
	Viewport() Viewport
}

// Block is one top-level region of a screen. A block either holds Items or
// runs Action when activated.
type Block struct {
	Label string
	Items Collection
	// Empty is spoken when Items has nothing to scan.
	Empty string
	// ReturnTo is the block focused when backing out of Items.
	ReturnTo int
	Action   func() Result
}

// Screen is an ordered set of blocks.
type Screen struct {
	Name   string
	Blocks []Block
}

// Option is one choice in an overlay.
type Option struct {
	Label  string
	Invoke func() Result
}

// Overlay is a modal option list opened from an item.
type Overlay struct {
	Title   string
	Options []Option
	// CloseNarration is spoken when backing out; empty re-narrates the item.
	CloseNarration string
}

// Result is what activating an item, option, or action block asks for.
type Result struct {
	// Say is narrated. It takes precedence over any implied narration.
	Say string
	// Overlay opens, or replaces, the current overlay.
	Overlay *Overlay
	// Close dismisses the current overlay without narration of its own.
	Close bool
	// Screen switches screens. Focus selects the block to land on; a
	// negative Focus lands in Idle silently.
	Screen *Screen
	Focus  int
	// Err aborts the transition and restores the previous state.
	Err error
}

// Say is a Result that only narrates.
func Say(text string) Result { return Result{Say: text} }

// SwitchTo lands on block of screen, narrating its label.
func SwitchTo(screen *Screen, block int) Result { return Result{Screen: screen, Focus: block} }

// SwitchIdle lands on screen in Idle without narration.
func SwitchIdle(screen *Screen) Result { return Result{Screen: screen, Focus: -1} }

// Fail aborts with err.
func Fail(err error) Result { return Result{Err: err} }
