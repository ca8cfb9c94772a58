package thread

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the Ref variants.
type Kind int

const (
	KindMain Kind = iota
	KindChannel
	KindDirect
)

func (k Kind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindChannel:
		return "channel"
	case KindDirect:
		return "dm"
	default:
		return "unknown"
	}
}

// Ref identifies a thread: the main channel, another monitored channel, or a
// direct conversation with a peer.
type Ref struct {
	kind Kind
	id   uint64
}

// Main is the primary configured channel.
func Main() Ref { return Ref{kind: KindMain} }

// Channel references a monitored channel by id.
func Channel(id uint64) Ref { return Ref{kind: KindChannel, id: id} }

// Direct references the direct conversation with peerID.
func Direct(peerID uint64) Ref { return Ref{kind: KindDirect, id: peerID} }

func (r Ref) Kind() Kind { return r.kind }

// ID is the channel id for KindChannel, the peer id for KindDirect, and zero
// for KindMain.
func (r Ref) ID() uint64 { return r.id }

func (r Ref) IsDirect() bool { return r.kind == KindDirect }

func (r Ref) String() string {
	switch r.kind {
	case KindChannel:
		return "channel:" + strconv.FormatUint(r.id, 10)
	case KindDirect:
		return "dm:" + strconv.FormatUint(r.id, 10)
	default:
		return "main"
	}
}

// ParseRef converts the canonical string form back into a Ref.
func ParseRef(value string) (Ref, error) {
	value = strings.TrimSpace(value)
	if value == "main" {
		return Main(), nil
	}
	prefix, rawID, ok := strings.Cut(value, ":")
	if !ok {
		return Ref{}, fmt.Errorf("thread ref %q: missing kind prefix", value)
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return Ref{}, fmt.Errorf("thread ref %q: invalid id", value)
	}
	switch prefix {
	case "channel":
		return Channel(id), nil
	case "dm":
		return Direct(id), nil
	default:
		return Ref{}, fmt.Errorf("thread ref %q: unknown kind %q", value, prefix)
	}
}

// MarshalText lets refs serve as JSON map keys and IPC fields.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(data []byte) error {
	parsed, err := ParseRef(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
