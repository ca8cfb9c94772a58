package chatsync

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"switchscan/internal/events"
	"switchscan/internal/thread"
)

var incomingMirror = regexp.MustCompile(`(?s)^DM from (.+?) \((\d+)\):\s*(.*)`)

// FormatIncomingMirror renders a direct message forwarded to the mirror
// channel.
func FormatIncomingMirror(name string, peer uint64, body string) string {
	return fmt.Sprintf("DM from %s (%d): %s", name, peer, body)
}

// FormatOutgoingMirror renders a sent direct message for the mirror channel.
func FormatOutgoingMirror(name string, peer uint64, body string) string {
	return fmt.Sprintf("To %s (%d): %s", name, peer, body)
}

// ParseIncomingMirror extracts the peer from a mirrored direct message.
func ParseIncomingMirror(content string) (name string, peer uint64, body string, ok bool) {
	m := incomingMirror.FindStringSubmatch(content)
	if m == nil {
		return "", 0, "", false
	}
	id, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil || id == 0 {
		return "", 0, "", false
	}
	return strings.TrimSpace(m[1]), id, strings.TrimSpace(m[3]), true
}

// learnFromMirror indexes the peer named by a mirror line without admitting
// the line itself. It reports whether a new thread was created.
func (s *Synchronizer) learnFromMirror(content string) bool {
	name, peer, body, ok := ParseIncomingMirror(content)
	if !ok {
		return false
	}
	if strings.HasPrefix(strings.ToLower(body), "(outgoing") {
		return false
	}
	if self := s.Self(); self.ID != 0 && peer == self.ID {
		return false
	}
	if cached, ok := s.resolvedName(peer); ok {
		name = cached
	} else {
		s.rememberHint(peer, name)
	}
	return s.store.Ensure(thread.Direct(peer), name, true)
}

// UpdatePeers indexes stubs for peers discovered outside the gateway, such
// as a reloaded peer index.
func (s *Synchronizer) UpdatePeers(peers map[uint64]string) {
	if s.indexPeers(peers) {
		s.bus.Publish(events.ThreadsChanged{})
	}
}

func (s *Synchronizer) indexPeers(peers map[uint64]string) bool {
	self := s.Self()
	created := false
	for id, name := range peers {
		if id == 0 || (self.ID != 0 && id == self.ID) {
			continue
		}
		if cached, ok := s.resolvedName(id); ok {
			name = cached
		} else {
			s.rememberHint(id, name)
		}
		if s.store.Ensure(thread.Direct(id), name, true) {
			created = true
		}
	}
	return created
}
