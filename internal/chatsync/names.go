package chatsync

import (
	"context"
	"regexp"
	"strconv"
)

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// cachedName returns the name resolveUser settled on, else a hint.
func (s *Synchronizer) cachedName(id uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.names[id]; ok {
		return name, true
	}
	name, ok := s.hints[id]
	return name, ok
}

func (s *Synchronizer) resolvedName(id uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[id]
	return name, ok
}

func (s *Synchronizer) rememberName(id uint64, name string) {
	if id == 0 || name == "" {
		return
	}
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
}

// rememberHint records a name seen on a channel recipient, a mirror line,
// a mention, or the peer index. A member lookup still replaces it.
func (s *Synchronizer) rememberHint(id uint64, name string) {
	if id == 0 || name == "" {
		return
	}
	s.mu.Lock()
	s.hints[id] = name
	s.mu.Unlock()
}

// DisplayName returns the cached display name for a user without touching
// the network.
func (s *Synchronizer) DisplayName(id uint64) string {
	if name, ok := s.cachedName(id); ok {
		return name
	}
	return fallbackName
}

// resolveUser finds the best display name for u: guild nickname, then
// global name, then username, then a hint. Results are cached, lookup
// failures included, so each user costs at most one member request.
func (s *Synchronizer) resolveUser(ctx context.Context, u User) string {
	if name, ok := s.resolvedName(u.ID); ok {
		return name
	}
	if s.opts.GuildID != 0 && u.ID != 0 {
		var member Member
		err := s.call(ctx, "member", func(ctx context.Context) error {
			var err error
			member, err = s.remote.Member(ctx, s.opts.GuildID, u.ID)
			return err
		})
		if err == nil {
			if member.User.ID == 0 {
				member.User = u
			}
			if name := member.DisplayName(); name != "" {
				s.rememberName(u.ID, name)
				return name
			}
		}
	}
	name := u.Name()
	if name == "" && u.ID != 0 {
		var fetched User
		if err := s.call(ctx, "user", func(ctx context.Context) error {
			var err error
			fetched, err = s.remote.User(ctx, u.ID)
			return err
		}); err == nil {
			name = fetched.Name()
		}
	}
	if name == "" {
		if hint, ok := s.cachedName(u.ID); ok {
			name = hint
		}
	}
	if name == "" {
		return fallbackName
	}
	s.rememberName(u.ID, name)
	return name
}

// replaceMentions rewrites <@id> and <@!id> tokens as @Name using the
// message's mention list and then the name cache.
func (s *Synchronizer) replaceMentions(text string, mentions []User) string {
	if text == "" {
		return text
	}
	known := make(map[uint64]string, len(mentions))
	for _, u := range mentions {
		if u.ID == 0 {
			continue
		}
		if name, ok := s.cachedName(u.ID); ok {
			known[u.ID] = name
		} else if name := u.Name(); name != "" {
			known[u.ID] = name
			s.rememberHint(u.ID, name)
		}
	}
	return mentionPattern.ReplaceAllStringFunc(text, func(token string) string {
		match := mentionPattern.FindStringSubmatch(token)
		id, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			return "@" + fallbackName
		}
		if name, ok := known[id]; ok {
			return "@" + name
		}
		return "@" + s.DisplayName(id)
	})
}
