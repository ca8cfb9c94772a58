package messenger

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"switchscan/internal/thread"
)

var youtubePattern = regexp.MustCompile(`(?i)((?:https?://)?(?:www\.)?(?:youtube\.com/(?:watch\?v=|shorts/)|youtu\.be/)([\w-]+))`)

// YouTubeURL returns the first YouTube link in text with a scheme, or "".
func YouTubeURL(text string) string {
	m := youtubePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	url := m[1]
	if !strings.HasPrefix(strings.ToLower(url), "http") {
		url = "https://" + url
	}
	return url
}

// Clock12 formats t as h:mm AM/PM.
func Clock12(t time.Time) string {
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if t.Hour() >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), suffix)
}

func mediaSuffix(m thread.Message) string {
	if YouTubeURL(m.Body) != "" {
		return " with YouTube video"
	}
	var img, vid bool
	for _, a := range m.Attachments {
		switch a.Kind {
		case thread.AttachmentImage:
			img = true
		case thread.AttachmentVideo:
			vid = true
		}
	}
	switch {
	case img && vid:
		return " with embedded media"
	case vid:
		return " with embedded video"
	case img:
		return " with embedded image"
	}
	return ""
}

// MessageHeader is the narration for a focused message.
func MessageHeader(m thread.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("Message from %s at %s%s", m.Author, Clock12(m.Time().In(loc)), mediaSuffix(m))
}

// describeMedia is what View narrates for m.
func describeMedia(m thread.Message) string {
	if YouTubeURL(m.Body) != "" {
		return "YouTube video"
	}
	for _, kind := range []thread.AttachmentKind{thread.AttachmentVideo, thread.AttachmentImage} {
		for _, a := range m.Attachments {
			if a.Kind != kind {
				continue
			}
			name := strings.TrimSpace(a.Filename)
			if name == "" || strings.HasPrefix(name, "embedded-") {
				return kind.String()
			}
			return kind.String() + " " + name
		}
	}
	return "No supported media found"
}

// ThreadLabel names a thread in the channel list.
func ThreadLabel(s thread.Summary) string {
	name := strings.TrimSpace(s.Name)
	switch s.Ref.Kind() {
	case thread.KindMain:
		if name == "" {
			return "Channel"
		}
		return "#" + name
	case thread.KindChannel:
		if name == "" {
			return fmt.Sprintf("Channel %d", s.Ref.ID())
		}
		return "#" + name
	}
	if name == "" {
		return "user"
	}
	return name
}

// SortThreads orders the channel list: threads with unread messages first,
// then channels with the main channel leading, then direct messages. The
// relative creation order is otherwise kept. A direct thread with self is
// dropped.
func SortThreads(threads []thread.Summary, self uint64) []thread.Summary {
	out := make([]thread.Summary, 0, len(threads))
	for _, s := range threads {
		if s.Ref.IsDirect() && self != 0 && s.Ref.ID() == self {
			continue
		}
		out = append(out, s)
	}
	rank := func(s thread.Summary) int {
		switch {
		case s.Unread > 0:
			return 0
		case s.Ref.Kind() == thread.KindMain:
			return 1
		case s.Ref.Kind() == thread.KindChannel:
			return 2
		}
		return 3
	}
	slices.SortStableFunc(out, func(a, b thread.Summary) int { return rank(a) - rank(b) })
	return out
}
