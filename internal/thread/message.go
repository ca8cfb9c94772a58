package thread

import (
	"math"
	"path"
	"strings"
	"time"
)

// AttachmentKind classifies attached media.
type AttachmentKind int

const (
	AttachmentOther AttachmentKind = iota
	AttachmentImage
	AttachmentVideo
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentImage:
		return "image"
	case AttachmentVideo:
		return "video"
	default:
		return "other"
	}
}

var (
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".bmp": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".webm": {}, ".mov": {}, ".m4v": {}, ".mkv": {}, ".avi": {}}
)

// ClassifyAttachment picks a kind from the content type, falling back to the
// file extension.
func ClassifyAttachment(contentType, filename string) AttachmentKind {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(contentType, "video/"):
		return AttachmentVideo
	}
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := imageExtensions[ext]; ok {
		return AttachmentImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return AttachmentVideo
	}
	return AttachmentOther
}

type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	URL      string         `json:"url"`
	Filename string         `json:"filename"`
}

// Message is immutable once admitted into a Store.
type Message struct {
	ID          uint64       `json:"id"`
	ChannelID   uint64       `json:"channel_id"`
	AuthorID    uint64       `json:"author_id"`
	Author      string       `json:"author"`
	Body        string       `json:"body"`
	Timestamp   float64      `json:"timestamp"`
	FromSelf    bool         `json:"from_self"`
	Bot         bool         `json:"bot,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Time converts the unix-seconds timestamp.
func (m Message) Time() time.Time {
	sec, frac := math.Modf(m.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func (m Message) HasMedia() bool {
	return len(m.Attachments) > 0 || strings.Contains(m.Body, "youtube.com/") || strings.Contains(m.Body, "youtu.be/")
}

func (m Message) clone() Message {
	if len(m.Attachments) > 0 {
		m.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return m
}

// before orders by timestamp, then id.
func before(a, b Message) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ID < b.ID
}

// Reaction is one aggregated emoji on a message.
type Reaction struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
	Me          bool   `json:"me"`
	EmojiID     string `json:"emoji_id,omitempty"`
}

// Key is the emoji argument for toggling this reaction.
func (r Reaction) Key() string {
	if r.EmojiID == "" {
		return r.Symbol
	}
	return r.Symbol + ":" + r.EmojiID
}
