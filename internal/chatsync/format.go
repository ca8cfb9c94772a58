package chatsync

import (
	"context"
	"strings"

	"switchscan/internal/thread"
)

// formatBody joins the text and embed lines, substitutes the degraded-mode
// placeholder, and resolves mentions.
func (s *Synchronizer) formatBody(ref thread.Ref, m RemoteMessage) string {
	var parts []string
	if txt := strings.TrimSpace(m.Content); txt != "" {
		parts = append(parts, txt)
	}
	for _, emb := range m.Embeds {
		var fields []string
		if t := strings.TrimSpace(emb.Title); t != "" {
			fields = append(fields, t)
		}
		if d := strings.TrimSpace(emb.Description); d != "" {
			fields = append(fields, d)
		}
		if len(fields) > 0 {
			parts = append(parts, strings.Join(fields, " — "))
		}
	}
	body := strings.TrimSpace(strings.Join(parts, "\n"))
	if body == "" && !ref.IsDirect() && s.Degraded() && !m.Author.Bot && m.Author.ID != s.Self().ID {
		return ContentPlaceholder
	}
	return s.replaceMentions(body, m.Mentions)
}

// extractAttachments types files by content type or extension and turns
// embedded rich media into pseudo-attachments.
func extractAttachments(m RemoteMessage) []thread.Attachment {
	var out []thread.Attachment
	for _, a := range m.Attachments {
		url := a.URL
		if url == "" {
			url = a.ProxyURL
		}
		out = append(out, thread.Attachment{
			Kind:     thread.ClassifyAttachment(a.ContentType, a.Filename),
			URL:      url,
			Filename: a.Filename,
		})
	}
	for _, emb := range m.Embeds {
		img := emb.ImageURL
		if img == "" {
			img = emb.ThumbnailURL
		}
		if img != "" {
			out = append(out, thread.Attachment{Kind: thread.AttachmentImage, URL: img, Filename: "embedded-image"})
		}
		if emb.VideoURL != "" {
			out = append(out, thread.Attachment{Kind: thread.AttachmentVideo, URL: emb.VideoURL, Filename: "embedded-video"})
		}
	}
	return out
}

// convert builds the stored form of m, resolving the author's display name.
func (s *Synchronizer) convert(ctx context.Context, ref thread.Ref, m RemoteMessage) thread.Message {
	self := s.Self()
	ts := 0.0
	if !m.Timestamp.IsZero() {
		ts = float64(m.Timestamp.UnixNano()) / 1e9
	}
	return thread.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		Author:      s.resolveUser(ctx, m.Author),
		Body:        s.formatBody(ref, m),
		Timestamp:   ts,
		FromSelf:    self.ID != 0 && m.Author.ID == self.ID,
		Bot:         m.Author.Bot,
		Attachments: extractAttachments(m),
	}
}

// admit stores msgs (any order) in ref, records their reactions, applies
// the unread rule, and returns what was new.
func (s *Synchronizer) admit(ctx context.Context, ref thread.Ref, msgs []RemoteMessage, live bool) []thread.Message {
	converted := make([]thread.Message, 0, len(msgs))
	reactions := make(map[uint64][]thread.Reaction, len(msgs))
	for _, m := range msgs {
		if m.ID == 0 || s.store.Seen(m.ID) {
			continue
		}
		converted = append(converted, s.convert(ctx, ref, m))
		if rs := convertReactions(m.Reactions); len(rs) > 0 {
			reactions[m.ID] = rs
		}
	}
	added := s.store.Admit(ref, converted...)
	for _, msg := range added {
		if rs, ok := reactions[msg.ID]; ok {
			s.store.SetReactions(msg.ID, rs)
		}
		if !msg.FromSelf && s.opts.Unread(msg, live) {
			s.store.MarkUnread(ref, msg.ID)
		}
	}
	return added
}
