package discord

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"switchscan/internal/chatsync"
)

func snowflake(id string) uint64 {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func convertUser(u *discordgo.User) chatsync.User {
	if u == nil {
		return chatsync.User{}
	}
	return chatsync.User{
		ID:         snowflake(u.ID),
		Username:   u.Username,
		GlobalName: u.GlobalName,
		Bot:        u.Bot,
	}
}

func convertChannel(ch *discordgo.Channel) chatsync.Channel {
	out := chatsync.Channel{ID: snowflake(ch.ID), Name: ch.Name}
	if ch.Type == discordgo.ChannelTypeDM {
		out.Direct = true
		for _, r := range ch.Recipients {
			if r != nil {
				u := convertUser(r)
				out.Recipient = &u
				break
			}
		}
	}
	return out
}

func convertMessage(m *discordgo.Message) chatsync.RemoteMessage {
	out := chatsync.RemoteMessage{
		ID:        snowflake(m.ID),
		ChannelID: snowflake(m.ChannelID),
		GuildID:   snowflake(m.GuildID),
		Author:    convertUser(m.Author),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		out.Attachments = append(out.Attachments, chatsync.Attachment{
			URL:         a.URL,
			ProxyURL:    a.ProxyURL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		emb := chatsync.Embed{Title: e.Title, Description: e.Description}
		if e.Image != nil {
			emb.ImageURL = e.Image.URL
		}
		if e.Thumbnail != nil {
			emb.ThumbnailURL = e.Thumbnail.URL
		}
		if e.Video != nil {
			emb.VideoURL = e.Video.URL
		}
		out.Embeds = append(out.Embeds, emb)
	}
	for _, u := range m.Mentions {
		if u != nil {
			out.Mentions = append(out.Mentions, convertUser(u))
		}
	}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, chatsync.Reaction{
			Emoji:   r.Emoji.Name,
			EmojiID: r.Emoji.ID,
			Count:   r.Count,
			Me:      r.Me,
		})
	}
	return out
}

func convertReactionEvent(r *discordgo.MessageReaction, added bool) chatsync.ReactionEvent {
	return chatsync.ReactionEvent{
		ChannelID: snowflake(r.ChannelID),
		MessageID: snowflake(r.MessageID),
		UserID:    snowflake(r.UserID),
		Emoji:     r.Emoji.Name,
		EmojiID:   r.Emoji.ID,
		Added:     added,
	}
}
