package chatsync

import (
	"context"
	"time"
)

// Capabilities selects the gateway features requested at connect time.
type Capabilities struct {
	MessageContent bool
}

// User is a remote account.
type User struct {
	ID         uint64
	Username   string
	GlobalName string
	Bot        bool
}

// Name prefers the global display name over the username.
func (u User) Name() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Member is a guild member.
type Member struct {
	User User
	Nick string
}

// DisplayName resolves nickname, then global name, then username.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.Name()
}

// Attachment is a file attached to a remote message.
type Attachment struct {
	URL         string
	ProxyURL    string
	Filename    string
	ContentType string
}

// Embed is the subset of rich embed fields that are rendered.
type Embed struct {
	Title        string
	Description  string
	ImageURL     string
	ThumbnailURL string
	VideoURL     string
}

// Reaction is one aggregated reaction on a remote message. Emoji holds the
// unicode symbol, or the custom emoji name when EmojiID is set.
type Reaction struct {
	Emoji   string
	EmojiID string
	Count   int
	Me      bool
}

// RemoteMessage is a message as delivered by the remote.
type RemoteMessage struct {
	ID          uint64
	ChannelID   uint64
	GuildID     uint64
	Author      User
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
	Embeds      []Embed
	Mentions    []User
	Reactions   []Reaction
}

// Channel describes a remote channel. Recipient is set for direct message
// channels when the remote knows the peer.
type Channel struct {
	ID        uint64
	Name      string
	Direct    bool
	Recipient *User
}

// ReactionEvent is a raw reaction add or remove.
type ReactionEvent struct {
	ChannelID uint64
	MessageID uint64
	UserID    uint64
	Emoji     string
	EmojiID   string
	Added     bool
}

// Handler receives live gateway events. Implementations must not block.
type Handler interface {
	HandleMessage(RemoteMessage)
	HandleReaction(ReactionEvent)
}

// Remote is the chat transport. Open returns an error wrapping
// services.ErrCapability when the requested capabilities were refused.
type Remote interface {
	Open(ctx context.Context, caps Capabilities, h Handler) error
	Close() error
	Self() User
	PrivateChannels() []Channel
	Channel(ctx context.Context, id uint64) (Channel, error)
	DirectChannel(ctx context.Context, userID uint64) (Channel, error)
	// History returns up to limit messages older than beforeID, newest
	// first. A zero beforeID starts at the newest message.
	History(ctx context.Context, channelID uint64, limit int, beforeID uint64) ([]RemoteMessage, error)
	Message(ctx context.Context, channelID, messageID uint64) (RemoteMessage, error)
	Member(ctx context.Context, guildID, userID uint64) (Member, error)
	User(ctx context.Context, userID uint64) (User, error)
	// Send posts content, as a native reply when replyTo is non-zero.
	Send(ctx context.Context, channelID uint64, content string, replyTo uint64) (RemoteMessage, error)
	AddReaction(ctx context.Context, channelID, messageID uint64, emoji string) error
	RemoveReaction(ctx context.Context, channelID, messageID uint64, emoji string) error
}
