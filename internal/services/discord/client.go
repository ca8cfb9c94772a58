package discord

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"switchscan/internal/chatsync"
	"switchscan/internal/logging"
	"switchscan/internal/services"
)

const component = "discord"

const baseIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions

// Intents returns the gateway intents requested for caps.
func Intents(caps chatsync.Capabilities) discordgo.Intent {
	if caps.MessageContent {
		return baseIntents | discordgo.IntentMessageContent
	}
	return baseIntents
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the REST transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client is a chatsync.Remote backed by the Discord bot API.
type Client struct {
	token      string
	logger     *slog.Logger
	httpClient *http.Client

	mu      sync.Mutex
	session *discordgo.Session
	self    chatsync.User
	removes []func()
}

// New builds a client for a bot token. The connection is established by Open.
func New(token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		token:  strings.TrimSpace(token),
		logger: logger.With(logging.String(logging.FieldComponent, component)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects the gateway with the intents for caps. A refused
// privileged intent yields an error wrapping services.ErrCapability.
func (c *Client) Open(ctx context.Context, caps chatsync.Capabilities, h chatsync.Handler) error {
	if c.token == "" {
		return services.Wrap(services.ErrConfiguration, component, "open", "bot token is empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	session, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, component, "open", "create session", err)
	}
	session.Identify.Intents = Intents(caps)
	// Callbacks run on the gateway goroutine so events keep their order.
	session.SyncEvents = true
	session.StateEnabled = true
	if c.httpClient != nil {
		session.Client = c.httpClient
	}

	removes := []func(){
		session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) {
			if ev.Message == nil {
				return
			}
			h.HandleMessage(convertMessage(ev.Message))
		}),
		session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionAdd) {
			if ev.MessageReaction == nil {
				return
			}
			h.HandleReaction(convertReactionEvent(ev.MessageReaction, true))
		}),
		session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionRemove) {
			if ev.MessageReaction == nil {
				return
			}
			h.HandleReaction(convertReactionEvent(ev.MessageReaction, false))
		}),
		session.AddHandler(func(_ *discordgo.Session, ev *discordgo.Disconnect) {
			c.logger.Warn("gateway disconnected", logging.String(logging.FieldEventType, "gateway_disconnect"))
		}),
	}

	c.logger.Debug("opening gateway", logging.Bool("message_content", caps.MessageContent))
	if err := session.Open(); err != nil {
		for _, remove := range removes {
			remove()
		}
		return classifyOpen(err)
	}

	self := chatsync.User{}
	if session.State != nil && session.State.User != nil {
		self = convertUser(session.State.User)
	} else if u, err := session.User("@me", discordgo.WithContext(ctx)); err == nil {
		self = convertUser(u)
	}

	c.mu.Lock()
	c.session = session
	c.self = self
	c.removes = removes
	c.mu.Unlock()
	return nil
}

// Close disconnects the gateway. It is safe to call when not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	session := c.session
	removes := c.removes
	c.session = nil
	c.removes = nil
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	for _, remove := range removes {
		remove()
	}
	if err := session.Close(); err != nil {
		return services.Wrap(services.ErrTransport, component, "close", "close gateway", err)
	}
	return nil
}

// Self returns the connected bot account.
func (c *Client) Self() chatsync.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

// PrivateChannels lists the direct message channels cached by the gateway.
func (c *Client) PrivateChannels() []chatsync.Channel {
	session := c.current()
	if session == nil || session.State == nil {
		return nil
	}
	session.State.RLock()
	defer session.State.RUnlock()
	out := make([]chatsync.Channel, 0, len(session.State.PrivateChannels))
	for _, ch := range session.State.PrivateChannels {
		if ch != nil {
			out = append(out, convertChannel(ch))
		}
	}
	return out
}

func (c *Client) current() *discordgo.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) sessionFor(operation string) (*discordgo.Session, error) {
	session := c.current()
	if session == nil {
		return nil, services.Wrap(services.ErrTransport, component, operation, "not connected", nil)
	}
	return session, nil
}

func (c *Client) Channel(ctx context.Context, id uint64) (chatsync.Channel, error) {
	session, err := c.sessionFor("channel")
	if err != nil {
		return chatsync.Channel{}, err
	}
	ch, err := session.Channel(idString(id), discordgo.WithContext(ctx))
	if err != nil {
		return chatsync.Channel{}, classifyREST("channel", err)
	}
	return convertChannel(ch), nil
}

func (c *Client) DirectChannel(ctx context.Context, userID uint64) (chatsync.Channel, error) {
	session, err := c.sessionFor("direct channel")
	if err != nil {
		return chatsync.Channel{}, err
	}
	ch, err := session.UserChannelCreate(idString(userID), discordgo.WithContext(ctx))
	if err != nil {
		return chatsync.Channel{}, classifyREST("direct channel", err)
	}
	return convertChannel(ch), nil
}

// History returns up to limit messages older than beforeID, newest first.
// A zero beforeID starts from the latest message.
func (c *Client) History(ctx context.Context, channelID uint64, limit int, beforeID uint64) ([]chatsync.RemoteMessage, error) {
	session, err := c.sessionFor("history")
	if err != nil {
		return nil, err
	}
	before := ""
	if beforeID != 0 {
		before = idString(beforeID)
	}
	msgs, err := session.ChannelMessages(idString(channelID), limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classifyREST("history", err)
	}
	out := make([]chatsync.RemoteMessage, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			out = append(out, convertMessage(m))
		}
	}
	return out, nil
}

func (c *Client) Message(ctx context.Context, channelID, messageID uint64) (chatsync.RemoteMessage, error) {
	session, err := c.sessionFor("message")
	if err != nil {
		return chatsync.RemoteMessage{}, err
	}
	m, err := session.ChannelMessage(idString(channelID), idString(messageID), discordgo.WithContext(ctx))
	if err != nil {
		return chatsync.RemoteMessage{}, classifyREST("message", err)
	}
	return convertMessage(m), nil
}

func (c *Client) Member(ctx context.Context, guildID, userID uint64) (chatsync.Member, error) {
	session, err := c.sessionFor("member")
	if err != nil {
		return chatsync.Member{}, err
	}
	m, err := session.GuildMember(idString(guildID), idString(userID), discordgo.WithContext(ctx))
	if err != nil {
		return chatsync.Member{}, classifyREST("member", err)
	}
	member := chatsync.Member{Nick: m.Nick}
	if m.User != nil {
		member.User = convertUser(m.User)
	}
	return member, nil
}

func (c *Client) User(ctx context.Context, userID uint64) (chatsync.User, error) {
	session, err := c.sessionFor("user")
	if err != nil {
		return chatsync.User{}, err
	}
	u, err := session.User(idString(userID), discordgo.WithContext(ctx))
	if err != nil {
		return chatsync.User{}, classifyREST("user", err)
	}
	return convertUser(u), nil
}

// Send posts content, as a native reply when replyTo is set.
func (c *Client) Send(ctx context.Context, channelID uint64, content string, replyTo uint64) (chatsync.RemoteMessage, error) {
	session, err := c.sessionFor("send")
	if err != nil {
		return chatsync.RemoteMessage{}, err
	}
	ch := idString(channelID)
	var m *discordgo.Message
	if replyTo != 0 {
		ref := &discordgo.MessageReference{MessageID: idString(replyTo), ChannelID: ch}
		m, err = session.ChannelMessageSendReply(ch, content, ref, discordgo.WithContext(ctx))
	} else {
		m, err = session.ChannelMessageSend(ch, content, discordgo.WithContext(ctx))
	}
	if err != nil {
		return chatsync.RemoteMessage{}, classifyREST("send", err)
	}
	return convertMessage(m), nil
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID uint64, emoji string) error {
	session, err := c.sessionFor("add reaction")
	if err != nil {
		return err
	}
	if err := session.MessageReactionAdd(idString(channelID), idString(messageID), emoji, discordgo.WithContext(ctx)); err != nil {
		return classifyREST("add reaction", err)
	}
	return nil
}

func (c *Client) RemoveReaction(ctx context.Context, channelID, messageID uint64, emoji string) error {
	session, err := c.sessionFor("remove reaction")
	if err != nil {
		return err
	}
	if err := session.MessageReactionRemove(idString(channelID), idString(messageID), emoji, "@me", discordgo.WithContext(ctx)); err != nil {
		return classifyREST("remove reaction", err)
	}
	return nil
}

var _ chatsync.Remote = (*Client)(nil)
