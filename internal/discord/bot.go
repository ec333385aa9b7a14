// Package discord connects the message pipeline to a Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/config"
	"github.com/keshon/disharmony/internal/heartbeat"
	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	handleTimeout = 30 * time.Second
	prefixLookup  = 2 * time.Second
)

// VoiceState is a member joining, leaving or moving between voice channels.
// ChannelID is empty when the member left.
type VoiceState struct {
	GuildID   string
	ChannelID string
	Member    bot.Member
}

// Client owns the gateway session and feeds its events into the pipeline.
type Client struct {
	cfg       *config.Config
	pipeline  *bot.Pipeline
	store     *storage.Client
	heartbeat *heartbeat.Heartbeat
	lc        *logging.Context
	log       zerolog.Logger
	dg        *discordgo.Session

	mu    sync.RWMutex
	ctx   context.Context
	token string

	OnBeforeLogin      bot.Dispatcher[*Client]
	OnReady            bot.Dispatcher[*discordgo.Ready]
	OnVoiceStateUpdate bot.Dispatcher[VoiceState]
}

// New prepares a client; nothing touches the network until Login.
func New(cfg *config.Config, pipeline *bot.Pipeline, store *storage.Client, hb *heartbeat.Heartbeat, lc *logging.Context) (*Client, error) {
	if lc == nil {
		lc = logging.Nop()
	}
	dg, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	c := &Client{
		cfg:       cfg,
		pipeline:  pipeline,
		store:     store,
		heartbeat: hb,
		lc:        lc,
		log:       lc.Component("discord"),
		dg:        dg,
		ctx:       context.Background(),
	}

	dg.LogLevel = discordgo.LogInformational
	discordgo.Logger = debugHook(lc.Debug, c.currentToken)

	dg.AddHandler(c.onReady)
	dg.AddHandler(c.onMessageCreate)
	dg.AddHandler(c.onGuildCreate)
	dg.AddHandler(c.onVoiceStateUpdate)
	return c, nil
}

// Session exposes the underlying discordgo session.
func (c *Client) Session() *discordgo.Session { return c.dg }

// BotID returns the bot's user id, or "" before the session is ready.
func (c *Client) BotID() string {
	if c.dg.State == nil || c.dg.State.User == nil {
		return ""
	}
	return c.dg.State.User.ID
}

// GuildCount reports how many guilds the session currently knows.
func (c *Client) GuildCount() int {
	if c.dg.State == nil {
		return 0
	}
	c.dg.State.RLock()
	defer c.dg.State.RUnlock()
	return len(c.dg.State.Guilds)
}

// Login opens the gateway with token and then starts the heartbeat. ctx is
// the parent of every event handled afterwards. Only gateway failures are
// returned.
func (c *Client) Login(ctx context.Context, token string) error {
	token = config.SanitizeToken(token)
	c.mu.Lock()
	c.ctx = ctx
	c.token = token
	c.mu.Unlock()

	c.OnBeforeLogin.Dispatch(c)

	c.dg.Token = "Bot " + token
	c.dg.Identify.Token = c.dg.Token
	if err := c.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	name := ""
	if c.dg.State != nil && c.dg.State.User != nil {
		name = c.dg.State.User.Username
	}
	c.log.Info().Str("user", name).Msgf("Registered bot %s", name)

	c.startHeartbeat(ctx)
	return nil
}

// startHeartbeat starts the liveness ping. A monitor that is down at boot
// only costs the recurring ping; the bot keeps running.
func (c *Client) startHeartbeat(ctx context.Context) {
	if c.heartbeat == nil || !c.heartbeat.Enabled() {
		return
	}
	if err := c.heartbeat.Start(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Heartbeat not scheduled")
	}
}

// Destroy stops the heartbeat and closes the gateway session.
func (c *Client) Destroy() error {
	if c.heartbeat != nil {
		c.heartbeat.Stop()
	}
	return c.dg.Close()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) rootContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

func (c *Client) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	defer c.lc.Recover("ready")
	c.log.Info().Int("guilds", len(r.Guilds)).Msg("Gateway ready")
	c.OnReady.Dispatch(r)
}

func (c *Client) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	defer c.lc.Recover("guildCreate")
	c.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("Added to guild")
}

func (c *Client) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	defer c.lc.Recover("messageCreate")
	if e.Author == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.rootContext(), handleTimeout)
	defer cancel()

	m := c.buildMessage(ctx, s, e.Message)
	if err := c.pipeline.Handle(ctx, m); err != nil {
		c.lc.Unhandled("messageCreate", err)
	}
}

func (c *Client) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	defer c.lc.Recover("voiceStateUpdate")
	if e.VoiceState == nil {
		return
	}

	member := bot.Member{ID: e.UserID}
	if e.Member != nil && e.Member.User != nil {
		member.Username = e.Member.User.Username
	}
	member.Level = memberLevel(s, c.cfg, e.GuildID, e.ChannelID, e.UserID)

	c.OnVoiceStateUpdate.Dispatch(VoiceState{
		GuildID:   e.GuildID,
		ChannelID: e.ChannelID,
		Member:    member,
	})
}

// buildMessage turns a gateway message into the pipeline's message context.
func (c *Client) buildMessage(ctx context.Context, s *discordgo.Session, dm *discordgo.Message) *bot.Message {
	m := &bot.Message{
		ID:        dm.ID,
		ChannelID: dm.ChannelID,
		AuthorID:  dm.Author.ID,
		Text:      dm.Content,
		Guild: bot.Guild{
			ID:     dm.GuildID,
			Prefix: c.prefixFor(ctx, dm.GuildID),
		},
		Member: bot.Member{
			ID:       dm.Author.ID,
			Username: dm.Author.Username,
			Level:    memberLevel(s, c.cfg, dm.GuildID, dm.ChannelID, dm.Author.ID),
		},
	}
	if dm.GuildID != "" && s.State != nil {
		if g, err := s.State.Guild(dm.GuildID); err == nil {
			m.Guild.Name = g.Name
		}
	}

	ref := dm.Reference()
	m.Responder = func(ctx context.Context, text string) error {
		_, err := s.ChannelMessageSendReply(dm.ChannelID, text, ref, discordgo.WithContext(ctx))
		return err
	}
	return m
}

// prefixFor returns the guild's stored prefix, or the configured default
// when there is none or it cannot be read.
func (c *Client) prefixFor(ctx context.Context, guildID string) string {
	def := "!"
	if c.cfg != nil {
		def = c.cfg.CommandPrefix
	}
	if guildID == "" || c.store == nil {
		return def
	}

	ctx, cancel := context.WithTimeout(ctx, prefixLookup)
	defer cancel()
	p, err := c.store.GuildPrefix(ctx, guildID)
	if err != nil {
		c.log.Debug().Err(err).Str("guild", guildID).Msg("Falling back to default prefix")
		return def
	}
	if p == "" {
		return def
	}
	return p
}
