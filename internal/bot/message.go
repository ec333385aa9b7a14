package bot

import (
	"context"
	"errors"

	"github.com/keshon/disharmony/pkg/cmd"
)

// Command types bound to the chat message context.
type (
	Command    = cmd.Command[*Message]
	Invocation = cmd.Invocation[*Message]
	Handler    = cmd.Handler[*Message]
	Middleware = cmd.Middleware[*Message]
	Registry   = cmd.Registry[*Message]
	Resolver   = cmd.Resolver[*Message]
)

// NewRegistry returns an empty command registry for chat messages.
func NewRegistry() *Registry { return cmd.NewRegistry[*Message]() }

// NewResolver returns a resolver over reg.
func NewResolver(reg *Registry, mws ...Middleware) *Resolver {
	return cmd.NewResolver(reg, mws...)
}

type Guild struct {
	ID   string
	Name string
	// Prefix is the effective command prefix for this guild.
	Prefix string
}

type Member struct {
	ID       string
	Username string
	Level    cmd.PermissionLevel
}

// ReplyFunc sends text back to where a message came from.
type ReplyFunc func(ctx context.Context, text string) error

var ErrNoReply = errors.New("message has no reply capability")

// Message is the context of one inbound chat message. It is built by the
// gateway adapter per event and owned by the pipeline run handling it.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Text      string
	Guild     Guild
	Member    Member
	Responder ReplyFunc
}

func (m *Message) Content() string { return m.Text }
func (m *Message) Prefix() string { return m.Guild.Prefix }
func (m *Message) Level() cmd.PermissionLevel { return m.Member.Level }

// Reply answers the message.
func (m *Message) Reply(ctx context.Context, text string) error {
	if m.Responder == nil {
		return ErrNoReply
	}
	return m.Responder(ctx, text)
}
