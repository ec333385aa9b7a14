package bot

import (
	"context"
	"fmt"

	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/pkg/cmd"

	"github.com/rs/zerolog"
)

const (
	MissingPermissionText = "You do not have permission to use this command."
	IncorrectSyntaxText   = "Incorrect syntax! See correct syntax with the `help` command."
)

// RejectionText maps a rejection to the reply shown to the member.
func RejectionText(r cmd.Rejection) string {
	switch r {
	case cmd.MissingPermission:
		return MissingPermissionText
	case cmd.IncorrectSyntax:
		return IncorrectSyntaxText
	}
	return ""
}

// Pipeline handles one inbound message end to end: self-filter, resolve,
// invoke, reply and broadcast.
type Pipeline struct {
	resolver *Resolver
	botID    func() string
	log      zerolog.Logger

	// OnMessage fires once per handled message, after any reply was sent.
	OnMessage Dispatcher[*Message]
}

// NewPipeline builds a pipeline. botID reports the bot's own user id; it is
// read per message because it is only known after login.
func NewPipeline(resolver *Resolver, botID func() string, lc *logging.Context) *Pipeline {
	if lc == nil {
		lc = logging.Nop()
	}
	return &Pipeline{
		resolver: resolver,
		botID:    botID,
		log:      lc.Component("pipeline"),
	}
}

// Resolver returns the resolver commands are matched with.
func (p *Pipeline) Resolver() *Resolver { return p.resolver }

// Handle processes m. Messages from the bot itself are ignored entirely.
// A handler error aborts the message before broadcast and is returned for
// the caller's safety net; rejections never surface as errors.
func (p *Pipeline) Handle(ctx context.Context, m *Message) error {
	if m.AuthorID != "" && m.AuthorID == p.botID() {
		return nil
	}

	invoke, rejection := p.resolver.Resolve(ctx, m)
	if invoke != nil {
		res, err := invoke(ctx)
		if err != nil {
			return fmt.Errorf("handling message %s: %w", m.ID, err)
		}
		rejection = res.Rejection
		if rejection == cmd.NoRejection && res.Reply != "" {
			p.reply(ctx, m, res.Reply)
		}
	}

	if rejection != cmd.NoRejection {
		p.reply(ctx, m, RejectionText(rejection))
	}

	p.OnMessage.Dispatch(m)
	return nil
}

func (p *Pipeline) reply(ctx context.Context, m *Message, text string) {
	if err := m.Reply(ctx, text); err != nil {
		p.log.Warn().Err(err).Str("channel", m.ChannelID).Msg("Failed to send reply")
	}
}
