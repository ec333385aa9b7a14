package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/pkg/cmd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botID = "bot-id"

type harness struct {
	pipeline   *Pipeline
	replies    []string
	broadcasts []*Message
	// repliesAtBroadcast is how many replies existed when each broadcast fired
	repliesAtBroadcast []int
}

func newHarness(t *testing.T, cmds ...*Command) *harness {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(cmds...))

	h := &harness{}
	h.pipeline = NewPipeline(NewResolver(reg), func() string { return botID }, logging.Nop())
	h.pipeline.OnMessage.Subscribe(func(m *Message) {
		h.broadcasts = append(h.broadcasts, m)
		h.repliesAtBroadcast = append(h.repliesAtBroadcast, len(h.replies))
	})
	return h
}

func (h *harness) message(author, text string, level cmd.PermissionLevel) *Message {
	return &Message{
		ID:       "m1",
		AuthorID: author,
		Text:     text,
		Guild:    Guild{ID: "guild-id", Prefix: "!"},
		Member:   Member{ID: author, Level: level},
		Responder: func(_ context.Context, text string) error {
			h.replies = append(h.replies, text)
			return nil
		},
	}
}

func replyWith(res cmd.Result, err error) *Command {
	return &Command{Name: "cmd", Handler: func(context.Context, *Invocation) (cmd.Result, error) { return res, err }}
}

func TestHandle_IgnoresOwnMessages(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Reply("result"), nil))

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message(botID, "!cmd", cmd.Owner)))

	assert.Empty(t, h.replies)
	assert.Empty(t, h.broadcasts)
}

func TestHandle_OrdinaryChatBroadcastsOnce(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Reply("result"), nil))

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "just an ordinary chat message", cmd.Everyone)))

	assert.Empty(t, h.replies)
	assert.Len(t, h.broadcasts, 1)
}

func TestHandle_UnknownCommandIsChat(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Reply("result"), nil))

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "!unknown thing", cmd.Everyone)))

	assert.Empty(t, h.replies)
	assert.Len(t, h.broadcasts, 1)
}

func TestHandle_RepliesWithResult(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Reply("result"), nil))

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "!cmd", cmd.Everyone)))

	assert.Equal(t, []string{"result"}, h.replies)
	require.Len(t, h.broadcasts, 1)
	assert.Equal(t, []int{1}, h.repliesAtBroadcast, "broadcast must follow the reply")
}

func TestHandle_SilentResultSendsNothing(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Silent, nil))

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "!cmd", cmd.Everyone)))

	assert.Empty(t, h.replies)
	assert.Len(t, h.broadcasts, 1)
}

func TestHandle_MissingPermissionFromResolver(t *testing.T) {
	admin := &Command{Name: "cmd", Level: cmd.Admin, Handler: func(context.Context, *Invocation) (cmd.Result, error) {
		t.Fatal("handler must not run")
		return cmd.Silent, nil
	}}
	h := newHarness(t, admin)

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "!cmd", cmd.Moderator)))

	assert.Equal(t, []string{MissingPermissionText}, h.replies)
	assert.Len(t, h.broadcasts, 1)
}

func TestHandle_MissingPermissionFromHandlerMatchesResolver(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Reject(cmd.MissingPermission), nil))

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "!cmd", cmd.Everyone)))

	assert.Equal(t, []string{MissingPermissionText}, h.replies)
	assert.Len(t, h.broadcasts, 1)
}

func TestHandle_IncorrectSyntax(t *testing.T) {
	roll := &Command{Name: "roll", Syntax: `\d+`, Handler: func(context.Context, *Invocation) (cmd.Result, error) {
		return cmd.Reply("rolled"), nil
	}}
	h := newHarness(t, roll)

	require.NoError(t, h.pipeline.Handle(context.Background(), h.message("member-id", "!roll dice", cmd.Everyone)))

	assert.Equal(t, []string{IncorrectSyntaxText}, h.replies)
	assert.Len(t, h.broadcasts, 1)
}

func TestHandle_HandlerErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	h := newHarness(t, replyWith(cmd.Silent, boom))

	err := h.pipeline.Handle(context.Background(), h.message("member-id", "!cmd", cmd.Everyone))

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, h.replies)
	assert.Empty(t, h.broadcasts)
}

func TestHandle_ReplyFailureStillBroadcasts(t *testing.T) {
	h := newHarness(t, replyWith(cmd.Reply("result"), nil))
	m := h.message("member-id", "!cmd", cmd.Everyone)
	m.Responder = func(context.Context, string) error { return errors.New("discord down") }

	require.NoError(t, h.pipeline.Handle(context.Background(), m))
	assert.Len(t, h.broadcasts, 1)
}

func TestRejectionText(t *testing.T) {
	assert.Equal(t, MissingPermissionText, RejectionText(cmd.MissingPermission))
	assert.Equal(t, IncorrectSyntaxText, RejectionText(cmd.IncorrectSyntax))
	assert.Empty(t, RejectionText(cmd.NoRejection))
}
