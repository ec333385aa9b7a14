package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	content string
	prefix  string
	level   PermissionLevel
}

func (f fakeSource) Content() string        { return f.content }
func (f fakeSource) Prefix() string         { return f.prefix }
func (f fakeSource) Level() PermissionLevel { return f.level }

func echo(_ context.Context, inv *Invocation[fakeSource]) (Result, error) {
	return Reply(inv.Args), nil
}

func newTestResolver(t *testing.T, cmds ...*Command[fakeSource]) *Resolver[fakeSource] {
	t.Helper()
	reg := NewRegistry[fakeSource]()
	require.NoError(t, reg.Register(cmds...))
	return NewResolver(reg)
}

func TestResolve_NotACommand(t *testing.T) {
	r := newTestResolver(t, &Command[fakeSource]{Name: "echo", Handler: echo})
	ctx := context.Background()

	for _, content := range []string{"just chatting", "", "!", "!   ", "echo hi"} {
		inv, rej := r.Resolve(ctx, fakeSource{content: content, prefix: "!"})
		assert.Nil(t, inv, content)
		assert.Equal(t, NoRejection, rej, content)
	}
}

func TestResolve_UnknownCommandIsChat(t *testing.T) {
	r := newTestResolver(t, &Command[fakeSource]{Name: "echo", Handler: echo})

	inv, rej := r.Resolve(context.Background(), fakeSource{content: "!nope arg", prefix: "!"})
	assert.Nil(t, inv)
	assert.Equal(t, NoRejection, rej)
}

func TestResolve_MissingPermission(t *testing.T) {
	r := newTestResolver(t, &Command[fakeSource]{Name: "ban", Level: Admin, Handler: echo})

	inv, rej := r.Resolve(context.Background(), fakeSource{content: "!ban someone", prefix: "!", level: Moderator})
	assert.Nil(t, inv)
	assert.Equal(t, MissingPermission, rej)
}

func TestResolve_PermissionCheckedBeforeSyntax(t *testing.T) {
	r := newTestResolver(t, &Command[fakeSource]{Name: "ban", Level: Admin, Syntax: `\d+`, Handler: echo})

	_, rej := r.Resolve(context.Background(), fakeSource{content: "!ban not-a-number", prefix: "!"})
	assert.Equal(t, MissingPermission, rej)
}

func TestResolve_IncorrectSyntax(t *testing.T) {
	r := newTestResolver(t, &Command[fakeSource]{Name: "roll", Syntax: `\d+d\d+`, Handler: echo})
	ctx := context.Background()

	_, rej := r.Resolve(ctx, fakeSource{content: "!roll lots", prefix: "!"})
	assert.Equal(t, IncorrectSyntax, rej)

	// anchored over the whole argument string
	_, rej = r.Resolve(ctx, fakeSource{content: "!roll 2d6 please", prefix: "!"})
	assert.Equal(t, IncorrectSyntax, rej)
}

func TestResolve_InvokesHandler(t *testing.T) {
	r := newTestResolver(t, &Command[fakeSource]{Name: "roll", Syntax: `\d+d\d+`, Handler: echo})

	inv, rej := r.Resolve(context.Background(), fakeSource{content: "  !ROLL   2d6 ", prefix: "!"})
	require.NotNil(t, inv)
	assert.Equal(t, NoRejection, rej)

	res, err := inv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2d6", res.Reply)
}

func TestResolve_FirstRegisteredWins(t *testing.T) {
	reg := NewRegistry[fakeSource]()
	require.NoError(t, reg.Register(&Command[fakeSource]{Name: "a", Handler: echo}))
	err := reg.Register(&Command[fakeSource]{Name: "A", Handler: echo})
	assert.True(t, errors.Is(err, ErrDuplicateCommand))
	assert.Equal(t, 1, reg.Len())
}

func TestResolve_AppliesMiddleware(t *testing.T) {
	reg := NewRegistry[fakeSource]()
	reg.MustRegister(&Command[fakeSource]{Name: "echo", Handler: echo})

	var seen []string
	mw := func(next Handler[fakeSource]) Handler[fakeSource] {
		return func(ctx context.Context, inv *Invocation[fakeSource]) (Result, error) {
			seen = append(seen, inv.Command.Name)
			return next(ctx, inv)
		}
	}
	r := NewResolver(reg, mw)

	inv, _ := r.Resolve(context.Background(), fakeSource{content: "!echo hi", prefix: "!"})
	require.NotNil(t, inv)
	res, err := inv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Reply)
	assert.Equal(t, []string{"echo"}, seen)
}

func TestParse(t *testing.T) {
	name, args, ok := Parse("??help\tprefix  ", "??")
	require.True(t, ok)
	assert.Equal(t, "help", name)
	assert.Equal(t, "prefix", args)

	_, _, ok = Parse("hello", "")
	assert.False(t, ok)
}
