package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/commands"
	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/internal/storage"
	"github.com/keshon/disharmony/pkg/cmd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsole(t *testing.T, level cmd.PermissionLevel) (*console, *bytes.Buffer) {
	t.Helper()
	store, err := storage.Open(context.Background(), "file://"+filepath.Join(t.TempDir(), "db.json"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	select {
	case <-store.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("store never became ready")
	}

	reg := bot.NewRegistry()
	reg.MustRegister(commands.Inbuilt(commands.Deps{Registry: reg, Store: store})...)

	var out bytes.Buffer
	return &console{
		pipeline: bot.NewPipeline(bot.NewResolver(reg), func() string { return "" }, logging.Nop()),
		store:    store,
		out:      &out,
		guildID:  "console",
		prefix:   "!",
		level:    level,
	}, &out
}

func TestConsole_PrefixChangeAppliesToNextLine(t *testing.T) {
	con, out := newConsole(t, cmd.Owner)

	in := strings.NewReader("!prefix ?\n!help prefix\n?help prefix\n")
	require.NoError(t, con.run(context.Background(), in))

	lines := out.String()
	assert.Contains(t, lines, "Prefix set to `?`.")
	assert.Equal(t, 1, strings.Count(lines, "Usage: `?prefix <new-prefix>`"))
}

func TestConsole_RespectsLevel(t *testing.T) {
	con, out := newConsole(t, cmd.Everyone)

	require.NoError(t, con.handle(context.Background(), "!prefix ?"))
	assert.Equal(t, bot.MissingPermissionText+"\n", out.String())
}
