package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildPrefix_RoundTrip(t *testing.T) {
	c := openReady(t, "sqlite://"+filepath.Join(t.TempDir(), "bot.db"))
	ctx := context.Background()

	prefix, err := c.GuildPrefix(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, prefix)

	require.NoError(t, c.SetGuildPrefix(ctx, "g1", "?"))
	require.NoError(t, c.SetGuildPrefix(ctx, "g1", "$$"))

	prefix, err = c.GuildPrefix(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "$$", prefix)
}

func TestAppendCommandToHistory(t *testing.T) {
	c := openReady(t, "file://"+filepath.Join(t.TempDir(), "bot.json"))
	ctx := context.Background()

	require.NoError(t, c.AppendCommandToHistory(ctx, CommandHistoryRecord{
		GuildID: "g1", UserID: "u1", Command: "help", Datetime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	doc, err := c.FindOne(ctx, CommandHistoryCollection, Document{"user_id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "help", doc["command"])
	assert.Equal(t, "2024-01-02T03:04:05Z", doc["datetime"])
}
