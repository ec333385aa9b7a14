package storage

import (
	"context"
	"errors"
	"time"
)

const (
	GuildsCollection         = "guilds"
	CommandHistoryCollection = "command_history"
)

// GuildPrefix returns the stored command prefix override for a guild, or ""
// when none is set.
func (c *Client) GuildPrefix(ctx context.Context, guildID string) (string, error) {
	doc, err := c.FindOne(ctx, GuildsCollection, Document{"guild_id": guildID})
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	prefix, _ := doc["prefix"].(string)
	return prefix, nil
}

// SetGuildPrefix stores a prefix override. It is buffered, so it succeeds
// even before the backend is connected.
func (c *Client) SetGuildPrefix(ctx context.Context, guildID, prefix string) error {
	return c.UpdateOne(ctx, GuildsCollection,
		Document{"guild_id": guildID},
		Document{"$set": Document{"prefix": prefix}},
		Buffered(),
	)
}

type CommandHistoryRecord struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Command   string
	Param     string
	Datetime  time.Time
}

// AppendCommandToHistory records one command invocation (buffered).
func (c *Client) AppendCommandToHistory(ctx context.Context, rec CommandHistoryRecord) error {
	return c.InsertOne(ctx, CommandHistoryCollection, Document{
		"guild_id":   rec.GuildID,
		"channel_id": rec.ChannelID,
		"user_id":    rec.UserID,
		"username":   rec.Username,
		"command":    rec.Command,
		"param":      rec.Param,
		"datetime":   rec.Datetime.UTC().Format(time.RFC3339),
	}, Buffered())
}
