package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/storage"
	"github.com/keshon/disharmony/pkg/cmd"
)

const guildOnlyText = "This command only works in a server."

func prefixCommand(store *storage.Client) *bot.Command {
	return &bot.Command{
		Name:        "prefix",
		Description: "Change the command prefix for this server.",
		Usage:       "<new-prefix>",
		Level:       cmd.Admin,
		Syntax:      `\S{1,5}`,
		Handler: func(ctx context.Context, inv *bot.Invocation) (cmd.Result, error) {
			guildID := inv.Source.Guild.ID
			if guildID == "" {
				return cmd.Reply(guildOnlyText), nil
			}
			if store == nil {
				return cmd.Result{}, fmt.Errorf("prefix: %w", storage.ErrNotConnected)
			}

			prefix := strings.TrimSpace(inv.Args)
			if err := store.SetGuildPrefix(ctx, guildID, prefix); err != nil {
				return cmd.Result{}, fmt.Errorf("set prefix for guild %s: %w", guildID, err)
			}
			return cmd.Reply(fmt.Sprintf("Prefix set to `%s`.", prefix)), nil
		},
	}
}
