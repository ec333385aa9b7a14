package commands

import (
	"context"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/stats"
	"github.com/keshon/disharmony/pkg/cmd"
)

func statsCommand(s *stats.Stats) *bot.Command {
	return &bot.Command{
		Name:        "stats",
		Description: "Show usage statistics.",
		Level:       cmd.Moderator,
		Handler: func(context.Context, *bot.Invocation) (cmd.Result, error) {
			if s == nil {
				return cmd.Reply("Statistics are not being collected."), nil
			}
			return cmd.Reply("```\n" + s.Snapshot().String() + "\n```"), nil
		},
	}
}
