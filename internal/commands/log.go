package commands

import (
	"context"
	"time"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/storage"
	"github.com/keshon/disharmony/pkg/cmd"

	"github.com/rs/zerolog"
)

// WithCommandLog logs every command that ran and appends it to the command
// history. The handler runs first; logging failures never change its result.
func WithCommandLog(store *storage.Client, log zerolog.Logger) bot.Middleware {
	return func(next bot.Handler) bot.Handler {
		return func(ctx context.Context, inv *bot.Invocation) (cmd.Result, error) {
			res, err := next(ctx, inv)

			m := inv.Source
			log.Info().
				Str("command", inv.Command.Name).
				Str("guild", m.Guild.ID).
				Str("member", m.Member.Username).
				Str("rejection", res.Rejection.String()).
				Err(err).
				Msg("Command executed")

			if store != nil && m.Guild.ID != "" {
				rec := storage.CommandHistoryRecord{
					GuildID:   m.Guild.ID,
					ChannelID: m.ChannelID,
					UserID:    m.Member.ID,
					Username:  m.Member.Username,
					Command:   inv.Command.Name,
					Param:     inv.Args,
					Datetime:  time.Now(),
				}
				if e := store.AppendCommandToHistory(ctx, rec); e != nil {
					log.Warn().Err(e).Str("command", inv.Command.Name).Msg("Failed to log command")
				}
			}
			return res, err
		}
	}
}
