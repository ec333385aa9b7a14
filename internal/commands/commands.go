// Package commands holds the commands every bot ships with, and the
// middleware that records command usage.
package commands

import (
	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/stats"
	"github.com/keshon/disharmony/internal/storage"
)

// Deps are the services the inbuilt commands read from.
type Deps struct {
	Registry *bot.Registry
	Store    *storage.Client
	Stats    *stats.Stats
}

// Inbuilt returns help, prefix and stats, to be registered after the user's
// own commands.
func Inbuilt(d Deps) []*bot.Command {
	return []*bot.Command{
		helpCommand(d.Registry),
		prefixCommand(d.Store),
		statsCommand(d.Stats),
	}
}
