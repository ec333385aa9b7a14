package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/pkg/cmd"
)

func helpCommand(reg *bot.Registry) *bot.Command {
	return &bot.Command{
		Name:        "help",
		Description: "Show the commands you can use, or details of one command.",
		Usage:       "[command]",
		Level:       cmd.Everyone,
		Syntax:      `\S*`,
		Handler: func(_ context.Context, inv *bot.Invocation) (cmd.Result, error) {
			m := inv.Source
			if name := strings.TrimSpace(inv.Args); name != "" {
				c := reg.Get(name)
				if c == nil || m.Level() < c.Level {
					return cmd.Reply(fmt.Sprintf("Unknown command `%s`.", name)), nil
				}
				return cmd.Reply(describe(m.Prefix(), c)), nil
			}
			return cmd.Reply(buildHelpMessage(reg, m.Prefix(), m.Level())), nil
		},
	}
}

// buildHelpMessage lists the commands available at level, in registration
// order.
func buildHelpMessage(reg *bot.Registry, prefix string, level cmd.PermissionLevel) string {
	var sb strings.Builder
	sb.WriteString("**Available commands**\n")
	for _, c := range reg.All() {
		if level < c.Level {
			continue
		}
		sb.WriteString("`" + invocation(prefix, c) + "`")
		if c.Description != "" {
			sb.WriteString(" - " + c.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func describe(prefix string, c *bot.Command) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s%s**\n", prefix, c.Name)
	if c.Description != "" {
		sb.WriteString(c.Description + "\n")
	}
	fmt.Fprintf(&sb, "Usage: `%s`\n", invocation(prefix, c))
	fmt.Fprintf(&sb, "Requires: %s", c.Level)
	return sb.String()
}

func invocation(prefix string, c *bot.Command) string {
	if c.Usage == "" {
		return prefix + c.Name
	}
	return prefix + c.Name + " " + c.Usage
}
