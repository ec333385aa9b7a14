package commands

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/pkg/cmd"
)

// Roll rolls dice written as NdM, e.g. 2d20. N defaults to 1.
func Roll() *bot.Command {
	return &bot.Command{
		Name:        "roll",
		Description: "Roll dice like `2d20`.",
		Usage:       "<count>d<sides>",
		Syntax:      `(?i)([1-9]\d?)?d([1-9]\d{0,3})`,
		Handler: func(_ context.Context, inv *bot.Invocation) (cmd.Result, error) {
			count, sides, err := parseDice(inv.Args)
			if err != nil {
				return cmd.Reject(cmd.IncorrectSyntax), nil
			}

			rolls := make([]string, count)
			total := 0
			for i := range rolls {
				n := rand.Intn(sides) + 1
				total += n
				rolls[i] = strconv.Itoa(n)
			}
			return cmd.Reply(fmt.Sprintf("🎲 %s → %s = **%d**",
				strings.TrimSpace(inv.Args), strings.Join(rolls, " + "), total)), nil
		},
	}
}

func parseDice(s string) (count, sides int, err error) {
	left, right, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "d")
	if !ok {
		return 0, 0, fmt.Errorf("no dice in %q", s)
	}
	count = 1
	if left != "" {
		if count, err = strconv.Atoi(left); err != nil {
			return 0, 0, err
		}
	}
	if sides, err = strconv.Atoi(right); err != nil {
		return 0, 0, err
	}
	if count < 1 || sides < 1 {
		return 0, 0, fmt.Errorf("bad dice %q", s)
	}
	return count, sides, nil
}
