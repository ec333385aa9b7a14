package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/storage"
	"github.com/keshon/disharmony/pkg/cmd"
)

const consoleUser = "console"

type console struct {
	pipeline *bot.Pipeline
	store    *storage.Client
	out      io.Writer
	guildID  string
	prefix   string
	level    cmd.PermissionLevel
	seq      int
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := c.handle(ctx, sc.Text()); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return sc.Err()
}

// handle sends one line through the pipeline as the console user. The guild
// prefix is re-read every time so a prefix change applies to the next line.
func (c *console) handle(ctx context.Context, line string) error {
	c.seq++
	m := &bot.Message{
		ID:        strconv.Itoa(c.seq),
		ChannelID: consoleUser,
		AuthorID:  consoleUser,
		Text:      line,
		Guild:     bot.Guild{ID: c.guildID, Name: c.guildID, Prefix: c.effectivePrefix(ctx)},
		Member:    bot.Member{ID: consoleUser, Username: consoleUser, Level: c.level},
		Responder: func(_ context.Context, text string) error {
			_, err := fmt.Fprintln(c.out, text)
			return err
		},
	}
	return c.pipeline.Handle(ctx, m)
}

func (c *console) effectivePrefix(ctx context.Context) string {
	if c.store == nil {
		return c.prefix
	}
	if p, err := c.store.GuildPrefix(ctx, c.guildID); err == nil && p != "" {
		return p
	}
	return c.prefix
}
