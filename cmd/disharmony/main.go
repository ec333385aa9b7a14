// cmd/disharmony/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/commands"
	"github.com/keshon/disharmony/internal/config"
	"github.com/keshon/disharmony/internal/discord"
	"github.com/keshon/disharmony/internal/heartbeat"
	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/internal/stats"
	"github.com/keshon/disharmony/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lc, err := logging.New(logging.Options{Level: cfg.LogLevel, DebugPath: cfg.DebugLogPath})
	if err != nil {
		log.Fatal(err)
	}
	defer lc.Close()
	logger := lc.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DBConnectionString, lc)
	if err != nil {
		logger.Fatal().Err(err).Msg("Opening storage")
	}

	var client *discord.Client
	counters := stats.New(func() int {
		if client == nil {
			return 0
		}
		return client.GuildCount()
	})

	reg := bot.NewRegistry()
	reg.MustRegister(commands.Roll())
	reg.MustRegister(commands.Inbuilt(commands.Deps{Registry: reg, Store: store, Stats: counters})...)

	resolver := bot.NewResolver(reg, commands.WithCommandLog(store, lc.Component("commands")))
	pipeline := bot.NewPipeline(resolver, func() string {
		if client == nil {
			return ""
		}
		return client.BotID()
	}, lc)
	counters.Attach(pipeline)

	hb := heartbeat.New(cfg.HeartbeatURL, cfg.HeartbeatInterval, lc)
	client, err = discord.New(cfg, pipeline, store, hb, lc)
	if err != nil {
		logger.Fatal().Err(err).Msg("Creating Discord client")
	}

	if err := client.Login(ctx, cfg.DiscordToken); err != nil {
		logger.Error().Err(err).Msg("Login failed")
		shutdown(client, store, lc)
		return
	}

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received, cleaning up")
	shutdown(client, store, lc)
}

func shutdown(client *discord.Client, store *storage.Client, lc *logging.Context) {
	logger := lc.Component("main")
	if err := client.Destroy(); err != nil {
		logger.Warn().Err(err).Msg("Closing Discord session")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("Closing storage")
	}
	logger.Info().Msg("Disharmony exited cleanly")
}
