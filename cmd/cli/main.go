// disharmony-cli runs the bot's commands from a terminal, against the same
// storage the bot uses, without a gateway connection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/commands"
	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/internal/stats"
	"github.com/keshon/disharmony/internal/storage"
	"github.com/keshon/disharmony/pkg/cmd"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dbConn   string
	prefix   string
	level    string
	guildID  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "disharmony-cli",
	Short:        "Run disharmony commands from a terminal",
	SilenceUsage: true,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Read messages from stdin, one per line, and print the replies",
	RunE: func(c *cobra.Command, _ []string) error {
		return withConsole(c.Context(), func(con *console) error {
			return con.run(c.Context(), c.InOrStdin())
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <message>",
	Short: "Handle a single message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		return withConsole(c.Context(), func(con *console) error {
			return con.handle(c.Context(), strings.Join(args, " "))
		})
	},
}

func init() {
	_ = godotenv.Load()

	def := os.Getenv("DB_CONNECTION_STRING")
	if def == "" {
		def = "file://data/disharmony.json"
	}
	rootCmd.PersistentFlags().StringVar(&dbConn, "db", def, "storage connection string")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "!", "command prefix")
	rootCmd.PersistentFlags().StringVar(&level, "level", cmd.Owner.String(), "permission level of the console user")
	rootCmd.PersistentFlags().StringVar(&guildID, "guild", "console", "guild id the messages belong to")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "console log level")
	rootCmd.AddCommand(consoleCmd, execCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withConsole wires storage, registry and pipeline the same way the bot does
// and hands the result to fn.
func withConsole(ctx context.Context, fn func(*console) error) error {
	lvl, err := cmd.ParseLevel(level)
	if err != nil {
		return err
	}

	lc, err := logging.New(logging.Options{Level: logLevel, Console: os.Stderr})
	if err != nil {
		return err
	}
	defer lc.Close()

	store, err := storage.Open(ctx, dbConn, lc)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}()

	select {
	case <-store.Ready():
	case <-time.After(10 * time.Second):
		return fmt.Errorf("storage %s: %w", store.Protocol(), storage.ErrNotConnected)
	case <-ctx.Done():
		return ctx.Err()
	}

	counters := stats.New(nil)
	reg := bot.NewRegistry()
	reg.MustRegister(commands.Roll())
	reg.MustRegister(commands.Inbuilt(commands.Deps{Registry: reg, Store: store, Stats: counters})...)

	p := bot.NewPipeline(bot.NewResolver(reg, commands.WithCommandLog(store, lc.Component("commands"))), func() string { return "" }, lc)
	counters.Attach(p)

	return fn(&console{
		pipeline: p,
		store:    store,
		out:      os.Stdout,
		guildID:  guildID,
		prefix:   prefix,
		level:    lvl,
	})
}
