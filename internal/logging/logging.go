// Package logging owns the process-wide loggers: a human-readable console log
// and a rotating debug log file. It is constructed once in main and passed to
// the components that need it.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level     string    // zerolog level name, e.g. "info"
	DebugPath string    // debug log file; empty disables the file sink
	Console   io.Writer // defaults to os.Stderr
}

// Context bundles the console and debug loggers with their lifecycle.
type Context struct {
	Console zerolog.Logger
	Debug   zerolog.Logger

	debugFile *lumberjack.Logger
}

// New builds the loggers. Close releases the debug file.
func New(opts Options) (*Context, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		lvl, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = lvl
	}

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	console := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}).
		Level(level).
		With().Timestamp().Logger()

	lc := &Context{Console: console, Debug: zerolog.Nop()}
	if opts.DebugPath != "" {
		lc.debugFile = &lumberjack.Logger{
			Filename:   opts.DebugPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		lc.Debug = zerolog.New(lc.debugFile).With().Timestamp().Logger()
	}
	return lc, nil
}

// Nop returns a context that discards everything.
func Nop() *Context {
	return &Context{Console: zerolog.Nop(), Debug: zerolog.Nop()}
}

// Component returns a console logger tagged with a component name.
func (c *Context) Component(name string) zerolog.Logger {
	return c.Console.With().Str("component", name).Logger()
}

// Recover is the safety net for event handlers: deferred at the top of a
// goroutine, it logs a panic with its stack and lets the process continue.
func (c *Context) Recover(where string) {
	if r := recover(); r != nil {
		stack := string(debug.Stack())
		c.Console.Error().Str("where", where).Interface("panic", r).Msg("Unhandled panic")
		c.Debug.Error().Str("where", where).Interface("panic", r).Str("stack", stack).Msg("Unhandled panic")
	}
}

// Unhandled logs an error nobody else handled, to both sinks.
func (c *Context) Unhandled(where string, err error) {
	c.Console.Error().Err(err).Str("where", where).Msg("Unhandled error")
	c.Debug.Error().Err(err).Str("where", where).Msg("Unhandled error")
}

// Close flushes and releases the debug file.
func (c *Context) Close() error {
	c.Debug.Info().Msg("Shutdown")
	if c.debugFile != nil {
		return c.debugFile.Close()
	}
	return nil
}
