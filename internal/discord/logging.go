package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dlclark/regexp2"
	"github.com/rs/zerolog"
)

const redacted = "[REDACTED]"

var (
	heartbeatNoise = regexp2.MustCompile(`[Hh]eartbeat`, regexp2.None)
	tokenPatterns  = []*regexp2.Regexp{
		regexp2.MustCompile(`(?<=Authenticated using token )\S+`, regexp2.None),
		regexp2.MustCompile(`(?<=\bBot )[\w\-.]{20,}`, regexp2.None),
	}
)

func init() {
	heartbeatNoise.MatchTimeout = 100 * time.Millisecond
	for _, re := range tokenPatterns {
		re.MatchTimeout = 100 * time.Millisecond
	}
}

// FilterDebug prepares a gateway debug line for the debug log. It drops
// heartbeat chatter and masks anything that looks like the bot token.
func FilterDebug(line, token string) (string, bool) {
	if ok, _ := heartbeatNoise.MatchString(line); ok {
		return "", false
	}
	if token != "" {
		line = strings.ReplaceAll(line, token, redacted)
	}
	for _, re := range tokenPatterns {
		if out, err := re.Replace(line, redacted, -1, -1); err == nil {
			line = out
		}
	}
	return line, true
}

// debugHook returns a discordgo.Logger that writes filtered lines to log.
func debugHook(log zerolog.Logger, token func() string) func(msgL, caller int, format string, a ...any) {
	return func(msgL, _ int, format string, a ...any) {
		line, ok := FilterDebug(fmt.Sprintf(format, a...), token())
		if !ok {
			return
		}
		log.WithLevel(gatewayLevel(msgL)).Str("component", "discordgo").Msg(line)
	}
}

func gatewayLevel(msgL int) zerolog.Level {
	switch msgL {
	case discordgo.LogError:
		return zerolog.ErrorLevel
	case discordgo.LogWarning:
		return zerolog.WarnLevel
	case discordgo.LogInformational:
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}
