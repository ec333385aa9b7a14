// Package stats keeps usage counters fed by the message-processed event.
package stats

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/pkg/cmd"
)

type Stats struct {
	started  time.Time
	messages atomic.Int64
	commands atomic.Int64
	guilds   func() int
	now      func() time.Time
}

// New returns counters starting now. guilds reports the current guild count
// and may be nil.
func New(guilds func() int) *Stats {
	return &Stats{started: time.Now(), guilds: guilds, now: time.Now}
}

// Attach subscribes the counters to processed messages.
func (s *Stats) Attach(p *bot.Pipeline) (detach func()) {
	return p.OnMessage.Subscribe(s.Observe)
}

// Observe counts one processed message.
func (s *Stats) Observe(m *bot.Message) {
	s.messages.Add(1)
	if _, _, ok := cmd.Parse(m.Content(), m.Prefix()); ok {
		s.commands.Add(1)
	}
}

type Snapshot struct {
	Messages int64
	Commands int64
	Guilds   int
	Uptime   time.Duration
}

func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Messages: s.messages.Load(),
		Commands: s.commands.Load(),
		Uptime:   s.now().Sub(s.started).Truncate(time.Second),
	}
	if s.guilds != nil {
		snap.Guilds = s.guilds()
	}
	return snap
}

func (snap Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Guilds: %d\n", snap.Guilds)
	fmt.Fprintf(&b, "Messages processed: %d\n", snap.Messages)
	fmt.Fprintf(&b, "Command messages: %d\n", snap.Commands)
	fmt.Fprintf(&b, "Uptime: %s", snap.Uptime)
	return b.String()
}
