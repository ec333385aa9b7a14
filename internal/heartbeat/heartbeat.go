// Package heartbeat pings an external monitor so it knows the bot is alive.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/pkg/jobmgr"

	"github.com/rs/zerolog"
)

const jobName = "heartbeat"

type Heartbeat struct {
	url      string
	interval time.Duration
	client   *http.Client
	jobs     *jobmgr.Manager
	log      zerolog.Logger
}

// New returns a heartbeat for url. An empty url disables it.
func New(url string, interval time.Duration, lc *logging.Context) *Heartbeat {
	if lc == nil {
		lc = logging.Nop()
	}
	log := lc.Component("heartbeat")
	return &Heartbeat{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		jobs:     jobmgr.NewManager(func(msg string) { log.Debug().Msg(msg) }),
		log:      log,
	}
}

// Enabled reports whether a URL is configured.
func (h *Heartbeat) Enabled() bool { return h.url != "" }

// Start sends the first ping and, only if it succeeds, schedules the
// recurring one. Later failures are logged and left to the next tick.
func (h *Heartbeat) Start(ctx context.Context) error {
	if !h.Enabled() {
		return nil
	}
	if h.interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", h.interval)
	}

	if err := h.Ping(ctx); err != nil {
		h.log.Error().Err(err).Msg("Error sending initial heartbeat, interval setup abandoned")
		return err
	}
	return h.jobs.Start(ctx, jobName, h.loop)
}

func (h *Heartbeat) loop(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := h.Ping(ctx); err != nil && ctx.Err() == nil {
				h.log.Warn().Err(err).Msg("Error sending heartbeat")
			}
		}
	}
}

// Ping sends one GET; any 2xx is success.
func (h *Heartbeat) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("heartbeat request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("heartbeat: unexpected status %s", resp.Status)
	}
	return nil
}

// Running reports whether the recurring ping is scheduled.
func (h *Heartbeat) Running() bool { return h.jobs.Running(jobName) }

// Stop cancels the recurring ping.
func (h *Heartbeat) Stop() {
	if err := h.jobs.Stop(jobName); err != nil && !errors.Is(err, jobmgr.ErrNotRunning) {
		h.log.Warn().Err(err).Msg("Stopping heartbeat")
	}
}
