// Package sweep runs the periodic stale-ticket pass that nudges
// forgotten open tickets into in-progress so staff dashboards surface
// them for follow-up.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unibot-io/unibot/internal/ticket"
	"github.com/unibot-io/unibot/pkg/protocol"
)

// Sweeper periodically scans the ticket store for open tickets older
// than MaxAge and moves them to in-progress.
type Sweeper struct {
	store  ticket.Store
	maxAge time.Duration
	now    func() time.Time
	cron   *cron.Cron
	logger *slog.Logger
}

func New(store ticket.Store, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the sweep on the given cron schedule and blocks until
// the context is cancelled. The schedule accepts standard 5-field cron
// expressions or predefined ones like @hourly.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		if n, err := s.RunOnce(); err != nil {
			s.logger.Error("ticket sweep failed", "error", err)
		} else if n > 0 {
			s.logger.Info("ticket sweep", "escalated", n)
		}
	}); err != nil {
		return fmt.Errorf("sweep: invalid schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("ticket sweeper started", "schedule", schedule, "max_age", s.maxAge)

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("ticket sweeper stopped")
	return ctx.Err()
}

// RunOnce performs a single sweep and returns how many tickets were
// moved to in-progress.
func (s *Sweeper) RunOnce() (int, error) {
	open := protocol.TicketOpen
	stale, err := s.store.List(ticket.Filter{
		Status:       &open,
		OpenedBefore: s.now().Add(-s.maxAge),
	})
	if err != nil {
		return 0, fmt.Errorf("sweep: list stale tickets: %w", err)
	}

	moved := 0
	for _, t := range stale {
		if err := s.store.UpdateStatus(t.ID, protocol.TicketInProgress); err != nil {
			s.logger.Warn("could not escalate stale ticket", "id", t.ID, "error", err)
			continue
		}
		s.logger.Info("stale ticket escalated",
			"id", t.ID,
			"owner", t.Owner,
			"department", t.Department,
			"age", s.now().Sub(t.CreatedAt).Round(time.Minute))
		moved++
	}
	return moved, nil
}
