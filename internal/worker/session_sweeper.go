package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tenant-assistant/internal/session"
	"github.com/spec-kit/tenant-assistant/internal/ticket"
)

// SessionSweeper periodically resets sessions inactive beyond the TTL and
// discards any DRAFT tickets tied to them. A draft that outlives its
// session is dropped, never silently submitted.
type SessionSweeper struct {
	sessions session.Store
	tickets  *ticket.Manager
	interval time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper constructs the sweeper.
func NewSessionSweeper(sessions session.Store, tickets *ticket.Manager, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionSweeper{sessions: sessions, tickets: tickets, interval: interval, logger: logger}
}

// Run sweeps on a ticker until ctx is cancelled.
func (w *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.SweepOnce(ctx, now)
		}
	}
}

// SweepOnce runs one sweep pass.
func (w *SessionSweeper) SweepOnce(ctx context.Context, now time.Time) {
	expired, err := w.sessions.ExpireSweep(ctx, now)
	if err != nil {
		w.logger.Warn("session sweep failed", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		return
	}
	dropped := w.tickets.DiscardExpired(expired)
	w.logger.Info("sessions expired",
		zap.Int("sessions", len(expired)),
		zap.Int("drafts_discarded", dropped),
	)
}
