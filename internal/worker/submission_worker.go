package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tenant-assistant/internal/repository"
	"github.com/spec-kit/tenant-assistant/internal/sink"
)

// SubmissionWorker retries sink delivery for tickets that were durably
// SUBMITTED while the ticketing backend was unreachable. Delivery is
// at-least-once; the backend dedupes by ticket ID.
type SubmissionWorker struct {
	repo     repository.TicketRepository
	sink     sink.Sink
	interval time.Duration
	batch    int
	logger   *zap.Logger
}

// NewSubmissionWorker constructs the worker.
func NewSubmissionWorker(repo repository.TicketRepository, snk sink.Sink, interval time.Duration, logger *zap.Logger) *SubmissionWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SubmissionWorker{repo: repo, sink: snk, interval: interval, batch: 50, logger: logger}
}

// Run retries on a ticker until ctx is cancelled.
func (w *SubmissionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RetryOnce(ctx)
		}
	}
}

// RetryOnce attempts delivery for one batch of unpublished tickets.
func (w *SubmissionWorker) RetryOnce(ctx context.Context) {
	pending, err := w.repo.ListUnpublished(ctx, w.batch)
	if err != nil {
		w.logger.Warn("list unpublished tickets failed", zap.Error(err))
		return
	}
	for _, ticket := range pending {
		if err := w.sink.Submit(ctx, ticket); err != nil {
			w.logger.Warn("sink retry failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if err := w.repo.MarkPublished(ctx, ticket.ID); err != nil {
			w.logger.Warn("mark published failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
}
