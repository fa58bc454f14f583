package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// MemoryTicketRepository is a process-local TicketRepository used in tests
// and when no Postgres DSN is configured.
type MemoryTicketRepository struct {
	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	published map[string]bool
	seq       int64
}

// NewMemoryTicketRepository constructs an empty in-memory repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets:   make(map[string]domain.Ticket),
		published: make(map[string]bool),
	}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = time.Now()
	r.tickets[id] = ticket
	return &ticket, nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.UserID == userID {
			out = append(out, ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryTicketRepository) NextSequence(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *MemoryTicketRepository) ListUnpublished(_ context.Context, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for id, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusSubmitted && !r.published[id] {
			out = append(out, ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryTicketRepository) MarkPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[id] = true
	return nil
}
