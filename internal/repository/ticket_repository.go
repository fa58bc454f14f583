package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// TicketRepository encapsulates persistence of submitted tickets. DRAFT
// tickets never reach the repository; they live only in the ticket manager
// until confirmed.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Ticket, error)
	// NextSequence returns a monotonically increasing value used to mint
	// ticket IDs.
	NextSequence(ctx context.Context) (int64, error)
	// ListUnpublished returns submitted tickets whose sink publish has not
	// been confirmed yet, oldest first.
	ListUnpublished(ctx context.Context, limit int) ([]domain.Ticket, error)
	MarkPublished(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the pgx-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, user_id, category, description, priority, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.UserID,
		ticket.Category,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, user_id, category, description, priority, status, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Category,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, user_id, category, description, priority, status, created_at, updated_at
        FROM tickets WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_seq')`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *ticketRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, user_id, category, description, priority, status, created_at, updated_at
        FROM tickets WHERE status=$1 AND published_at IS NULL
        ORDER BY created_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusSubmitted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) MarkPublished(ctx context.Context, id string) error {
	const query = `UPDATE tickets SET published_at=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, time.Now(), id)
	return err
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Category,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
