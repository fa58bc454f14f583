package ticket

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/tenant-assistant/internal/domain"
	"github.com/spec-kit/tenant-assistant/internal/events"
	"github.com/spec-kit/tenant-assistant/internal/repository"
	"github.com/spec-kit/tenant-assistant/internal/sink"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// DetailField names a draft field that can be filled incrementally.
type DetailField string

const (
	FieldCategory    DetailField = "category"
	FieldDescription DetailField = "description"
	FieldPriority    DetailField = "priority"
)

// Manager owns Ticket records and drives their lifecycle. Drafts are held
// in memory per user; a ticket only becomes durable once confirmed, and a
// draft that outlives its session is discarded, never silently submitted.
type Manager struct {
	mu     sync.Mutex
	drafts map[string]*domain.Ticket

	repo       repository.TicketRepository
	sink       sink.Sink
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// Dependencies bundles collaborators for the manager.
type Dependencies struct {
	Repo       repository.TicketRepository
	Sink       sink.Sink
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewManager constructs the manager.
func NewManager(deps Dependencies) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		drafts:     make(map[string]*domain.Ticket),
		repo:       deps.Repo,
		sink:       deps.Sink,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusDraft:        {domain.TicketStatusSubmitted},
	domain.TicketStatusSubmitted:    {domain.TicketStatusAcknowledged, domain.TicketStatusClosed},
	domain.TicketStatusAcknowledged: {domain.TicketStatusClosed},
	domain.TicketStatusClosed:       {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// StartDraft opens a DRAFT ticket for the user, seeded from the reporting
// message. Returns a conflict if a draft is already in progress.
func (m *Manager) StartDraft(userID, description string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.drafts[userID]; exists {
		return nil, apperrors.NewConflict("a maintenance request is already in progress", nil)
	}
	if priority == "" {
		priority = domain.PriorityNormal
	}
	draft := &domain.Ticket{
		UserID:      userID,
		Category:    category,
		Description: strings.TrimSpace(description),
		Priority:    priority,
		Status:      domain.TicketStatusDraft,
	}
	m.drafts[userID] = draft
	m.publish(events.Event{Type: events.EventDraftStarted, UserID: userID})
	return cloneTicket(draft), nil
}

// Draft returns the user's in-progress draft, if any.
func (m *Manager) Draft(userID string) (*domain.Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[userID]
	if !ok {
		return nil, false
	}
	return cloneTicket(draft), true
}

// AddDetail fills one draft field. Description details accumulate rather
// than overwrite, matching how tenants report symptoms across turns.
func (m *Manager) AddDetail(userID string, field DetailField, value string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, ok := m.drafts[userID]
	if !ok {
		return nil, apperrors.NewNotFound("draft ticket", map[string]any{"user_id": userID})
	}
	value = strings.TrimSpace(value)
	switch field {
	case FieldCategory:
		draft.Category = domain.TicketCategory(value)
	case FieldPriority:
		draft.Priority = domain.TicketPriority(value)
	case FieldDescription:
		if draft.Description == "" {
			draft.Description = value
		} else {
			draft.Description += "\n" + value
		}
	default:
		return nil, apperrors.NewValidationError("unknown ticket field", map[string]any{"field": string(field)})
	}
	return cloneTicket(draft), nil
}

// Confirm promotes the user's draft to SUBMITTED: mints the ticket ID,
// persists the record locally and hands it to the submission sink. Local
// durability never depends on the sink ack; a failed publish is logged and
// retried by the submission worker.
func (m *Manager) Confirm(ctx context.Context, userID string) (*domain.Ticket, error) {
	m.mu.Lock()
	draft, ok := m.drafts[userID]
	if !ok {
		m.mu.Unlock()
		return nil, apperrors.NewNotFound("draft ticket", map[string]any{"user_id": userID})
	}
	if missing := missingFields(draft); len(missing) > 0 {
		m.mu.Unlock()
		return nil, apperrors.NewIncompleteTicketFields(missing)
	}
	if !isValidTransition(draft.Status, domain.TicketStatusSubmitted) {
		m.mu.Unlock()
		return nil, apperrors.NewConflict("ticket cannot be submitted in current status", nil)
	}
	// Claim the draft before releasing the lock so a concurrent confirm
	// cannot submit it twice.
	delete(m.drafts, userID)
	m.mu.Unlock()

	seq, err := m.repo.NextSequence(ctx)
	if err != nil {
		m.restoreDraft(userID, draft)
		return nil, fmt.Errorf("mint ticket id: %w", err)
	}

	now := m.now()
	ticket := *draft
	ticket.ID = fmt.Sprintf("MAINT-%06d", seq)
	ticket.Status = domain.TicketStatusSubmitted
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	if err := m.repo.Create(ctx, &ticket); err != nil {
		m.restoreDraft(userID, draft)
		return nil, fmt.Errorf("persist ticket: %w", err)
	}

	m.publish(events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		UserID:   userID,
		Payload: events.TicketSubmittedPayload{
			Category:    ticket.Category,
			Priority:    ticket.Priority,
			Description: ticket.Description,
		},
	})

	if m.sink != nil {
		if err := m.sink.Submit(ctx, ticket); err != nil {
			m.logger.Warn("submission sink unavailable, ticket queued for retry",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else if err := m.repo.MarkPublished(ctx, ticket.ID); err != nil {
			m.logger.Warn("mark published failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return &ticket, nil
}

// Cancel discards the user's draft. Reports whether a draft existed.
func (m *Manager) Cancel(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[userID]; !ok {
		return false
	}
	delete(m.drafts, userID)
	m.publish(events.Event{Type: events.EventTicketCancelled, UserID: userID})
	return true
}

// DiscardExpired drops drafts for users whose sessions expired.
func (m *Manager) DiscardExpired(userIDs []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for _, userID := range userIDs {
		if _, ok := m.drafts[userID]; ok {
			delete(m.drafts, userID)
			dropped++
			m.publish(events.Event{Type: events.EventTicketCancelled, UserID: userID})
		}
	}
	return dropped
}

// Acknowledge records the backend picking a ticket up. External transition,
// reported in, never computed here.
func (m *Manager) Acknowledge(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return m.externalTransition(ctx, ticketID, domain.TicketStatusAcknowledged, events.EventTicketAcknowledged)
}

// Close records the backend closing a ticket.
func (m *Manager) Close(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return m.externalTransition(ctx, ticketID, domain.TicketStatusClosed, events.EventTicketClosed)
}

// Status returns the persisted ticket for a status lookup.
func (m *Manager) Status(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return m.repo.GetByID(ctx, ticketID)
}

// History lists the user's submitted tickets, newest first.
func (m *Manager) History(ctx context.Context, userID string, limit int) ([]domain.Ticket, error) {
	return m.repo.ListByUser(ctx, userID, limit)
}

func (m *Manager) externalTransition(ctx context.Context, ticketID string, next domain.TicketStatus, eventType events.EventType) (*domain.Ticket, error) {
	current, err := m.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(current.Status, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": string(current.Status),
			"to":   string(next),
		})
	}
	updated, err := m.repo.UpdateStatus(ctx, ticketID, next)
	if err != nil {
		return nil, err
	}
	m.publish(events.Event{
		Type:     eventType,
		TicketID: ticketID,
		UserID:   updated.UserID,
		Payload:  events.TicketStatusPayload{OldStatus: current.Status, NewStatus: next},
	})
	return updated, nil
}

func (m *Manager) restoreDraft(userID string, draft *domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[userID]; !ok {
		m.drafts[userID] = draft
	}
}

func (m *Manager) publish(event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	_ = m.dispatcher.Publish(context.Background(), event)
}

func missingFields(draft *domain.Ticket) []string {
	var missing []string
	if draft.Category == "" {
		missing = append(missing, string(FieldCategory))
	}
	if draft.Description == "" {
		missing = append(missing, string(FieldDescription))
	}
	return missing
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	return &clone
}
