package events

import (
	"time"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDraftStarted       EventType = "ticket_draft_started"
	EventTicketSubmitted    EventType = "ticket_submitted"
	EventTicketCancelled    EventType = "ticket_cancelled"
	EventTicketAcknowledged EventType = "ticket_acknowledged"
	EventTicketClosed       EventType = "ticket_closed"
)

// Event represents a domain event emitted by the ticket manager.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Description string                `json:"description"`
}

// TicketStatusPayload payload for externally reported transitions.
type TicketStatusPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
