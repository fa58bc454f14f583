package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
type TicketStatus string

const (
	TicketStatusDraft        TicketStatus = "DRAFT"
	TicketStatusSubmitted    TicketStatus = "SUBMITTED"
	TicketStatusAcknowledged TicketStatus = "ACKNOWLEDGED"
	TicketStatusClosed       TicketStatus = "CLOSED"
)

// TicketCategory enumerates maintenance categories.
type TicketCategory string

const (
	CategoryPlumbing   TicketCategory = "plumbing"
	CategoryElectrical TicketCategory = "electrical"
	CategoryHVAC       TicketCategory = "hvac"
	CategoryAppliance  TicketCategory = "appliance"
	CategoryStructural TicketCategory = "structural"
	CategoryPest       TicketCategory = "pest"
	CategoryLocksmith  TicketCategory = "locksmith"
	CategoryCleaning   TicketCategory = "cleaning"
	CategoryOther      TicketCategory = "other"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	PriorityLow       TicketPriority = "low"
	PriorityNormal    TicketPriority = "normal"
	PriorityHigh      TicketPriority = "high"
	PriorityEmergency TicketPriority = "emergency"
)

// Ticket is the aggregate for maintenance requests. A ticket is built
// incrementally in DRAFT during a multi-turn dialogue and becomes durable
// only once SUBMITTED. ACKNOWLEDGED and CLOSED are reported by the external
// ticketing backend, never computed here.
type Ticket struct {
	ID          string
	UserID      string
	Category    TicketCategory
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RequiredFieldsComplete reports whether the draft holds everything needed
// for submission.
func (t *Ticket) RequiredFieldsComplete() bool {
	return t.Category != "" && t.Description != ""
}
