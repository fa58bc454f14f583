package dto

// WebhookRequest carries the normalized inbound message from the messaging
// channel adapter. The adapter has already verified the sender's identity
// and deduplicated redeliveries before calling in.
type WebhookRequest struct {
	From string `json:"from" form:"From"`
	Body string `json:"body" form:"Body"`
}

// WebhookResponse is the structured reply returned to the channel adapter.
// Long replies are split into parts that fit the channel's message limit.
type WebhookResponse struct {
	Parts            []string `json:"parts"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
	CitedChunkIDs    []string `json:"cited_chunk_ids,omitempty"`
}

// TicketStatusUpdateRequest is posted by the external ticketing backend to
// report ACKNOWLEDGED and CLOSED transitions.
type TicketStatusUpdateRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the wire shape for a ticket record.
type TicketResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
