package domain

import "time"

// SessionState enumerates dialogue states for a user session.
type SessionState string

const (
	SessionStateIdle            SessionState = "IDLE"
	SessionStateAwaitingDetails SessionState = "AWAITING_TICKET_DETAILS"
	SessionStateAwaitingConfirm SessionState = "AWAITING_TICKET_CONFIRM"
)

// Turn is one completed (message, reply) exchange kept in short-term memory.
type Turn struct {
	Message string    `json:"message"`
	Reply   string    `json:"reply"`
	At      time.Time `json:"at"`
}

// Session holds per-user conversational state. Exactly one active session
// exists per user; all state transitions go through the dialogue router.
type Session struct {
	UserID        string       `json:"user_id"`
	State         SessionState `json:"state"`
	PendingIntent Intent       `json:"pending_intent,omitempty"`
	Memory        []Turn       `json:"memory,omitempty"`
	LastActive    time.Time    `json:"last_active"`
}

// Remember appends a completed turn, trimming memory to the last max entries.
func (s *Session) Remember(message, reply string, now time.Time, max int) {
	s.Memory = append(s.Memory, Turn{Message: message, Reply: reply, At: now})
	if max > 0 && len(s.Memory) > max {
		s.Memory = s.Memory[len(s.Memory)-max:]
	}
}

// Reset returns the session to IDLE and clears short-term memory.
func (s *Session) Reset() {
	s.State = SessionStateIdle
	s.PendingIntent = ""
	s.Memory = nil
}

// Expired reports whether the session has been inactive longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.LastActive) > ttl
}

// Clone returns a deep copy so a mutation can be rolled back by discarding
// the copy.
func (s *Session) Clone() *Session {
	clone := *s
	if s.Memory != nil {
		clone.Memory = make([]Turn, len(s.Memory))
		copy(clone.Memory, s.Memory)
	}
	return &clone
}
