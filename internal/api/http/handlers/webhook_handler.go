package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tenant-assistant/internal/api/dto"
	"github.com/spec-kit/tenant-assistant/internal/dialogue"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// channelMessageLimit is the per-message character budget of the messaging
// channel; longer replies are split into numbered parts.
const channelMessageLimit = 1500

// Per-sender message cap. A sender over the cap gets a polite refusal
// instead of reaching the conversation engine.
const (
	rateLimitMax    = 10
	rateLimitWindow = 10 * time.Minute
)

const rateLimitReply = "You've sent quite a few messages in a short time. Please wait a few minutes and try again."

// WebhookHandler receives normalized inbound messages from the channel
// adapter and returns the engine's reply.
type WebhookHandler struct {
	router  *dialogue.Router
	limiter *RateLimiter
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(router *dialogue.Router) *WebhookHandler {
	return &WebhookHandler{
		router:  router,
		limiter: NewRateLimiter(rateLimitMax, rateLimitWindow),
	}
}

// Receive POST /webhook.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var req dto.WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	userID := normalizeUserID(req.From)
	body := strings.TrimSpace(req.Body)
	if userID == "" || body == "" {
		return apperrors.NewValidationError("from and body required", nil)
	}

	if !h.limiter.Allow(userID) {
		return c.JSON(dto.WebhookResponse{Parts: []string{rateLimitReply}})
	}

	reply := h.router.Handle(c.UserContext(), userID, body)

	return c.JSON(dto.WebhookResponse{
		Parts:            splitLongMessage(reply.Text, channelMessageLimit),
		SuggestedActions: reply.SuggestedActions,
		CitedChunkIDs:    reply.CitedChunkIDs,
	})
}

// normalizeUserID strips channel prefixes and whitespace from the sender
// identity so one tenant maps to one session key.
func normalizeUserID(from string) string {
	from = strings.TrimPrefix(from, "whatsapp:")
	from = strings.ReplaceAll(from, " ", "")
	if len(from) == 10 && isDigits(from) {
		from = "+1" + from
	} else if strings.HasPrefix(from, "1") && !strings.HasPrefix(from, "+") {
		from = "+" + from
	}
	return from
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// splitLongMessage splits a reply into chunks that fit the channel limit,
// preferring paragraph breaks. Parts are numbered when there is more than
// one.
func splitLongMessage(message string, limit int) []string {
	if len(message) <= limit {
		return []string{message}
	}

	var parts []string
	var current strings.Builder
	for _, paragraph := range strings.Split(message, "\n\n") {
		if current.Len()+len(paragraph)+2 > limit && current.Len() > 0 {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(paragraph)
		current.WriteString("\n\n")
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		parts = append(parts, trimmed)
	}

	if len(parts) > 1 {
		for i := range parts {
			parts[i] = fmt.Sprintf("Part %d/%d:\n%s", i+1, len(parts), parts[i])
		}
	}
	return parts
}
