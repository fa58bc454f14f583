package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tenant-assistant/internal/api/dto"
	"github.com/spec-kit/tenant-assistant/internal/domain"
	"github.com/spec-kit/tenant-assistant/internal/ticket"
	apperrors "github.com/spec-kit/tenant-assistant/pkg/util/errorutil"
)

// TicketsHandler exposes the internal endpoints the external ticketing
// backend uses to report status transitions, plus read-only lookups.
type TicketsHandler struct {
	manager *ticket.Manager
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(manager *ticket.Manager) *TicketsHandler {
	return &TicketsHandler{manager: manager}
}

// UpdateStatus POST /internal/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.TicketStatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var (
		updated *domain.Ticket
		err     error
	)
	switch domain.TicketStatus(strings.ToUpper(req.Status)) {
	case domain.TicketStatusAcknowledged:
		updated, err = h.manager.Acknowledge(c.UserContext(), c.Params("id"))
	case domain.TicketStatusClosed:
		updated, err = h.manager.Close(c.UserContext(), c.Params("id"))
	default:
		return apperrors.NewValidationError("status must be ACKNOWLEDGED or CLOSED", nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(updated)})
}

// ListForUser GET /internal/users/:id/tickets.
func (h *TicketsHandler) ListForUser(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	tickets, err := h.manager.History(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /internal/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	found, err := h.manager.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketResponse(found)})
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Category:    string(t.Category),
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
}
