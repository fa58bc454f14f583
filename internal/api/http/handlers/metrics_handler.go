package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tenant-assistant/internal/observability"
)

// MetricsHandler exposes the in-memory counters for operators. Counters
// reset on restart; anything longer-lived belongs in the log stream.
type MetricsHandler struct {
	metrics *observability.Metrics
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Snapshot GET /internal/metrics.
func (h *MetricsHandler) Snapshot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"messages_by_intent": h.metrics.MessageCounts(),
		"failures_by_code":   h.metrics.FailureCounts(),
	})
}
