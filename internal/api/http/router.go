package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tenant-assistant/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Webhook *handlers.WebhookHandler
	Tickets *handlers.TicketsHandler
	Metrics *handlers.MetricsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhook", cfg.Webhook.Receive)

	internal := app.Group("/internal")
	internal.Get("/tickets/:id", cfg.Tickets.GetTicket)
	internal.Post("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	internal.Get("/users/:id/tickets", cfg.Tickets.ListForUser)
	internal.Get("/metrics", cfg.Metrics.Snapshot)
}
