package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voucher-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/tickets", cfg.Tickets.IssueTicket)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Post("/redeem", cfg.Tickets.Redeem)
	api.Get("/qr/:id.png", cfg.Tickets.QRCode)
}
