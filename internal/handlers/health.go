package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string
	store   Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store Pinger) *HealthHandler {
	return &HealthHandler{
		Version: version,
		store:   store,
	}
}

// Root describes the service
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "ChopTime Order Bot is running.",
		"version": h.Version,
		"endpoints": fiber.Map{
			"health":       "/health",
			"webhook":      "/webhook",
			"twilio":       "/webhook/whatsapp",
			"ultramsg":     "/ultramsg-webhook",
			"place_order":  "/api/place-order",
			"admin":        "/api/admin",
			"test_webhook": "/test/whatsapp",
		},
	})
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unhealthy",
			"service": "ChopTime Backend",
			"version": h.Version,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "OK",
		"service": "ChopTime Backend",
		"version": h.Version,
	})
}
