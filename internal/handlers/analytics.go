package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

type AnalyticsHandler struct {
	store storage.Store
	now   func() time.Time
}

func NewAnalyticsHandler(store storage.Store) *AnalyticsHandler {
	return &AnalyticsHandler{
		store: store,
		now:   time.Now,
	}
}

// GetOrderStats summarizes all orders
func (h *AnalyticsHandler) GetOrderStats(c *fiber.Ctx) error {
	return h.summarize(c, time.Time{})
}

// GetDailySummary summarizes orders from the last 24 hours
func (h *AnalyticsHandler) GetDailySummary(c *fiber.Ctx) error {
	return h.summarize(c, h.now().Add(-24*time.Hour))
}

// GetWeeklySummary summarizes orders from the last 7 days
func (h *AnalyticsHandler) GetWeeklySummary(c *fiber.Ctx) error {
	return h.summarize(c, h.now().Add(-7*24*time.Hour))
}

func (h *AnalyticsHandler) summarize(c *fiber.Ctx, since time.Time) error {
	orders, err := h.store.GetOrdersByStatus(c.UserContext(), "")
	if err != nil {
		slog.Error("Failed to load orders for stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}
	return c.JSON(models.SummarizeOrders(orders, since))
}
