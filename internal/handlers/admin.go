package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/services"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

// SessionCounter reports live conversation sessions
type SessionCounter interface {
	Count() int
	CountByStep() map[models.Step]int
}

// AdminHandler handles admin operations
type AdminHandler struct {
	store    storage.Store
	commands *services.CommandRouter
	catalog  services.MenuLister
	sessions SessionCounter
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, commands *services.CommandRouter, catalog services.MenuLister, sessions SessionCounter) *AdminHandler {
	return &AdminHandler{
		store:    store,
		commands: commands,
		catalog:  catalog,
		sessions: sessions,
	}
}

var validStatuses = map[string]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusConfirmed: true,
	models.OrderStatusDelivered: true,
	models.OrderStatusCancelled: true,
}

// ListOrders lists orders, optionally filtered by ?status=
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	status := strings.ToLower(c.Query("status"))
	if status != "" && !validStatuses[status] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Unknown status %q", status),
		})
	}

	orders, err := h.store.GetOrdersByStatus(c.UserContext(), status)
	if err != nil {
		slog.Error("Failed to list orders", "status", status, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch orders",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetOrder returns one order by reference
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	reference := c.Params("reference")

	order, err := h.store.GetOrder(c.UserContext(), reference)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	if err != nil {
		slog.Error("Failed to fetch order", "reference", reference, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch order",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

// UpdateOrderStatus applies a status the same way a WhatsApp command does
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	reference := c.Params("reference")

	var req struct {
		Status string `json:"status"` // "confirmed", "delivered" or "cancelled"
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	switch req.Status {
	case models.OrderStatusConfirmed, models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status must be 'confirmed', 'delivered' or 'cancelled'",
		})
	}

	result, err := h.commands.ApplyStatus(c.UserContext(), reference, req.Status)
	if err != nil {
		slog.Error("Failed to update order status", "reference", reference, "status", req.Status, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update order",
		})
	}
	if !result.Found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	if result.Rejected {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  fmt.Sprintf("Order is %s and cannot be moved to %s", result.PreviousStatus, req.Status),
			"result": result,
		})
	}

	slog.Info("📋 Order status updated via admin API", "reference", result.Command.Reference, "status", req.Status)
	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

// ListPartners lists partner applications, optionally filtered by ?kind=
func (h *AdminHandler) ListPartners(c *fiber.Ctx) error {
	kind := strings.ToLower(c.Query("kind"))

	apps, err := h.store.GetPartnerApplications(c.UserContext(), kind)
	if err != nil {
		slog.Error("Failed to list partner applications", "kind", kind, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch partner applications",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"partners": apps,
		"count":    len(apps),
	})
}

// GetMenu returns the merged catalog as customers see it
func (h *AdminHandler) GetMenu(c *fiber.Ctx) error {
	items := h.catalog.ListAvailable(c.UserContext())
	return c.JSON(fiber.Map{
		"success": true,
		"items":   items,
		"count":   len(items),
	})
}

// CreateMenuItem adds a dish to the database menu
func (h *AdminHandler) CreateMenuItem(c *fiber.Ctx) error {
	var item models.MenuItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || item.Price <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and a positive price are required",
		})
	}
	item.ID = 0

	if err := h.store.CreateMenuItem(c.UserContext(), &item); err != nil {
		slog.Error("Failed to create menu item", "name", item.Name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create menu item",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item":    item,
	})
}

// GetSessionStats reports live conversation sessions
func (h *AdminHandler) GetSessionStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"active":  h.sessions.Count(),
		"by_step": h.sessions.CountByStep(),
	})
}
