package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/services"
)

// OrderHandler accepts pre-composed orders from the web storefront
type OrderHandler struct {
	finalizer *services.OrderFinalizer
	phones    services.PhoneNormalizer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(finalizer *services.OrderFinalizer, phones services.PhoneNormalizer) *OrderHandler {
	return &OrderHandler{finalizer: finalizer, phones: phones}
}

// PlaceOrderRequest is the storefront order submission
type PlaceOrderRequest struct {
	Message   string `json:"message"`
	Town      string `json:"town"`
	UserPhone string `json:"userPhone"`
}

// PlaceOrder fans the order message out to admins and riders and confirms to the customer
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing order message",
		})
	}

	result, err := h.finalizer.Dispatch(c.UserContext(), services.DirectOrder{
		Message:   req.Message,
		Town:      req.Town,
		UserPhone: h.phones.Normalize(req.UserPhone),
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	delivered := 0
	for _, d := range result.Deliveries {
		if d.Delivered() {
			delivered++
		}
	}
	if len(result.Deliveries) > 0 && delivered == 0 {
		slog.Error("❌ Direct order could not be delivered to anyone", "recipients", len(result.Deliveries))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Failed to send WhatsApp messages",
			"result": result,
		})
	}

	slog.Info("🛒 Direct order dispatched", "delivered", delivered, "recipients", len(result.Deliveries))
	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}
