package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/config"
	"github.com/Ananth-NQI/choptime-backend/internal/handlers"
	"github.com/Ananth-NQI/choptime-backend/internal/middleware"
)

// Handlers groups the HTTP handlers served by the app
type Handlers struct {
	Health    *handlers.HealthHandler
	WhatsApp  *handlers.WhatsAppHandler
	Order     *handlers.OrderHandler
	Admin     *handlers.AdminHandler
	Analytics *handlers.AnalyticsHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h Handlers, cfg *config.Config) {
	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.Check)

	// ========== WEBHOOK ROUTES ==========
	// Cloud API: handshake and messages on the same path
	app.Get("/webhook", h.WhatsApp.VerifyWebhook)
	app.Post("/webhook", h.WhatsApp.HandleCloudWebhook)

	app.Post("/ultramsg-webhook", h.WhatsApp.HandleUltraMsgWebhook)

	skipValidation := cfg.IsDevelopment() || cfg.Server.DisableWebhookValidation
	if skipValidation {
		app.Post("/webhook/whatsapp", h.WhatsApp.HandleTwilioWebhook)
		slog.Warn("⚠️  Twilio webhook validation DISABLED")
	} else {
		app.Post("/webhook/whatsapp", middleware.ValidateTwilioSignature(cfg.WhatsApp.Twilio.AuthToken), h.WhatsApp.HandleTwilioWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if skipValidation {
		app.Post("/test/whatsapp", h.WhatsApp.HandleTestWebhook)
	}

	// ========== API ROUTES ==========
	api := app.Group("/api")
	api.Post("/place-order", h.Order.PlaceOrder)

	// ========== ADMIN ROUTES ==========
	admin := api.Group("/admin", middleware.RequireAdminToken(cfg.Server.AdminAPIToken))
	admin.Get("/orders", h.Admin.ListOrders)
	admin.Get("/orders/:reference", h.Admin.GetOrder)
	admin.Post("/orders/:reference/status", h.Admin.UpdateOrderStatus)
	admin.Get("/partners", h.Admin.ListPartners)
	admin.Get("/menu", h.Admin.GetMenu)
	admin.Post("/menu", h.Admin.CreateMenuItem)
	admin.Get("/sessions", h.Admin.GetSessionStats)

	// Analytics
	admin.Get("/stats", h.Analytics.GetOrderStats)
	admin.Get("/stats/daily", h.Analytics.GetDailySummary)
	admin.Get("/stats/weekly", h.Analytics.GetWeeklySummary)
}
