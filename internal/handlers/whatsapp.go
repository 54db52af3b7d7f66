package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	whatsappService *services.WhatsAppService
	verifyToken     string
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(whatsappService *services.WhatsAppService, verifyToken string) *WhatsAppHandler {
	return &WhatsAppHandler{
		whatsappService: whatsappService,
		verifyToken:     verifyToken,
	}
}

// VerifyWebhook answers the Cloud API subscription handshake
func (h *WhatsAppHandler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		slog.Info("✅ Webhook verified")
		return c.Status(fiber.StatusOK).SendString(challenge)
	}
	slog.Warn("Webhook verification rejected", "mode", mode)
	return c.SendStatus(fiber.StatusForbidden)
}

// CloudWebhookPayload is the Cloud API notification envelope
type CloudWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string         `json:"messaging_product"`
				Messages         []CloudMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// CloudMessage is one inbound Cloud API message
type CloudMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// HandleCloudWebhook processes Cloud API message notifications
func (h *WhatsAppHandler) HandleCloudWebhook(c *fiber.Ctx) error {
	var payload CloudWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		slog.Warn("Error parsing Cloud API webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Text == nil || msg.Text.Body == "" {
					continue
				}
				h.process(c, msg.From, msg.Text.Body)
			}
		}
	}

	return c.SendStatus(fiber.StatusOK)
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // whatsapp:+2376XXXXXXXX
	To         string `form:"To"`
	Body       string `form:"Body"`
	NumMedia   string `form:"NumMedia"`
}

// HandleTwilioWebhook processes incoming Twilio WhatsApp messages
func (h *WhatsAppHandler) HandleTwilioWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		slog.Warn("Error parsing Twilio webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no body
	if payload.Body != "" && payload.From != "" {
		h.process(c, payload.From, payload.Body)
	}
	return c.SendStatus(fiber.StatusOK)
}

// UltraMsgMessage is the message part of an UltraMsg webhook
type UltraMsgMessage struct {
	From   string `json:"from"` // 2376XXXXXXXX@c.us
	To     string `json:"to"`
	Body   string `json:"body"`
	Type   string `json:"type"`
	FromMe bool   `json:"fromMe"`
}

// UltraMsgWebhookPayload accepts both the wrapped ("data") and the flat UltraMsg format
type UltraMsgWebhookPayload struct {
	EventType string           `json:"event_type"`
	Data      *UltraMsgMessage `json:"data,omitempty"`
	UltraMsgMessage
}

// HandleUltraMsgWebhook processes UltraMsg message notifications
func (h *WhatsAppHandler) HandleUltraMsgWebhook(c *fiber.Ctx) error {
	var payload UltraMsgWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		slog.Warn("Error parsing UltraMsg webhook", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	msg := payload.UltraMsgMessage
	if payload.Data != nil {
		msg = *payload.Data
	}
	if msg.FromMe || msg.Body == "" || msg.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	h.process(c, msg.From, msg.Body)
	return c.SendStatus(fiber.StatusOK)
}

func (h *WhatsAppHandler) process(c *fiber.Ctx, from, body string) {
	if _, err := h.whatsappService.ProcessMessage(c.UserContext(), from, body); err != nil {
		slog.Error("Error processing message", "from", from, "error", err)
	}
}

// TestWebhookPayload is a plain JSON message for local testing
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil || payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	slog.Info("🧪 Test webhook received", "from", payload.From)

	result, err := h.whatsappService.ProcessMessage(c.UserContext(), payload.From, payload.Message)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}
