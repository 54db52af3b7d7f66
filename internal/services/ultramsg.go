package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/config"
)

// UltraMsgMessenger sends chat messages through the UltraMsg gateway
type UltraMsgMessenger struct {
	endpoint string
	token    string
}

// NewUltraMsgMessenger creates an UltraMsg messenger from config
func NewUltraMsgMessenger(cfg config.UltraMsgConfig) (*UltraMsgMessenger, error) {
	if cfg.InstanceID == "" || cfg.Token == "" {
		return nil, fmt.Errorf("missing UltraMsg credentials: %w", ErrMessengerNotConfigured)
	}
	endpoint := fmt.Sprintf("%s/%s/messages/chat", strings.TrimRight(cfg.BaseURL, "/"), cfg.InstanceID)
	return &UltraMsgMessenger{endpoint: endpoint, token: cfg.Token}, nil
}

type ultraMsgChat struct {
	Token    string `json:"token"`
	To       string `json:"to"`
	Body     string `json:"body"`
	Priority int    `json:"priority"`
}

// Send posts a chat message to UltraMsg
func (m *UltraMsgMessenger) Send(ctx context.Context, to string, body string) error {
	agent := fiber.Post(m.endpoint)
	agent.JSON(ultraMsgChat{Token: m.token, To: to, Body: body, Priority: 10})

	if err := postAgent(ctx, agent); err != nil {
		slog.Error("❌ Failed to send UltraMsg message", "to", to, "error", err)
		return fmt.Errorf("ultramsg send to %s: %w", to, err)
	}
	slog.Debug("✅ UltraMsg message sent", "to", to)
	return nil
}

// NewMessenger builds the configured outbound messenger wrapped with retries.
// Missing credentials fall back to LogMessenger so development works offline.
func NewMessenger(cfg *config.Config) Messenger {
	var (
		inner Messenger
		err   error
	)
	switch cfg.WhatsApp.Provider {
	case config.ProviderTwilio:
		inner, err = NewTwilioMessenger(cfg.WhatsApp.Twilio)
	case config.ProviderCloudAPI:
		inner, err = NewCloudAPIMessenger(cfg.WhatsApp.CloudAPI)
	case config.ProviderUltraMsg:
		inner, err = NewUltraMsgMessenger(cfg.WhatsApp.UltraMsg)
	default:
		inner = LogMessenger{}
	}
	if err != nil {
		slog.Warn("⚠️  Messenger not initialized, messages will only be logged", "provider", cfg.WhatsApp.Provider, "error", err)
		return LogMessenger{}
	}
	slog.Info("✅ Messenger initialized", "provider", cfg.WhatsApp.Provider)
	return NewRetryMessenger(inner, cfg.Retry.Attempts, cfg.Retry.Backoff)
}
