package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/config"
)

const outboundTimeout = 10 * time.Second

// CloudAPIMessenger sends text messages through the WhatsApp Cloud API (Graph)
type CloudAPIMessenger struct {
	endpoint string
	token    string
}

// NewCloudAPIMessenger creates a Cloud API messenger from config
func NewCloudAPIMessenger(cfg config.CloudAPIConfig) (*CloudAPIMessenger, error) {
	if cfg.Token == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("missing WhatsApp Cloud API credentials: %w", ErrMessengerNotConfigured)
	}
	endpoint := fmt.Sprintf("%s/%s/%s/messages",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.APIVersion, cfg.PhoneNumberID)
	return &CloudAPIMessenger{endpoint: endpoint, token: cfg.Token}, nil
}

type cloudAPITextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send posts a text message to the Graph messages endpoint
func (m *CloudAPIMessenger) Send(ctx context.Context, to string, body string) error {
	payload := cloudAPITextMessage{MessagingProduct: "whatsapp", To: to, Type: "text"}
	payload.Text.Body = body

	agent := fiber.Post(m.endpoint)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+m.token)
	agent.JSON(payload)

	if err := postAgent(ctx, agent); err != nil {
		slog.Error("❌ Failed to send Cloud API message", "to", to, "error", err)
		return fmt.Errorf("cloud api send to %s: %w", to, err)
	}
	slog.Debug("✅ Cloud API message sent", "to", to)
	return nil
}

// requestTimeout is outboundTimeout, shortened to ctx's deadline when that is sooner
func requestTimeout(ctx context.Context) time.Duration {
	timeout := outboundTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	return timeout
}

// postAgent executes a prepared fiber client request and treats non-2xx as failure.
// A done ctx fails before anything is sent.
func postAgent(ctx context.Context, agent *fiber.Agent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := requestTimeout(ctx)
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		return err
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("unexpected status %d: %s", code, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
