package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/choptime-backend/internal/config"
)

// TwilioMessenger sends WhatsApp messages through the Twilio REST API
type TwilioMessenger struct {
	client *twilio.RestClient
	from   string // Twilio WhatsApp number, "whatsapp:+14155238886"
}

// NewTwilioMessenger creates a Twilio messenger from config
func NewTwilioMessenger(cfg config.TwilioConfig) (*TwilioMessenger, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("missing Twilio credentials: %w", ErrMessengerNotConfigured)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	from := cfg.From
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}

	return &TwilioMessenger{
		client: client,
		from:   from,
	}, nil
}

// twilioAddress formats a canonical number as a Twilio WhatsApp address
func twilioAddress(to string) string {
	return "whatsapp:+" + strings.TrimPrefix(to, "+")
}

// Send sends a WhatsApp message via Twilio
func (t *TwilioMessenger) Send(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(twilioAddress(to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("❌ Failed to send WhatsApp message", "to", to, "error", err)
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("✅ WhatsApp message sent", "to", to, "sid", sid)
	return nil
}
