package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrEmptySender is returned for inbound messages without a usable sender id
var ErrEmptySender = errors.New("empty sender")

// Inbound message routes
const (
	RouteCommand      = "command"
	RouteStorefront   = "storefront"
	RouteConversation = "conversation"
	RouteSkipped      = "skipped"
)

// InboundResult describes how one inbound message was handled
type InboundResult struct {
	Sender       string         `json:"sender"`
	Route        string         `json:"route"`
	Command      *CommandResult `json:"command,omitempty"`
	Storefront   *RelayResult   `json:"storefront,omitempty"`
	Conversation *StepResult    `json:"conversation,omitempty"`
}

// WhatsAppService routes inbound WhatsApp texts: status commands from
// privileged senders first, then storefront orders, then the conversation.
type WhatsAppService struct {
	phones   PhoneNormalizer
	commands *CommandRouter
	relay    *StorefrontRelay
	engine   *ConversationEngine
}

// NewWhatsAppService creates a new WhatsApp service
func NewWhatsAppService(phones PhoneNormalizer, commands *CommandRouter, relay *StorefrontRelay, engine *ConversationEngine) *WhatsAppService {
	return &WhatsAppService{
		phones:   phones,
		commands: commands,
		relay:    relay,
		engine:   engine,
	}
}

// ProcessMessage handles one inbound text. from may carry transport decoration
// such as "whatsapp:+" or "@c.us". Messages without text are skipped.
func (w *WhatsAppService) ProcessMessage(ctx context.Context, from, text string) (*InboundResult, error) {
	sender := w.phones.SenderIdentity(from)
	if sender == "" {
		return nil, ErrEmptySender
	}
	result := &InboundResult{Sender: sender}

	if strings.TrimSpace(text) == "" {
		result.Route = RouteSkipped
		return result, nil
	}

	slog.Debug("📨 Inbound message", "sender", sender, "length", len(text))

	if cmd, handled := w.commands.Handle(ctx, sender, text); handled {
		result.Route = RouteCommand
		result.Command = cmd
		return result, nil
	}

	if w.relay != nil {
		if relayed, ok := w.relay.Relay(ctx, sender, text); ok {
			result.Route = RouteStorefront
			result.Storefront = relayed
			return result, nil
		}
	}

	step, err := w.engine.Handle(ctx, sender, text)
	if err != nil {
		return nil, err
	}
	result.Route = RouteConversation
	result.Conversation = step
	return result, nil
}
