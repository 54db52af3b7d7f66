package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Ananth-NQI/choptime-backend/internal/config"
	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

// commandStatuses maps command tokens to the order status they set
var commandStatuses = map[string]string{
	"CONFIRM":   models.OrderStatusConfirmed,
	"DELIVERED": models.OrderStatusDelivered,
	"CANCEL":    models.OrderStatusCancelled,
}

// TransitionPolicy decides which order status changes are allowed
type TransitionPolicy string

const (
	// PolicyPermissive allows any known reference to move to any status
	PolicyPermissive TransitionPolicy = config.PolicyPermissive
	// PolicyStrict follows pending -> confirmed|cancelled, confirmed -> delivered|cancelled
	PolicyStrict TransitionPolicy = config.PolicyStrict
)

var strictTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

// Allows reports whether an order may move from one status to another
func (p TransitionPolicy) Allows(from, to string) bool {
	if p != PolicyStrict {
		return true
	}
	for _, s := range strictTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Command is a parsed status command
type Command struct {
	Token     string `json:"token"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// ParseCommand parses "<TOKEN> <reference>", splitting on the first whitespace
// run. Everything after it is the reference. ok is false for unknown tokens or
// a missing reference.
func ParseCommand(text string) (Command, bool) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	i := strings.IndexFunc(upper, unicode.IsSpace)
	if i < 0 {
		return Command{}, false
	}
	token := upper[:i]
	reference := strings.TrimSpace(upper[i:])
	status, known := commandStatuses[token]
	if !known || reference == "" {
		return Command{}, false
	}
	return Command{Token: token, Reference: reference, Status: status}, true
}

// looksLikeCommand reports whether text starts with a command token
func looksLikeCommand(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for token := range commandStatuses {
		if strings.HasPrefix(upper, token) {
			return true
		}
	}
	return false
}

// CommandResult describes an applied status command
type CommandResult struct {
	Command        Command          `json:"command"`
	Found          bool             `json:"found"`
	Rejected       bool             `json:"rejected"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	Notification   *DeliveryOutcome `json:"notification,omitempty"`
}

// CommandRouter executes status commands from privileged senders
type CommandRouter struct {
	privileged map[string]struct{}
	store      storage.Store
	notifier   *Notifier
	policy     TransitionPolicy
}

// NewCommandRouter creates a router. privileged must hold normalized sender identities.
func NewCommandRouter(privileged []string, store storage.Store, notifier *Notifier, policy TransitionPolicy) *CommandRouter {
	set := make(map[string]struct{}, len(privileged))
	for _, p := range privileged {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	if policy == "" {
		policy = PolicyPermissive
	}
	return &CommandRouter{
		privileged: set,
		store:      store,
		notifier:   notifier,
		policy:     policy,
	}
}

// IsPrivileged reports whether sender may issue status commands
func (r *CommandRouter) IsPrivileged(sender string) bool {
	_, ok := r.privileged[sender]
	return ok
}

// Policy returns the active transition policy
func (r *CommandRouter) Policy() TransitionPolicy {
	return r.policy
}

// Handle intercepts command messages from privileged senders. handled is false
// when the message should go to the conversation engine instead. Malformed
// commands are handled but ignored.
func (r *CommandRouter) Handle(ctx context.Context, sender, text string) (result *CommandResult, handled bool) {
	if !r.IsPrivileged(sender) || !looksLikeCommand(text) {
		return nil, false
	}

	cmd, ok := ParseCommand(text)
	if !ok {
		slog.Debug("Ignoring malformed command", "sender", sender)
		return nil, true
	}

	result, err := r.ApplyStatus(ctx, cmd.Reference, cmd.Status)
	if err != nil {
		slog.Error("❌ Status command failed", "sender", sender, "reference", cmd.Reference, "status", cmd.Status, "error", err)
		return nil, true
	}
	result.Command.Token = cmd.Token

	if result.Rejected {
		r.notifier.NotifyUser(ctx, sender, statusRejectedText(cmd.Reference, result.PreviousStatus, cmd.Status))
	}
	slog.Info("📋 Status command applied", "sender", sender, "reference", cmd.Reference, "status", cmd.Status, "found", result.Found, "rejected", result.Rejected)
	return result, true
}

// ApplyStatus moves an order to status and notifies its customer. A missing
// reference is not an error: Found is false and nobody is notified.
func (r *CommandRouter) ApplyStatus(ctx context.Context, reference, status string) (*CommandResult, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	result := &CommandResult{Command: Command{Reference: reference, Status: status}}

	if r.policy == PolicyStrict {
		order, err := r.store.GetOrder(ctx, reference)
		if errors.Is(err, storage.ErrNotFound) {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load order %s: %w", reference, err)
		}
		result.PreviousStatus = order.Status
		if !r.policy.Allows(order.Status, status) {
			result.Found = true
			result.Rejected = true
			return result, nil
		}
	}

	err := r.store.UpdateOrderStatus(ctx, reference, status)
	if errors.Is(err, storage.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", reference, err)
	}
	result.Found = true

	phone, err := r.store.GetOrderUserPhone(ctx, reference)
	if err != nil || phone == "" {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("Failed to look up order phone", "reference", reference, "error", err)
		}
		return result, nil
	}

	outcome := r.notifier.NotifyUser(ctx, phone, statusUpdateText(reference, status))
	result.Notification = &outcome
	return result, nil
}
