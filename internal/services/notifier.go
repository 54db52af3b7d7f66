package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Recipient roles
const (
	RoleAdmin    = "admin"
	RoleDelivery = "delivery"
	RoleUser     = "user"
)

// DeliveryOutcome is the result of one outbound send
type DeliveryOutcome struct {
	Recipient string `json:"recipient"`
	Role      string `json:"role"`
	Error     string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Delivered reports whether the send succeeded
func (o DeliveryOutcome) Delivered() bool {
	return o.Err == nil
}

// DeliveryRouting selects delivery recipients, optionally per town
type DeliveryRouting struct {
	Default []string
	Towns   map[string][]string // keyed by lower-case town name
}

// NewDeliveryRouting normalizes all phones and town names
func NewDeliveryRouting(phones PhoneNormalizer, defaults []string, towns map[string][]string) DeliveryRouting {
	r := DeliveryRouting{
		Default: phones.NormalizeAll(defaults),
		Towns:   make(map[string][]string, len(towns)),
	}
	for town, list := range towns {
		key := strings.ToLower(strings.TrimSpace(town))
		if key == "" {
			continue
		}
		r.Towns[key] = append(r.Towns[key], phones.NormalizeAll(list)...)
	}
	return r
}

// RouteTown returns the configured town mentioned in the address, or "".
// The longest matching town name wins.
func (r DeliveryRouting) RouteTown(address string) string {
	addr := strings.ToLower(address)
	towns := make([]string, 0, len(r.Towns))
	for town := range r.Towns {
		towns = append(towns, town)
	}
	sort.Slice(towns, func(i, j int) bool {
		if len(towns[i]) != len(towns[j]) {
			return len(towns[i]) > len(towns[j])
		}
		return towns[i] < towns[j]
	})
	for _, town := range towns {
		if strings.Contains(addr, town) {
			return town
		}
	}
	return ""
}

// Recipients returns the town's list when it is known and not empty, otherwise the default list
func (r DeliveryRouting) Recipients(town string) []string {
	if list := r.Towns[strings.ToLower(strings.TrimSpace(town))]; len(list) > 0 {
		return list
	}
	return r.Default
}

// All returns every delivery phone, default list first
func (r DeliveryRouting) All() []string {
	out := append([]string(nil), r.Default...)
	for _, list := range r.Towns {
		out = append(out, list...)
	}
	return out
}

// Notifier fans messages out to admins and delivery riders
type Notifier struct {
	messenger Messenger
	admins    []string
	routing   DeliveryRouting
}

// NewNotifier creates a notifier. Admin phones must already be normalized.
func NewNotifier(messenger Messenger, admins []string, routing DeliveryRouting) *Notifier {
	return &Notifier{
		messenger: messenger,
		admins:    admins,
		routing:   routing,
	}
}

// Admins returns the admin recipients
func (n *Notifier) Admins() []string {
	return n.admins
}

// Routing returns the delivery routing table
func (n *Notifier) Routing() DeliveryRouting {
	return n.routing
}

type target struct {
	to   string
	role string
}

// Broadcast sends body to all admins and the delivery recipients for town.
// Every send is attempted; failures are reported in the outcomes, in recipient order.
func (n *Notifier) Broadcast(ctx context.Context, town, body string) []DeliveryOutcome {
	var targets []target
	for _, a := range n.admins {
		targets = append(targets, target{to: a, role: RoleAdmin})
	}
	for _, d := range n.routing.Recipients(town) {
		targets = append(targets, target{to: d, role: RoleDelivery})
	}
	return n.sendAll(ctx, dedupTargets(targets), body)
}

// NotifyAdmins sends body to admins only
func (n *Notifier) NotifyAdmins(ctx context.Context, body string) []DeliveryOutcome {
	var targets []target
	for _, a := range n.admins {
		targets = append(targets, target{to: a, role: RoleAdmin})
	}
	return n.sendAll(ctx, dedupTargets(targets), body)
}

// NotifyDelivery sends body to the delivery recipients for town only
func (n *Notifier) NotifyDelivery(ctx context.Context, town, body string) []DeliveryOutcome {
	var targets []target
	for _, d := range n.routing.Recipients(town) {
		targets = append(targets, target{to: d, role: RoleDelivery})
	}
	return n.sendAll(ctx, dedupTargets(targets), body)
}

// NotifyUser sends a single message to a customer
func (n *Notifier) NotifyUser(ctx context.Context, to, body string) DeliveryOutcome {
	return n.send(ctx, target{to: to, role: RoleUser}, body)
}

func (n *Notifier) sendAll(ctx context.Context, targets []target, body string) []DeliveryOutcome {
	outcomes := make([]DeliveryOutcome, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			outcomes[i] = n.send(ctx, t, body)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (n *Notifier) send(ctx context.Context, t target, body string) DeliveryOutcome {
	out := DeliveryOutcome{Recipient: t.to, Role: t.role}
	if err := n.messenger.Send(ctx, t.to, body); err != nil {
		slog.Error("Notification failed", "to", t.to, "role", t.role, "error", err)
		out.Err = err
		out.Error = err.Error()
	}
	return out
}

func dedupTargets(targets []target) []target {
	seen := make(map[string]struct{}, len(targets))
	out := targets[:0]
	for _, t := range targets {
		if t.to == "" {
			continue
		}
		if _, dup := seen[t.to]; dup {
			continue
		}
		seen[t.to] = struct{}{}
		out = append(out, t)
	}
	return out
}
