package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const storefrontMarker = "ChopTime Order"

var (
	storefrontCustomer = regexp.MustCompile(`Customer: (.+)`)
	storefrontPhone    = regexp.MustCompile(`Phone: (.+)`)
	storefrontAddress  = regexp.MustCompile(`Address: (.+)`)
	storefrontFood     = regexp.MustCompile(`(?i)• (.+) -`)
)

// StorefrontOrder is an order composed by the web storefront and sent as a WhatsApp text
type StorefrontOrder struct {
	Customer string `json:"customer"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Food     string `json:"food"`
}

// IsStorefrontOrder reports whether text is a storefront order message
func IsStorefrontOrder(text string) bool {
	return strings.Contains(text, storefrontMarker)
}

// ParseStorefrontOrder extracts the delivery fields. Missing fields get placeholders.
func ParseStorefrontOrder(text string) *StorefrontOrder {
	return &StorefrontOrder{
		Customer: firstMatch(storefrontCustomer, text, "N/A"),
		Phone:    firstMatch(storefrontPhone, text, "N/A"),
		Address:  firstMatch(storefrontAddress, text, "N/A"),
		Food:     firstMatch(storefrontFood, text, "Food item not found"),
	}
}

func firstMatch(re *regexp.Regexp, text, fallback string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return fallback
	}
	if v := strings.TrimSpace(m[1]); v != "" {
		return v
	}
	return fallback
}

// StorefrontRelay forwards storefront orders to the delivery riders
type StorefrontRelay struct {
	notifier *Notifier
}

// NewStorefrontRelay creates a relay
func NewStorefrontRelay(notifier *Notifier) *StorefrontRelay {
	return &StorefrontRelay{notifier: notifier}
}

// RelayResult describes a forwarded storefront order
type RelayResult struct {
	Order      *StorefrontOrder  `json:"order"`
	Town       string            `json:"town,omitempty"`
	Deliveries []DeliveryOutcome `json:"deliveries"`
	Receipt    *DeliveryOutcome  `json:"receipt,omitempty"`
}

// Relay sends a delivery card for text to the riders of the address's town and,
// when sender is set, a receipt to the sender. ok is false if text is not a storefront order.
func (r *StorefrontRelay) Relay(ctx context.Context, sender, text string) (result *RelayResult, ok bool) {
	if !IsStorefrontOrder(text) {
		return nil, false
	}

	order := ParseStorefrontOrder(text)
	town := r.notifier.Routing().RouteTown(order.Address)
	result = &RelayResult{
		Order:      order,
		Town:       town,
		Deliveries: r.notifier.NotifyDelivery(ctx, town, deliveryCardText(order)),
	}
	if sender != "" {
		receipt := r.notifier.NotifyUser(ctx, sender, msgStorefrontAck)
		result.Receipt = &receipt
	}

	slog.Info("🚴 Forwarded storefront order to delivery", "sender", sender, "town", town, "recipients", len(result.Deliveries))
	return result, true
}
