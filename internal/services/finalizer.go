package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

// FinalizationResult describes a finalized order and every notification sent for it
type FinalizationResult struct {
	Reference        string            `json:"reference"`
	Order            *models.Order     `json:"order,omitempty"`
	Deliveries       []DeliveryOutcome `json:"deliveries"`
	UserConfirmation *DeliveryOutcome  `json:"user_confirmation,omitempty"`
}

// FailedDeliveries returns the outcomes that did not succeed
func (r *FinalizationResult) FailedDeliveries() []DeliveryOutcome {
	var failed []DeliveryOutcome
	for _, d := range r.Deliveries {
		if !d.Delivered() {
			failed = append(failed, d)
		}
	}
	if r.UserConfirmation != nil && !r.UserConfirmation.Delivered() {
		failed = append(failed, *r.UserConfirmation)
	}
	return failed
}

// OrderFinalizer persists completed drafts and fans out notifications
type OrderFinalizer struct {
	store    storage.Store
	refs     *ReferenceGenerator
	notifier *Notifier
	currency string
}

// NewOrderFinalizer creates a finalizer
func NewOrderFinalizer(store storage.Store, refs *ReferenceGenerator, notifier *Notifier, currency string) *OrderFinalizer {
	return &OrderFinalizer{
		store:    store,
		refs:     refs,
		notifier: notifier,
		currency: currency,
	}
}

// Finalize turns a complete draft into a pending order. Only the store write
// can fail the call; notification failures are reported in the result.
func (f *OrderFinalizer) Finalize(ctx context.Context, sender string, draft models.OrderDraft) (*FinalizationResult, error) {
	if draft.Item == nil || draft.Quantity < 1 {
		return nil, fmt.Errorf("incomplete order draft")
	}

	order := &models.Order{
		UserPhone:       draft.Phone,
		SenderPhone:     sender,
		DeliveryAddress: draft.Address,
		Town:            f.notifier.Routing().RouteTown(draft.Address),
		Currency:        f.currency,
		Status:          models.OrderStatusPending,
		Items: []models.OrderItem{{
			Name:      draft.Item.Name,
			Quantity:  draft.Quantity,
			UnitPrice: draft.Item.Price,
		}},
	}
	order.ComputeTotal()

	if err := f.create(ctx, order); err != nil {
		return nil, err
	}
	slog.Info("✅ Order created", "reference", order.Reference, "sender", sender, "total", order.Total, "town", order.Town)

	result := &FinalizationResult{
		Reference:  order.Reference,
		Order:      order,
		Deliveries: f.notifier.Broadcast(ctx, order.Town, orderSummaryText(order)),
	}

	confirmTo := sender
	if confirmTo == "" {
		confirmTo = order.UserPhone
	}
	confirmation := f.notifier.NotifyUser(ctx, confirmTo, orderConfirmationText(order))
	result.UserConfirmation = &confirmation

	return result, nil
}

// create writes the order, retrying once with a fresh reference if the unique index rejects it
func (f *OrderFinalizer) create(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		order.Reference, err = f.refs.Next(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate reference: %w", err)
		}
		err = f.store.CreateOrder(ctx, order)
		if !errors.Is(err, storage.ErrDuplicateReference) {
			break
		}
		slog.Warn("Order reference collision, regenerating", "reference", order.Reference)
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// DirectOrder is a pre-composed order message submitted over HTTP
type DirectOrder struct {
	Message   string
	Town      string
	UserPhone string
}

// Dispatch fans a pre-composed order message out like a finalized order, then
// confirms to the user when a phone was given. Nothing is persisted.
func (f *OrderFinalizer) Dispatch(ctx context.Context, order DirectOrder) (*FinalizationResult, error) {
	if strings.TrimSpace(order.Message) == "" {
		return nil, fmt.Errorf("missing order message")
	}

	town := strings.TrimSpace(order.Town)
	if town == "" {
		town = f.notifier.Routing().RouteTown(order.Message)
	}

	result := &FinalizationResult{
		Deliveries: f.notifier.Broadcast(ctx, town, order.Message),
	}
	if order.UserPhone != "" {
		confirmation := f.notifier.NotifyUser(ctx, order.UserPhone, directOrderConfirmationText())
		result.UserConfirmation = &confirmation
	}
	return result, nil
}
