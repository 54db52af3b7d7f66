package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Order represents a finalized food order placed through WhatsApp
type Order struct {
	// gorm.Model gives us ID, CreatedAt, UpdatedAt, DeletedAt
	gorm.Model

	// Human-readable reference (e.g. CHP-04217), the only key used by status commands
	Reference       string      `json:"reference" gorm:"uniqueIndex;not null"`
	UserPhone       string      `json:"user_phone" gorm:"index"` // phone captured during the dialogue
	SenderPhone     string      `json:"sender_phone"`            // WhatsApp identity that placed the order
	DeliveryAddress string      `json:"delivery_address"`
	Town            string      `json:"town,omitempty"`
	Items           []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	// Pricing (whole currency units, FCFA has no minor unit)
	Total    int64  `json:"total"`
	Currency string `json:"currency"`

	// Status tracking
	Status string `json:"status" gorm:"index;default:'pending'"` // "pending", "confirmed", "delivered", "cancelled"

	// Timestamps
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// OrderItem is a single line of an order
type OrderItem struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	OrderID   uint   `json:"-" gorm:"index"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Subtotal returns quantity x unit price
func (i OrderItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// OrderStatus constants
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// BeforeCreate normalizes the reference and fills in defaults
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	o.Reference = strings.ToUpper(strings.TrimSpace(o.Reference))
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// ComputeTotal sums the item subtotals into Total
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	o.Total = total
	return total
}

// MarkStatus sets the status and the matching timestamp
func (o *Order) MarkStatus(status string, at time.Time) {
	o.Status = status
	switch status {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &at
	case OrderStatusDelivered:
		o.DeliveredAt = &at
	case OrderStatusCancelled:
		o.CancelledAt = &at
	}
}
