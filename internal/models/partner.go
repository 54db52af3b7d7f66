package models

import (
	"time"

	"gorm.io/gorm"
)

// PartnerApplication is a vendor or rider sign-up collected over WhatsApp
type PartnerApplication struct {
	gorm.Model

	Kind        string `json:"kind" gorm:"index;not null"` // "vendor" or "rider"
	Name        string `json:"name"`
	Business    string `json:"business,omitempty"` // vendors only
	Location    string `json:"location"`
	Phone       string `json:"phone"`
	SenderPhone string `json:"sender_phone" gorm:"index"`
	Status      string `json:"status" gorm:"default:'pending'"` // "pending", "approved", "rejected"

	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// Partner kinds
const (
	PartnerKindVendor = "vendor"
	PartnerKindRider  = "rider"

	PartnerStatusPending = "pending"
)
