package models

import "time"

// Step is a position in the WhatsApp dialogue
type Step string

// Ordering steps
const (
	StepInit          Step = "INIT"
	StepAwaitDish     Step = "AWAIT_DISH"
	StepAwaitQuantity Step = "AWAIT_QUANTITY"
	StepAwaitAddress  Step = "AWAIT_ADDRESS"
	StepAwaitPhone    Step = "AWAIT_PHONE"
)

// Onboarding steps
const (
	StepAwaitMainChoice     Step = "AWAIT_MAIN_CHOICE"
	StepAwaitVendorName     Step = "AWAIT_VENDOR_NAME"
	StepAwaitVendorBusiness Step = "AWAIT_VENDOR_BUSINESS"
	StepAwaitVendorLocation Step = "AWAIT_VENDOR_LOCATION"
	StepAwaitVendorPhone    Step = "AWAIT_VENDOR_PHONE"
	StepAwaitRiderName      Step = "AWAIT_RIDER_NAME"
	StepAwaitRiderLocation  Step = "AWAIT_RIDER_LOCATION"
	StepAwaitRiderPhone     Step = "AWAIT_RIDER_PHONE"
)

// Session is the in-process conversation state of one sender.
// It is never persisted.
type Session struct {
	Sender string `json:"sender"`
	Step   Step   `json:"step"`

	Order   OrderDraft   `json:"order"`
	Partner PartnerDraft `json:"partner"`

	// Menu is frozen when it is rendered so numeric replies stay stable
	Menu []MenuItem `json:"menu,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// OrderDraft is a partially filled order
type OrderDraft struct {
	Item     *MenuItem `json:"item,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
	Address  string    `json:"address,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}

// PartnerDraft is a partially filled partner application
type PartnerDraft struct {
	Kind     string `json:"kind,omitempty"`
	Name     string `json:"name,omitempty"`
	Business string `json:"business,omitempty"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// NewSession creates a session at INIT
func NewSession(sender string, now time.Time) *Session {
	return &Session{
		Sender:     sender,
		Step:       StepInit,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Clone returns a copy that does not share the menu slice
func (s *Session) Clone() *Session {
	cp := *s
	if s.Menu != nil {
		cp.Menu = append([]MenuItem(nil), s.Menu...)
	}
	if s.Order.Item != nil {
		item := *s.Order.Item
		cp.Order.Item = &item
	}
	return &cp
}
