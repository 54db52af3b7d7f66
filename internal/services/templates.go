package services

import (
	"fmt"
	"strings"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
)

// Fixed replies
const (
	msgOnboarding = "👋 Welcome to ChopTime!\n\n" +
		"🍽️ Type *MENU* (or HI) to see today's dishes and order.\n" +
		"🤝 Type *JOIN* to register as a vendor or delivery rider."
	msgMenuUnavailable = "😔 Sorry, no dishes are available right now. Please try again a little later."
	msgAskQuantity     = "🔢 How many portions would you like? Reply with a number (e.g. 2)."
	msgBadQuantity     = "❌ Please reply with a whole number of portions between 1 and 999."
	msgAskAddress      = "🏠 Where should we deliver? Send your delivery address (area, street, landmark)."
	msgBadAddress      = "❌ Please send a delivery address so our rider can find you."
	msgAskPhone        = "📞 What phone number should the rider call? (e.g. 6XX XXX XXX)"
	msgBadPhone        = "❌ That doesn't look like a valid mobile number. Please send a 9-digit number starting with 6."
	msgOrderFailed     = "😔 Sorry, we couldn't place your order right now. Please send your phone number again to retry."
	msgRestart         = "🤔 Sorry, I didn't get that. Type *MENU* to start a new order or *JOIN* to become a partner."
	msgMainChoice      = "🤝 Partner with ChopTime!\n\n1️⃣ Vendor (restaurant / kitchen)\n2️⃣ Delivery rider\n\nReply 1 or 2."
	msgPartnerFailed   = "😔 Sorry, we couldn't save your registration. Please send your phone number again to retry."
	msgStorefrontAck   = "✅ Thanks! Your ChopTime order was received and passed to our delivery team."
)

// menuText renders a numbered menu, 1..N in catalog order
func menuText(items []models.MenuItem, currency string) string {
	var b strings.Builder
	b.WriteString("🍲 *ChopTime Menu*\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s - %s", i+1, item.Name, formatAmount(item.Price, currency))
		if tags := itemTags(item); tags != "" {
			b.WriteString(" " + tags)
		}
		b.WriteString("\n")
		if item.Description != "" {
			fmt.Fprintf(&b, "   _%s_\n", item.Description)
		}
	}
	b.WriteString("\nReply with the number of the dish you want.")
	return b.String()
}

func itemTags(item models.MenuItem) string {
	var tags []string
	if item.Popular {
		tags = append(tags, "⭐")
	}
	if item.Spicy {
		tags = append(tags, "🌶️")
	}
	if item.Vegetarian {
		tags = append(tags, "🥬")
	}
	return strings.Join(tags, "")
}

func badDishText(n int) string {
	return fmt.Sprintf("❌ Please reply with a dish number between 1 and %d.", n)
}

func dishSelectedText(item models.MenuItem, currency string) string {
	return fmt.Sprintf("👍 %s (%s each).\n\n%s", item.Name, formatAmount(item.Price, currency), msgAskQuantity)
}

// formatAmount prints whole currency units with thousands separators
func formatAmount(amount int64, currency string) string {
	s := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	res := string(out)
	if neg {
		res = "-" + res
	}
	return res + " " + currency
}

// orderSummaryText is the full order card sent to admins and riders
func orderSummaryText(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *New ChopTime Order* %s\n\n", order.Reference)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s x%d - %s\n", item.Name, item.Quantity, formatAmount(item.Subtotal(), order.Currency))
	}
	fmt.Fprintf(&b, "\n💰 Total: %s\n", formatAmount(order.Total, order.Currency))
	fmt.Fprintf(&b, "🏠 Address: %s\n", order.DeliveryAddress)
	if order.Town != "" {
		fmt.Fprintf(&b, "📍 Town: %s\n", order.Town)
	}
	fmt.Fprintf(&b, "📞 Phone: %s\n", order.UserPhone)
	if order.SenderPhone != "" && order.SenderPhone != order.UserPhone {
		fmt.Fprintf(&b, "💬 WhatsApp: %s\n", order.SenderPhone)
	}
	fmt.Fprintf(&b, "\nReply CONFIRM %s, DELIVERED %s or CANCEL %s", order.Reference, order.Reference, order.Reference)
	return b.String()
}

// orderConfirmationText is the short receipt sent to the customer
func orderConfirmationText(order *models.Order) string {
	return fmt.Sprintf("🛒 Thanks for ordering with ChopTime!\n\nYour order ID is *%s*.\nTotal: %s\n\nWe'll prepare it and send it to your location soon.",
		order.Reference, formatAmount(order.Total, order.Currency))
}

// statusUpdateText is the customer notification for a status change
func statusUpdateText(reference, status string) string {
	switch status {
	case models.OrderStatusConfirmed:
		return fmt.Sprintf("✅ Your ChopTime order %s has been confirmed and is being prepared.", reference)
	case models.OrderStatusDelivered:
		return fmt.Sprintf("🎉 Your ChopTime order %s has been delivered. Enjoy your meal!", reference)
	case models.OrderStatusCancelled:
		return fmt.Sprintf("❌ Your ChopTime order %s has been cancelled. Type MENU to order again.", reference)
	default:
		return fmt.Sprintf("ℹ️ Your ChopTime order %s is now %s.", reference, status)
	}
}

func statusRejectedText(reference, from, to string) string {
	return fmt.Sprintf("⚠️ Order %s is %s and cannot be moved to %s.", reference, from, to)
}

// PendingReminderText lists orders still waiting for confirmation
func PendingReminderText(orders []*models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ %d order(s) still pending:\n", len(orders))
	for _, order := range orders {
		fmt.Fprintf(&b, "• %s - %s (%s)\n", order.Reference, formatAmount(order.Total, order.Currency), order.DeliveryAddress)
	}
	b.WriteString("\nReply CONFIRM <ref> or CANCEL <ref>.")
	return b.String()
}

func partnerSummaryText(app *models.PartnerApplication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤝 *New %s application*\n\n", capitalize(app.Kind))
	fmt.Fprintf(&b, "👤 Name: %s\n", app.Name)
	if app.Business != "" {
		fmt.Fprintf(&b, "🏪 Business: %s\n", app.Business)
	}
	fmt.Fprintf(&b, "📍 Location: %s\n", app.Location)
	fmt.Fprintf(&b, "📞 Phone: %s\n", app.Phone)
	return b.String()
}

func partnerThanksText(kind string) string {
	return fmt.Sprintf("🎉 Thanks for registering as a ChopTime %s! Our team will contact you shortly.", kind)
}

// SessionExpiredText tells a customer their idle session was dropped
func SessionExpiredText() string {
	return "⌛ Your ChopTime session timed out. Type MENU whenever you're ready to order."
}

func deliveryCardText(o *StorefrontOrder) string {
	return fmt.Sprintf("🚴 *New Delivery Order*\n📦 %s\n🏠 %s\n👤 %s\n📞 %s", o.Food, o.Address, o.Customer, o.Phone)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func directOrderConfirmationText() string {
	return "🛒 Thanks for ordering with ChopTime! Your order was received and will be delivered soon."
}
