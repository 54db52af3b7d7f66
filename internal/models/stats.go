package models

import "time"

// OrderStats is a point-in-time summary of the order book
type OrderStats struct {
	TotalOrders  int            `json:"total_orders"`
	ByStatus     map[string]int `json:"by_status"`
	ByTown       map[string]int `json:"by_town"`
	Revenue      int64          `json:"revenue"`       // delivered orders only
	PendingValue int64          `json:"pending_value"` // pending + confirmed
	Since        *time.Time     `json:"since,omitempty"`
}

// SummarizeOrders aggregates orders created at or after since (zero means all)
func SummarizeOrders(orders []*Order, since time.Time) OrderStats {
	stats := OrderStats{
		ByStatus: make(map[string]int),
		ByTown:   make(map[string]int),
	}
	if !since.IsZero() {
		stats.Since = &since
	}

	for _, o := range orders {
		if !since.IsZero() && o.CreatedAt.Before(since) {
			continue
		}
		stats.TotalOrders++
		stats.ByStatus[o.Status]++

		town := o.Town
		if town == "" {
			town = "unrouted"
		}
		stats.ByTown[town]++

		switch o.Status {
		case OrderStatusDelivered:
			stats.Revenue += o.Total
		case OrderStatusPending, OrderStatusConfirmed:
			stats.PendingValue += o.Total
		}
	}
	return stats
}
