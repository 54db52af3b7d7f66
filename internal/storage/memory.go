package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
)

// MemoryStore holds all data in memory for development and tests
type MemoryStore struct {
	orders   map[string]*models.Order
	menu     []*models.MenuItem
	partners []*models.PartnerApplication

	// Mutexes for thread safety
	orderMu   sync.RWMutex
	menuMu    sync.RWMutex
	partnerMu sync.RWMutex

	// Counters for ID generation
	orderCounter   uint
	menuCounter    uint
	partnerCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*models.Order),
	}
}

func normalizeReference(reference string) string {
	return strings.ToUpper(strings.TrimSpace(reference))
}

// Order operations
func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	ref := normalizeReference(order.Reference)
	if _, exists := m.orders[ref]; exists {
		return ErrDuplicateReference
	}

	m.orderCounter++
	now := time.Now()
	order.ID = m.orderCounter
	order.Reference = ref
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	m.orders[ref] = cloneOrder(order)
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, reference string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[normalizeReference(reference)]
	if !exists {
		return nil, ErrNotFound
	}
	return cloneOrder(order), nil
}

func (m *MemoryStore) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	_, exists := m.orders[normalizeReference(reference)]
	return exists, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, reference string, status string) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[normalizeReference(reference)]
	if !exists {
		return ErrNotFound
	}
	now := time.Now()
	order.MarkStatus(status, now)
	order.UpdatedAt = now
	return nil
}

func (m *MemoryStore) GetOrderUserPhone(ctx context.Context, reference string) (string, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[normalizeReference(reference)]
	if !exists {
		return "", ErrNotFound
	}
	return order.UserPhone, nil
}

func (m *MemoryStore) GetOrdersByStatus(ctx context.Context, status string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, order := range m.orders {
		if status == "" || order.Status == status {
			orders = append(orders, cloneOrder(order))
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (m *MemoryStore) GetPendingOrdersOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, order := range m.orders {
		if order.Status == models.OrderStatusPending && order.CreatedAt.Before(cutoff) {
			orders = append(orders, cloneOrder(order))
		}
	}
	sortOrders(orders)
	return orders, nil
}

// Menu operations
func (m *MemoryStore) GetAvailableMenuItems(ctx context.Context) ([]*models.MenuItem, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	var items []*models.MenuItem
	for _, item := range m.menu {
		if item.Available {
			cp := *item
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *MemoryStore) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	m.menuMu.Lock()
	defer m.menuMu.Unlock()

	m.menuCounter++
	item.ID = m.menuCounter
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	m.menu = append(m.menu, &cp)
	return nil
}

// Partner operations
func (m *MemoryStore) CreatePartnerApplication(ctx context.Context, app *models.PartnerApplication) error {
	m.partnerMu.Lock()
	defer m.partnerMu.Unlock()

	m.partnerCounter++
	app.ID = m.partnerCounter
	if app.Status == "" {
		app.Status = models.PartnerStatusPending
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	cp := *app
	m.partners = append(m.partners, &cp)
	return nil
}

func (m *MemoryStore) GetPartnerApplications(ctx context.Context, kind string) ([]*models.PartnerApplication, error) {
	m.partnerMu.RLock()
	defer m.partnerMu.RUnlock()

	var apps []*models.PartnerApplication
	for _, app := range m.partners {
		if kind == "" || app.Kind == kind {
			cp := *app
			apps = append(apps, &cp)
		}
	}
	return apps, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func cloneOrder(order *models.Order) *models.Order {
	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	return &cp
}

func sortOrders(orders []*models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ID < orders[j].ID
	})
}
