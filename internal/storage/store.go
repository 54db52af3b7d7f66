package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateReference is returned when an order reference is already taken
	ErrDuplicateReference = errors.New("duplicate order reference")
)

// Store defines the interface for storage operations
type Store interface {
	// Order operations
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, reference string) (*models.Order, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	UpdateOrderStatus(ctx context.Context, reference string, status string) error
	GetOrderUserPhone(ctx context.Context, reference string) (string, error)
	GetOrdersByStatus(ctx context.Context, status string) ([]*models.Order, error)
	GetPendingOrdersOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Order, error)

	// Menu operations
	GetAvailableMenuItems(ctx context.Context) ([]*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error

	// Partner operations
	CreatePartnerApplication(ctx context.Context, app *models.PartnerApplication) error
	GetPartnerApplications(ctx context.Context, kind string) ([]*models.PartnerApplication, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
