package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
)

// DatabaseStore implements Store on top of gorm (PostgreSQL or SQLite)
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given gorm connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Order operations
func (d *DatabaseStore) CreateOrder(ctx context.Context, order *models.Order) error {
	order.Reference = normalizeReference(order.Reference)
	err := d.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("create order %s: %w", order.Reference, err)
	}
	return nil
}

func (d *DatabaseStore) GetOrder(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := d.db.WithContext(ctx).
		Preload("Items").
		Where("reference = ?", normalizeReference(reference)).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", reference, err)
	}
	return &order, nil
}

func (d *DatabaseStore) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Order{}).
		Unscoped().
		Where("reference = ?", normalizeReference(reference)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check reference %s: %w", reference, err)
	}
	return count > 0, nil
}

func (d *DatabaseStore) UpdateOrderStatus(ctx context.Context, reference string, status string) error {
	now := time.Now()
	updates := map[string]interface{}{"status": status}
	switch status {
	case models.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case models.OrderStatusDelivered:
		updates["delivered_at"] = now
	case models.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}

	result := d.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ?", normalizeReference(reference)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update order %s: %w", reference, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) GetOrderUserPhone(ctx context.Context, reference string) (string, error) {
	var order models.Order
	err := d.db.WithContext(ctx).
		Select("user_phone").
		Where("reference = ?", normalizeReference(reference)).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user phone for %s: %w", reference, err)
	}
	return order.UserPhone, nil
}

func (d *DatabaseStore) GetOrdersByStatus(ctx context.Context, status string) ([]*models.Order, error) {
	var orders []*models.Order
	query := d.db.WithContext(ctx).Preload("Items").Order("id")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders by status %q: %w", status, err)
	}
	return orders, nil
}

func (d *DatabaseStore) GetPendingOrdersOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list stale pending orders: %w", err)
	}
	return orders, nil
}

// Menu operations
func (d *DatabaseStore) GetAvailableMenuItems(ctx context.Context) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	err := d.db.WithContext(ctx).
		Where("available = ?", true).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

func (d *DatabaseStore) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := d.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create menu item %q: %w", item.Name, err)
	}
	return nil
}

// Partner operations
func (d *DatabaseStore) CreatePartnerApplication(ctx context.Context, app *models.PartnerApplication) error {
	if app.Status == "" {
		app.Status = models.PartnerStatusPending
	}
	if err := d.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("create %s application: %w", app.Kind, err)
	}
	return nil
}

func (d *DatabaseStore) GetPartnerApplications(ctx context.Context, kind string) ([]*models.PartnerApplication, error) {
	var apps []*models.PartnerApplication
	query := d.db.WithContext(ctx).Order("id")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list partner applications: %w", err)
	}
	return apps, nil
}

func (d *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
