package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/models"
	pkgdb "github.com/lulocustoms/shop/pkg/db"
)

const maxOrderNumberAttempts = 10

var ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateOrder inserts the order and its items in one transaction. The order number comes
// from next and is regenerated when the unique index reports a collision.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem, next func() string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted := false
		for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
			order.ID = 0
			order.OrderNumber = next()

			err := tx.Transaction(func(sp *gorm.DB) error {
				return sp.Omit("Items").Create(order).Error
			})
			if err == nil {
				inserted = true
				break
			}
			if !pkgdb.IsUniqueViolation(err) {
				return fmt.Errorf("insert order: %w", err)
			}
		}
		if !inserted {
			return ErrOrderNumberExhausted
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		order.Items = items
		return nil
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Where("order_number = ?", number).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, status models.PaymentStatus, offset, limit int) (int64, []models.Order, error) {
	filtered := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&models.Order{})
		if status != "" {
			q = q.Where("payment_status = ?", status)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Order, 0, limit)
	if err := filtered().Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
