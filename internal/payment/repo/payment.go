package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lulocustoms/shop/internal/models"
	pkgdb "github.com/lulocustoms/shop/pkg/db"
)

var ErrAlreadyProcessed = errors.New("payment already processed")

type GormRepo struct {
	DB *gorm.DB
}

// Oversell is a product whose stock could not cover a paid order.
type Oversell struct {
	ProductID uint
	Stock     int
	Quantity  int
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Where("p24_session_id = ?", sessionID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) SetSession(ctx context.Context, orderID uint, sessionID string) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("p24_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) IsProcessed(ctx context.Context, orderID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.PaymentNotification{}).Where("order_id = ?", orderID).Count(&n).Error
	return n > 0, err
}

// MarkFailed moves a pending order to failed. Orders in any other state are left alone.
func (r *GormRepo) MarkFailed(ctx context.Context, orderID uint, transactionID string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, models.PaymentPending).
		Updates(map[string]any{
			"payment_status":     models.PaymentFailed,
			"p24_transaction_id": transactionID,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkPaid records the confirmation, marks the order paid and takes the ordered
// quantities out of stock, all in one transaction. A second call for the same order
// returns ErrAlreadyProcessed and changes nothing.
func (r *GormRepo) MarkPaid(ctx context.Context, orderID uint, sessionID, transactionID string, at time.Time) ([]Oversell, error) {
	var oversold []Oversell

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note := models.PaymentNotification{
			OrderID:       orderID,
			SessionID:     sessionID,
			TransactionID: transactionID,
			Status:        models.PaymentPaid,
			ProcessedAt:   at,
		}
		if err := tx.Create(&note).Error; err != nil {
			if pkgdb.IsUniqueViolation(err) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("record notification: %w", err)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", orderID, models.PaymentPaid).
			Updates(map[string]any{
				"payment_status":     models.PaymentPaid,
				"p24_transaction_id": transactionID,
			})
		if res.Error != nil {
			return fmt.Errorf("mark order paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyProcessed
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		// fixed lock order across concurrent confirmations
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

		for _, it := range items {
			var p models.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, it.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("lock product %d: %w", it.ProductID, err)
			}

			stock := p.Stock - it.Quantity
			if stock < 0 {
				oversold = append(oversold, Oversell{ProductID: p.ID, Stock: p.Stock, Quantity: it.Quantity})
				stock = 0
			}
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", stock).Error; err != nil {
				return fmt.Errorf("decrement stock %d: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return oversold, nil
}
