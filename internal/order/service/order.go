package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/internal/order/repo"
	"github.com/lulocustoms/shop/internal/order/transport"
	"github.com/lulocustoms/shop/pkg/apperr"
	"github.com/lulocustoms/shop/pkg/events"
	"github.com/lulocustoms/shop/pkg/logging"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var validate = validator.New()

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Now    func() time.Time
	// NewNumber overrides order number generation.
	NewNumber func(now time.Time) string
}

type ListFilter struct {
	Status models.PaymentStatus
	Limit  int
	Offset int
}

func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%05d", now.Year(), rand.IntN(100000))
}

func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OrderService) Create(ctx context.Context, req transport.CreateOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create")

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.CustomerAddress = strings.TrimSpace(req.CustomerAddress)

	switch {
	case req.CustomerName == "":
		return nil, apperr.Validation("Customer name is required")
	case !ValidEmail(req.CustomerEmail):
		return nil, apperr.Validation("Valid email is required")
	case req.CustomerPhone == "":
		return nil, apperr.Validation("Phone number is required")
	case req.CustomerAddress == "":
		return nil, apperr.Validation("Address is required")
	case len(req.Items) == 0:
		return nil, apperr.Validation("Order must contain at least one item")
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	requested := make(map[uint]int, len(req.Items))

	for _, it := range req.Items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			return nil, apperr.Validation("Invalid item data")
		}

		product, err := s.Repo.GetProduct(ctx, it.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		if product == nil || !product.Active {
			return nil, apperr.Validation(fmt.Sprintf("Product with ID %d not found or inactive", it.ProductID))
		}

		requested[product.ID] += it.Quantity
		if requested[product.ID] > product.Stock {
			return nil, apperr.Validation("Insufficient stock for product: " + product.Name)
		}

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			Quantity:     it.Quantity,
		})
	}

	order := &models.Order{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		TotalPrice:      total,
		PaymentStatus:   models.PaymentPending,
	}

	gen := s.NewNumber
	if gen == nil {
		gen = NewOrderNumber
	}
	now := s.now()

	if err := s.Repo.CreateOrder(ctx, order, items, func() string { return gen(now) }); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	l.Info("order_created", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.TotalPrice.StringFixed(2))
	s.publish(ctx, "order_created", order)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	return o, err
}

func (s *OrderService) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, apperr.Validation("Order number is required")
	}
	o, err := s.Repo.GetOrderByNumber(ctx, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	return o, err
}

// List returns one page of orders and the number of orders matching the filter.
func (s *OrderService) List(ctx context.Context, f ListFilter) (int64, []models.Order, ListFilter, error) {
	if f.Status != "" && !f.Status.Valid() {
		return 0, nil, f, apperr.Validation("Invalid status")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	total, orders, err := s.Repo.ListOrders(ctx, f.Status, f.Offset, f.Limit)
	if err != nil {
		return 0, nil, f, fmt.Errorf("list orders: %w", err)
	}
	return total, orders, f, nil
}

func (s *OrderService) publish(ctx context.Context, typ string, o *models.Order) {
	if s.Events == nil {
		return
	}
	ev := events.OrderEvent{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.PaymentStatus),
		Total:       o.TotalPrice.StringFixed(2),
		At:          s.now().UTC(),
	}
	if err := s.Events.PublishEvent(ctx, events.TopicOrders, o.OrderNumber, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", typ, "order_id", o.ID, "error", err)
	}
}
