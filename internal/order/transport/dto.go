package transport

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lulocustoms/shop/internal/models"
)

type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerEmail   string             `json:"customer_email"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerAddress string             `json:"customer_address"`
	Items           []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type OrderItemDTO struct {
	ID           uint        `json:"id"`
	ProductID    uint        `json:"product_id"`
	ProductName  string      `json:"product_name"`
	ProductPrice json.Number `json:"product_price"`
	Quantity     int         `json:"quantity"`
}

type OrderDTO struct {
	ID               uint           `json:"id"`
	OrderNumber      string         `json:"order_number"`
	CustomerName     string         `json:"customer_name"`
	CustomerEmail    string         `json:"customer_email"`
	CustomerPhone    string         `json:"customer_phone"`
	CustomerAddress  string         `json:"customer_address"`
	TotalPrice       json.Number    `json:"total_price"`
	PaymentStatus    string         `json:"payment_status"`
	P24TransactionID *string        `json:"p24_transaction_id"`
	P24SessionID     *string        `json:"p24_session_id"`
	CreatedAt        time.Time      `json:"created_at"`
	Items            []OrderItemDTO `json:"items,omitempty"`
}

// PublicOrderDTO is the projection shown to anonymous callers. It carries no customer data.
type PublicOrderDTO struct {
	OrderNumber   string      `json:"order_number"`
	TotalPrice    json.Number `json:"total_price"`
	PaymentStatus string      `json:"payment_status"`
	CreatedAt     time.Time   `json:"created_at"`
}

func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func FormatOrder(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		CustomerPhone:    o.CustomerPhone,
		CustomerAddress:  o.CustomerAddress,
		TotalPrice:       Money(o.TotalPrice),
		PaymentStatus:    string(o.PaymentStatus),
		P24TransactionID: o.P24TransactionID,
		P24SessionID:     o.P24SessionID,
		CreatedAt:        o.CreatedAt,
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: Money(it.ProductPrice),
			Quantity:     it.Quantity,
		})
	}
	return dto
}

func FormatOrders(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, FormatOrder(&orders[i]))
	}
	return out
}

func FormatOrderPublic(o *models.Order) PublicOrderDTO {
	return PublicOrderDTO{
		OrderNumber:   o.OrderNumber,
		TotalPrice:    Money(o.TotalPrice),
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
	}
}
