package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name        string          `gorm:"size:255;not null"                 json:"name"`
	Description string          `gorm:"type:text"                         json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"       json:"price"`
	ImageURL    *string         `gorm:"size:500"                          json:"image_url"`
	Stock       int             `gorm:"not null;check:stock >= 0"         json:"stock"`
	Active      bool            `gorm:"not null;index"                    json:"active"`
	CreatedAt   time.Time       `gorm:"index"                             json:"created_at"`
	UpdatedAt   time.Time       `                                         json:"updated_at"`
}

type Order struct {
	ID               uint            `gorm:"primaryKey"                              json:"id"`
	OrderNumber      string          `gorm:"size:32;not null;uniqueIndex"            json:"order_number"`
	CustomerName     string          `gorm:"size:255;not null"                       json:"customer_name"`
	CustomerEmail    string          `gorm:"size:255;not null"                       json:"customer_email"`
	CustomerPhone    string          `gorm:"size:50;not null"                        json:"customer_phone"`
	CustomerAddress  string          `gorm:"type:text;not null"                      json:"customer_address"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null"             json:"total_price"`
	PaymentStatus    PaymentStatus   `gorm:"size:20;not null;index;default:pending"  json:"payment_status"`
	P24TransactionID *string         `gorm:"column:p24_transaction_id;size:100"      json:"p24_transaction_id"`
	P24SessionID     *string         `gorm:"column:p24_session_id;size:100;index"   json:"p24_session_id"`
	CreatedAt        time.Time       `gorm:"index"                                   json:"created_at"`
	Items            []OrderItem     `gorm:"constraint:OnDelete:CASCADE"             json:"items"`
}

// OrderItem is a snapshot of a product line at checkout time.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey"                    json:"id"`
	OrderID      uint            `gorm:"not null;index"                json:"order_id"`
	ProductID    uint            `gorm:"not null"                      json:"product_id"`
	ProductName  string          `gorm:"size:255;not null"             json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"product_price"`
	Quantity     int             `gorm:"not null;check:quantity > 0"   json:"quantity"`
}

type AdminUser struct {
	ID           uint      `gorm:"primaryKey"                json:"id"`
	Email        string    `gorm:"size:255;not null;unique"  json:"email"`
	PasswordHash string    `gorm:"size:255;not null"         json:"-"`
	CreatedAt    time.Time `                                 json:"created_at"`
}

// PaymentNotification marks an order whose gateway confirmation has been applied.
type PaymentNotification struct {
	ID            uint          `gorm:"primaryKey"`
	OrderID       uint          `gorm:"not null;uniqueIndex"`
	SessionID     string        `gorm:"size:100;not null"`
	TransactionID string        `gorm:"size:100;not null"`
	Status        PaymentStatus `gorm:"size:20;not null"`
	ProcessedAt   time.Time     `gorm:"not null"`
}

func All() []any {
	return []any{&Product{}, &Order{}, &OrderItem{}, &AdminUser{}, &PaymentNotification{}}
}
