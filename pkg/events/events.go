package events

import "time"

type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     uint      `json:"orderID"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
	Total       string    `json:"total"`
	At          time.Time `json:"at"`
}

type ProductEvent struct {
	Type      string    `json:"type"`
	ProductID uint      `json:"productID"`
	Name      string    `json:"name,omitempty"`
	At        time.Time `json:"at"`
}
