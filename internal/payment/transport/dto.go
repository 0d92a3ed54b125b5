package transport

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type InitRequest struct {
	OrderID uint `json:"order_id"`
}

// NotificationForm is the form-encoded webhook body.
type NotificationForm struct {
	MerchantID   string `form:"merchantId"`
	PosID        string `form:"posId"`
	SessionID    string `form:"sessionId"`
	Amount       string `form:"amount"`
	OriginAmount string `form:"originAmount"`
	Currency     string `form:"currency"`
	OrderID      string `form:"orderId"`
	MethodID     string `form:"methodId"`
	Statement    string `form:"statement"`
	Sign         string `form:"sign"`
}

func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
