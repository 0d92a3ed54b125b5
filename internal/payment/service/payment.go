package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/internal/payment/p24"
	"github.com/lulocustoms/shop/internal/payment/repo"
	"github.com/lulocustoms/shop/pkg/apperr"
	"github.com/lulocustoms/shop/pkg/events"
	"github.com/lulocustoms/shop/pkg/logging"
)

type Gateway interface {
	Register(ctx context.Context, req p24.RegisterRequest) (string, error)
	Verify(ctx context.Context, req p24.VerifyRequest) (bool, error)
}

type OrderNotifier interface {
	OrderPaid(ctx context.Context, o *models.Order) error
}

type Settings struct {
	CRC        string
	GatewayURL string
	ReturnURL  string
	StatusURL  string
}

type PaymentService struct {
	Repo     *repo.GormRepo
	Gateway  Gateway
	Settings Settings
	Events   events.Publisher
	Notifier OrderNotifier
	Now      func() time.Time
	// NewSessionID overrides session id generation.
	NewSessionID func() string
}

type InitResult struct {
	RedirectURL string `json:"redirect_url"`
	SessionID   string `json:"session_id"`
	Token       string `json:"token"`
}

// Notification is the form posted by the gateway to the status URL.
type Notification struct {
	MerchantID   string
	PosID        string
	SessionID    string
	Amount       string
	OriginAmount string
	Currency     string
	OrderID      string
	MethodID     string
	Statement    string
	Sign         string
}

type VerifyResult struct {
	OrderID          uint
	AlreadyProcessed bool
}

type StatusResult struct {
	Status      models.PaymentStatus
	OrderNumber string
	TotalPrice  decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ToGrosz converts an amount in PLN to grosz, rounding half to even.
func ToGrosz(pln decimal.Decimal) int64 {
	return pln.Mul(hundred).RoundBank(0).IntPart()
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *PaymentService) sessionID() string {
	if s.NewSessionID != nil {
		return s.NewSessionID()
	}
	return "p24_" + uuid.NewString()
}

func (s *PaymentService) Init(ctx context.Context, orderID uint) (*InitResult, error) {
	l := logging.FromContext(ctx).With("svc", "payment.init", "order_id", orderID)

	if orderID == 0 {
		return nil, apperr.Validation("Order ID is required")
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus == models.PaymentPaid {
		return nil, apperr.Validation("Order already paid")
	}

	sid := s.sessionID()
	token, err := s.Gateway.Register(ctx, p24.RegisterRequest{
		SessionID:   sid,
		Amount:      ToGrosz(order.TotalPrice),
		Currency:    p24.CurrencyPLN,
		Description: "Zamówienie " + order.OrderNumber,
		Email:       order.CustomerEmail,
		Client:      order.CustomerName,
		Country:     p24.CountryPL,
		Language:    p24.LanguagePL,
		URLReturn:   s.Settings.ReturnURL + "?session_id=" + sid,
		URLStatus:   s.Settings.StatusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("register transaction: %w", err)
	}

	if err := s.Repo.SetSession(ctx, order.ID, sid); err != nil {
		return nil, fmt.Errorf("save session id: %w", err)
	}

	l.Info("payment_registered", "session_id", sid)
	return &InitResult{
		RedirectURL: strings.TrimRight(s.Settings.GatewayURL, "/") + "/" + token,
		SessionID:   sid,
		Token:       token,
	}, nil
}

// Verify authenticates a gateway notification and applies its outcome to the order.
func (s *PaymentService) Verify(ctx context.Context, n Notification) (*VerifyResult, error) {
	l := logging.FromContext(ctx).With("svc", "payment.verify", "session_id", n.SessionID, "p24_order_id", n.OrderID)

	if n.SessionID == "" || n.OrderID == "" || n.Sign == "" {
		return nil, apperr.Validation("Missing required parameters")
	}
	// A non-numeric orderId or amount cannot carry a valid sign.
	gatewayOrderID, orderErr := strconv.ParseInt(n.OrderID, 10, 64)
	amount, amountErr := strconv.ParseInt(n.Amount, 10, 64)
	if orderErr != nil || amountErr != nil || !validSign(n, gatewayOrderID, amount, s.Settings.CRC) {
		l.Warn("invalid_signature")
		return nil, apperr.Forbidden("Invalid signature")
	}

	order, err := s.Repo.GetOrderBySession(ctx, n.SessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	l = l.With("order_id", order.ID)

	processed, err := s.Repo.IsProcessed(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("check processed: %w", err)
	}
	if processed || order.PaymentStatus == models.PaymentPaid {
		l.Info("notification_already_processed")
		return &VerifyResult{OrderID: order.ID, AlreadyProcessed: true}, nil
	}

	if want := ToGrosz(order.TotalPrice); amount != want {
		l.Warn("amount_mismatch", "amount", amount, "expected", want)
		return nil, apperr.Validation("Amount mismatch")
	}

	ok, err := s.Gateway.Verify(ctx, p24.VerifyRequest{
		SessionID: n.SessionID,
		Amount:    amount,
		Currency:  n.Currency,
		OrderID:   gatewayOrderID,
	})
	if err != nil {
		l.Error("gateway_verify_error", "error", err)
	}
	if err != nil || !ok {
		if _, mErr := s.Repo.MarkFailed(ctx, order.ID, n.OrderID); mErr != nil {
			return nil, fmt.Errorf("mark failed: %w", mErr)
		}
		order.PaymentStatus = models.PaymentFailed
		s.publish(ctx, "payment_failed", order)
		return nil, apperr.Validation("Payment verification failed")
	}

	oversold, err := s.Repo.MarkPaid(ctx, order.ID, n.SessionID, n.OrderID, s.now())
	if errors.Is(err, repo.ErrAlreadyProcessed) {
		l.Info("notification_already_processed")
		return &VerifyResult{OrderID: order.ID, AlreadyProcessed: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	for _, o := range oversold {
		l.Warn("stock_oversold", "product_id", o.ProductID, "stock", o.Stock, "quantity", o.Quantity)
	}

	l.Info("payment_confirmed")
	s.afterPaid(ctx, order.ID)
	return &VerifyResult{OrderID: order.ID}, nil
}

func validSign(n Notification, orderID, amount int64, crc string) bool {
	expected := p24.TransactionSign(n.SessionID, orderID, amount, n.Currency, crc)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.Sign)) == 1
}

func (s *PaymentService) Status(ctx context.Context, sessionID string) (*StatusResult, error) {
	if sessionID == "" {
		return nil, apperr.Validation("Session ID is required")
	}
	order, err := s.Repo.GetOrderBySession(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &StatusResult{
		Status:      order.PaymentStatus,
		OrderNumber: order.OrderNumber,
		TotalPrice:  order.TotalPrice,
	}, nil
}

// afterPaid runs the side effects that must not undo a committed payment.
func (s *PaymentService) afterPaid(ctx context.Context, orderID uint) {
	l := logging.FromContext(ctx)

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		l.Warn("reload_paid_order_failed", "order_id", orderID, "error", err)
		return
	}
	s.publish(ctx, "payment_paid", order)

	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.OrderPaid(ctx, order); err != nil {
		l.Warn("confirmation_email_failed", "order_id", orderID, "error", err)
	}
}

func (s *PaymentService) publish(ctx context.Context, typ string, o *models.Order) {
	if s.Events == nil {
		return
	}
	ev := events.OrderEvent{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.PaymentStatus),
		Total:       o.TotalPrice.StringFixed(2),
		At:          s.now(),
	}
	if err := s.Events.PublishEvent(ctx, events.TopicPayments, o.OrderNumber, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", typ, "order_id", o.ID, "error", err)
	}
}
