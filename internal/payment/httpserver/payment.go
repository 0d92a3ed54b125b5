package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lulocustoms/shop/internal/payment/service"
	"github.com/lulocustoms/shop/internal/payment/transport"
	"github.com/lulocustoms/shop/pkg/httpx"
	"github.com/lulocustoms/shop/pkg/logging"
)

type PaymentHTTP struct {
	Svc *service.PaymentService
}

// Handle serves /api/payment, dispatching on the action query parameter.
func (h *PaymentHTTP) Handle(c echo.Context) error {
	method := c.Request().Method
	switch c.QueryParam("action") {
	case "init":
		if method != http.MethodPost {
			return httpx.MethodNotAllowed()
		}
		return h.Init(c)
	case "verify":
		if method != http.MethodPost {
			return httpx.MethodNotAllowed()
		}
		return h.Verify(c)
	case "status":
		if method != http.MethodGet {
			return httpx.MethodNotAllowed()
		}
		return h.Status(c)
	default:
		return httpx.InvalidAction()
	}
}

func (h *PaymentHTTP) Init(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.init")

	var req transport.InitRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("payment_init_error", "status", 400, "reason", "invalid json", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
	}

	res, err := h.Svc.Init(ctx, req.OrderID)
	if err != nil {
		return httpx.Fail(l, "payment_init_error", err, "Payment initialization failed")
	}

	l.Info("payment_init_success", "order_id", req.OrderID)
	return httpx.OK(c, http.StatusOK, echo.Map{
		"redirect_url": res.RedirectURL,
		"session_id":   res.SessionID,
		"token":        res.Token,
	})
}

func (h *PaymentHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.verify")

	var form transport.NotificationForm
	if err := (&echo.DefaultBinder{}).BindBody(c, &form); err != nil {
		l.Warn("payment_verify_error", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required parameters")
	}

	res, err := h.Svc.Verify(ctx, service.Notification{
		MerchantID:   form.MerchantID,
		PosID:        form.PosID,
		SessionID:    form.SessionID,
		Amount:       form.Amount,
		OriginAmount: form.OriginAmount,
		Currency:     form.Currency,
		OrderID:      form.OrderID,
		MethodID:     form.MethodID,
		Statement:    form.Statement,
		Sign:         form.Sign,
	})
	if err != nil {
		return httpx.Fail(l, "payment_verify_error", err, "Payment verification failed")
	}

	msg := "Payment verified successfully"
	if res.AlreadyProcessed {
		msg = "Payment already processed"
	}
	l.Info("payment_verify_success", "order_id", res.OrderID, "already_processed", res.AlreadyProcessed)
	return httpx.OK(c, http.StatusOK, echo.Map{"message": msg})
}

func (h *PaymentHTTP) Status(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.status")

	st, err := h.Svc.Status(ctx, c.QueryParam("session_id"))
	if err != nil {
		return httpx.Fail(l, "payment_status_error", err, "Failed to load payment status")
	}

	return httpx.OK(c, http.StatusOK, echo.Map{
		"status":       st.Status,
		"order_number": st.OrderNumber,
		"total_price":  transport.Money(st.TotalPrice),
	})
}
