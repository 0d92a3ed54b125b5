package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/internal/order/service"
	"github.com/lulocustoms/shop/internal/order/transport"
	"github.com/lulocustoms/shop/pkg/httpx"
	"github.com/lulocustoms/shop/pkg/logging"
)

type AdminGuard interface {
	Require(c echo.Context) error
}

type OrderHTTP struct {
	Svc   *service.OrderService
	Guard AdminGuard
}

// Handle serves /api/orders for every verb.
func (h *OrderHTTP) Handle(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodGet:
		if c.QueryParam("order_number") != "" {
			return h.GetOrderPublic(c)
		}
		if err := h.Guard.Require(c); err != nil {
			return err
		}
		if c.QueryParam("id") != "" {
			return h.GetOrder(c)
		}
		return h.ListOrders(c)
	case http.MethodPost:
		return h.CreateOrder(c)
	default:
		return httpx.MethodNotAllowed()
	}
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid json", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
	}

	order, err := h.Svc.Create(ctx, req)
	if err != nil {
		return httpx.Fail(l, "create_order_error", err, "Failed to create order")
	}

	l.Info("create_order_success", "order_id", order.ID)
	return httpx.OK(c, http.StatusCreated, echo.Map{
		"message": "Order created successfully",
		"order":   transport.FormatOrder(order),
	})
}

func (h *OrderHTTP) GetOrderPublic(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order_public")

	order, err := h.Svc.GetByNumber(ctx, c.QueryParam("order_number"))
	if err != nil {
		return httpx.Fail(l, "get_order_public_error", err, "Failed to load order")
	}

	return httpx.OK(c, http.StatusOK, echo.Map{"order": transport.FormatOrderPublic(order)})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := strconv.ParseUint(c.QueryParam("id"), 10, 64)
	if err != nil || id == 0 {
		l.Warn("get_order_error", "status", 400, "reason", "id is not a positive integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order ID")
	}

	order, err := h.Svc.Get(ctx, uint(id))
	if err != nil {
		return httpx.Fail(l, "get_order_error", err, "Failed to load order")
	}

	return httpx.OK(c, http.StatusOK, echo.Map{"order": transport.FormatOrder(order)})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	filter := service.ListFilter{
		Status: models.PaymentStatus(c.QueryParam("status")),
		Limit:  parseIntDefault(c.QueryParam("limit"), service.DefaultListLimit),
		Offset: parseIntDefault(c.QueryParam("offset"), 0),
	}

	total, orders, applied, err := h.Svc.List(ctx, filter)
	if err != nil {
		return httpx.Fail(l, "list_orders_error", err, "Failed to load orders")
	}

	l.Info("list_orders_success", "count", len(orders), "total", total)
	return httpx.OK(c, http.StatusOK, echo.Map{
		"orders": transport.FormatOrders(orders),
		"total":  total,
		"limit":  applied.Limit,
		"offset": applied.Offset,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
