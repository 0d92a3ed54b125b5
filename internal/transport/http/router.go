package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authhttp "github.com/lulocustoms/shop/internal/auth/httpserver"
	cataloghttp "github.com/lulocustoms/shop/internal/catalog/httpserver"
	orderhttp "github.com/lulocustoms/shop/internal/order/httpserver"
	paymenthttp "github.com/lulocustoms/shop/internal/payment/httpserver"
	"github.com/lulocustoms/shop/pkg/logging"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *authhttp.AuthHTTP
	ProductHandler *cataloghttp.CatalogHTTP
	OrderHandler   *orderhttp.OrderHTTP
	PaymentHandler *paymenthttp.PaymentHTTP
	// UploadDir is served under UploadURL when images are kept on local disk.
	UploadDir string
	UploadURL string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	api := e.Group("/api")

	api.Any("/auth", d.AuthHandler.Handle)
	api.Any("/products", d.ProductHandler.Handle)
	api.Any("/orders", d.OrderHandler.Handle)
	api.Any("/payment", d.PaymentHandler.Handle)

	if d.UploadDir != "" && d.UploadURL != "" {
		e.Static(strings.TrimRight(d.UploadURL, "/"), d.UploadDir)
	}
}

func (d *Deps) ready(c echo.Context) error {
	sqlDB, err := d.DB.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("readiness_failed", "error", err)
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
