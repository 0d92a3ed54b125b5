package httpserver

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/lulocustoms/shop/internal/catalog/service"
	"github.com/lulocustoms/shop/internal/catalog/transport"
	"github.com/lulocustoms/shop/pkg/httpx"
	"github.com/lulocustoms/shop/pkg/logging"
)

type AdminGuard interface {
	Require(c echo.Context) error
	IsAdmin(c echo.Context) bool
}

type CatalogHTTP struct {
	Svc   *service.CatalogService
	Guard AdminGuard
}

// Handle serves /api/products for every verb.
func (h *CatalogHTTP) Handle(c echo.Context) error {
	method := c.Request().Method
	switch method {
	case http.MethodGet:
		if c.QueryParam("id") != "" {
			return h.GetProduct(c)
		}
		return h.GetProducts(c)
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		if err := h.Guard.Require(c); err != nil {
			return err
		}
	default:
		return httpx.MethodNotAllowed()
	}

	switch method {
	case http.MethodPost:
		return h.CreateProduct(c)
	case http.MethodPut:
		return h.UpdateProduct(c)
	default:
		return h.DeleteProduct(c)
	}
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, ok := parseID(c.QueryParam("id"))
	if !ok {
		l.Warn("get_product_failed", "status", 400, "reason", "id is not a positive integer")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product ID")
	}

	p, err := h.Svc.Get(ctx, id, h.Guard.IsAdmin(c))
	if err != nil {
		return httpx.Fail(l, "get_product_failed", err, "Failed to load product")
	}

	return httpx.OK(c, http.StatusOK, echo.Map{"product": transport.FormatProduct(p)})
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	items, err := h.Svc.List(ctx, c.QueryParam("q"), h.Guard.IsAdmin(c))
	if err != nil {
		return httpx.Fail(l, "get_products_error", err, "Failed to load products")
	}

	return httpx.OK(c, http.StatusOK, echo.Map{"products": transport.FormatProducts(items)})
}

func formInput(c echo.Context) transport.ProductInput {
	price, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		price = decimal.Zero
	}
	stock, err := strconv.Atoi(strings.TrimSpace(c.FormValue("stock")))
	if err != nil {
		stock = 0
	}
	active := true
	if v := strings.TrimSpace(c.FormValue("active")); v != "" {
		active, _ = strconv.ParseBool(v)
	}

	return transport.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       price,
		Stock:       stock,
		Active:      active,
	}
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	in := formInput(c)

	var image io.Reader
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			l.Error("product_create_error", "status", 500, "reason", "cannot open upload", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Image upload failed")
		}
		defer f.Close()
		image = f
	}

	p, err := h.Svc.Create(ctx, in, image)
	if err != nil {
		return httpx.Fail(l, "product_create_error", err, "Failed to create product")
	}

	l.Info("create_product_success", "product_id", p.ID)
	return httpx.OK(c, http.StatusCreated, echo.Map{
		"message": "Product created successfully",
		"product": transport.FormatProduct(p),
	})
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_product")

	var req transport.UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_update_error", "status", 400, "reason", "invalid json", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
	}

	p, err := h.Svc.Update(ctx, req.ID, req.Input())
	if err != nil {
		return httpx.Fail(l, "product_update_error", err, "Failed to update product")
	}

	l.Info("update_product_success", "product_id", p.ID)
	return httpx.OK(c, http.StatusOK, echo.Map{
		"message": "Product updated successfully",
		"product": transport.FormatProduct(p),
	})
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, ok := parseID(c.QueryParam("id"))
	if !ok {
		l.Warn("product_delete_error", "status", 400, "reason", "missing id")
		return echo.NewHTTPError(http.StatusBadRequest, "Product ID is required")
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return httpx.Fail(l, "product_delete_error", err, "Failed to delete product")
	}

	l.Info("delete_product_success", "product_id", id)
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}
