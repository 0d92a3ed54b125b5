package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulocustoms/shop/pkg/apperr"
	"github.com/lulocustoms/shop/pkg/logging"
)

func render(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(err, c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_HTTPError(t *testing.T) {
	code, body := render(t, echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later."))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Too many login attempts. Try again later.", body["error"])
}

func TestErrorHandler_DomainError(t *testing.T) {
	code, body := render(t, apperr.NotFound("Order not found"))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", body["error"])
}

func TestErrorHandler_UnknownError(t *testing.T) {
	code, body := render(t, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", body["error"])
}

func TestFail_HidesInternalDetail(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewWithWriter(&buf, "info")

	he := Fail(l, "create_order_error", errors.New("tx aborted"), "Failed to create order")
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, "Failed to create order", he.Message)
	assert.Contains(t, buf.String(), "tx aborted")

	he = Fail(l, "create_order_error", apperr.Validation("Invalid email format"), "Failed to create order")
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, "Invalid email format", he.Message)
}

func TestOK(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, OK(c, http.StatusCreated, echo.Map{"message": "done"}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"done"}`, rec.Body.String())
}
