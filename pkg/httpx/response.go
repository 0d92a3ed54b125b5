package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lulocustoms/shop/pkg/apperr"
)

// OK writes a success envelope merged with the given fields.
func OK(c echo.Context, code int, fields echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(code, body)
}

// Fail logs err at a level matching its status and converts it to an echo error.
// Unclassified errors surface fallback instead of their own text.
func Fail(l *slog.Logger, event string, err error, fallback string) *echo.HTTPError {
	code := apperr.Status(err)
	msg := apperr.Public(err, fallback)
	if code >= http.StatusInternalServerError {
		l.Error(event, "status", code, "reason", fallback, "error", err)
	} else {
		l.Warn(event, "status", code, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(code, msg)
}

func MethodNotAllowed() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed")
}

func InvalidAction() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid action")
}

// ErrorHandler renders every error as {"success": false, "error": "..."}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
			msg = http.StatusText(code)
		default:
			msg = fmt.Sprint(m)
		}
	} else {
		code = apperr.Status(err)
		msg = apperr.Public(err, http.StatusText(code))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"success": false, "error": msg})
}
