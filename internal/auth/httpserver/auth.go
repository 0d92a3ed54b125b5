package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lulocustoms/shop/internal/auth/service"
	"github.com/lulocustoms/shop/internal/auth/session"
	"github.com/lulocustoms/shop/pkg/httpx"
	"github.com/lulocustoms/shop/pkg/logging"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHTTP struct {
	Svc      *service.AuthService
	Sessions *session.Manager
}

// Handle serves /api/auth, dispatching on the action query parameter.
func (h *AuthHTTP) Handle(c echo.Context) error {
	method := c.Request().Method
	switch c.QueryParam("action") {
	case "login":
		if method != http.MethodPost {
			return httpx.MethodNotAllowed()
		}
		return h.Login(c)
	case "logout":
		if method != http.MethodPost {
			return httpx.MethodNotAllowed()
		}
		return h.LogOut(c)
	case "check":
		if method != http.MethodGet {
			return httpx.MethodNotAllowed()
		}
		return h.Check(c)
	default:
		return httpx.InvalidAction()
	}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid json", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON")
	}

	admin, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return httpx.Fail(l, "login_error", err, "Login failed")
	}

	if err := h.Sessions.Establish(c, admin); err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot save session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Login failed")
	}

	l.Info("login_successful", "admin_id", admin.ID)
	return httpx.OK(c, http.StatusOK, echo.Map{
		"message": "Login successful",
		"admin":   echo.Map{"id": admin.ID, "email": admin.Email},
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.logout")

	if err := h.Sessions.Destroy(c); err != nil {
		l.Warn("logout_error", "reason", "cannot erase session", "error", err)
	}

	l.Info("successful_logout")
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "Logout successful"})
}

func (h *AuthHTTP) Check(c echo.Context) error {
	id, ok := h.Sessions.Current(c)
	if !ok {
		return httpx.OK(c, http.StatusOK, echo.Map{"logged_in": false})
	}
	return httpx.OK(c, http.StatusOK, echo.Map{
		"logged_in": true,
		"admin":     echo.Map{"id": id.AdminID, "email": id.Email},
	})
}
