// Package session keeps the admin login in a server-side gorilla session.
package session

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/pkg/logging"
)

const (
	CookieName = "lulo_session"

	keyAdminID    = "admin_id"
	keyAdminEmail = "admin_email"
	keyLoggedInAt = "logged_in_at"
)

type Identity struct {
	AdminID    uint
	Email      string
	LoggedInAt time.Time
}

type Manager struct {
	Store sessions.Store
	Name  string
	TTL   time.Duration
	Now   func() time.Time
}

// NewManager stores session data as files under dir; only the signed session id travels in the cookie.
func NewManager(dir string, secret []byte, ttl time.Duration, secure bool) *Manager {
	store := sessions.NewFilesystemStore(dir, secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &Manager{Store: store, Name: CookieName, TTL: ttl}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Establish logs admin in on a fresh session id, erasing whatever session the request carried.
func (m *Manager) Establish(c echo.Context, admin *models.AdminUser) error {
	r, w := c.Request(), c.Response()

	old, _ := m.Store.Get(r, m.Name)
	opts := *old.Options
	if old.ID != "" {
		old.Options.MaxAge = -1
		if err := old.Save(r, w); err != nil {
			return err
		}
	}

	sess := sessions.NewSession(m.Store, m.Name)
	opts.MaxAge = int(m.TTL.Seconds())
	sess.Options = &opts
	sess.IsNew = true
	sess.Values[keyAdminID] = admin.ID
	sess.Values[keyAdminEmail] = admin.Email
	sess.Values[keyLoggedInAt] = m.now().Unix()
	return sess.Save(r, w)
}

// Current returns the logged-in admin. Sessions older than TTL are destroyed on access.
func (m *Manager) Current(c echo.Context) (*Identity, bool) {
	sess, err := m.Store.Get(c.Request(), m.Name)
	if err != nil || sess.IsNew {
		return nil, false
	}

	id, okID := sess.Values[keyAdminID].(uint)
	email, _ := sess.Values[keyAdminEmail].(string)
	at, okAt := sess.Values[keyLoggedInAt].(int64)
	if !okID || !okAt {
		return nil, false
	}

	loggedInAt := time.Unix(at, 0)
	if m.now().Sub(loggedInAt) > m.TTL {
		logging.FromContext(c.Request().Context()).Info("session_expired", "admin_id", id)
		if err := m.Destroy(c); err != nil {
			logging.FromContext(c.Request().Context()).Warn("session_destroy_failed", "error", err)
		}
		return nil, false
	}

	return &Identity{AdminID: id, Email: email, LoggedInAt: loggedInAt}, true
}

// Destroy erases the session and expires the cookie. Safe to call without a session.
func (m *Manager) Destroy(c echo.Context) error {
	r := c.Request()
	sess, _ := m.Store.Get(r, m.Name)
	sess.Values = make(map[any]any)
	sess.Options.MaxAge = -1
	return sess.Save(r, c.Response())
}

func (m *Manager) Require(c echo.Context) error {
	if _, ok := m.Current(c); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return nil
}

func (m *Manager) IsAdmin(c echo.Context) bool {
	_, ok := m.Current(c)
	return ok
}

// Sweep removes session files under dir last written more than ttl before now.
// FilesystemStore only erases a file when its session is destroyed through a request.
func Sweep(dir string, ttl time.Duration, now time.Time) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "session_*"))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || now.Sub(info.ModTime()) <= ttl {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
