package session

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulocustoms/shop/internal/models"
)

var testAdmin = &models.AdminUser{ID: 7, Email: "admin@lulocustoms.pl"}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), []byte("test-session-secret"), 8*time.Hour, true)
}

func newCtx(cookie *http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth?action=check", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// lastCookie returns the session cookie the browser would keep after this response.
func lastCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var out *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			out = ck
		}
	}
	require.NotNil(t, out, "no %s cookie set", CookieName)
	return out
}

func TestManager_EstablishAndCurrent(t *testing.T) {
	m := newTestManager(t)

	c, rec := newCtx(nil)
	require.NoError(t, m.Establish(c, testAdmin))
	ck := lastCookie(t, rec)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, int((8 * time.Hour).Seconds()), ck.MaxAge)

	c, _ = newCtx(ck)
	id, ok := m.Current(c)
	require.True(t, ok)
	assert.Equal(t, uint(7), id.AdminID)
	assert.Equal(t, "admin@lulocustoms.pl", id.Email)

	c, _ = newCtx(nil)
	_, ok = m.Current(c)
	assert.False(t, ok)
}

func TestManager_EstablishRotatesSessionID(t *testing.T) {
	m := newTestManager(t)

	c, rec := newCtx(nil)
	require.NoError(t, m.Establish(c, testAdmin))
	first := lastCookie(t, rec)

	c, rec = newCtx(first)
	require.NoError(t, m.Establish(c, testAdmin))
	second := lastCookie(t, rec)
	assert.NotEqual(t, first.Value, second.Value)

	c, _ = newCtx(first)
	_, ok := m.Current(c)
	assert.False(t, ok, "previous session must be gone")

	c, _ = newCtx(second)
	_, ok = m.Current(c)
	assert.True(t, ok)
}

func TestManager_ExpiresAfterTTL(t *testing.T) {
	m := newTestManager(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return now }

	c, rec := newCtx(nil)
	require.NoError(t, m.Establish(c, testAdmin))
	ck := lastCookie(t, rec)

	now = now.Add(8 * time.Hour)
	c, _ = newCtx(ck)
	_, ok := m.Current(c)
	require.True(t, ok)

	now = now.Add(time.Second)
	c, rec = newCtx(ck)
	_, ok = m.Current(c)
	assert.False(t, ok)
	assert.Negative(t, lastCookie(t, rec).MaxAge)

	// destroyed, not just hidden
	now = now.Add(-time.Hour)
	c, _ = newCtx(ck)
	_, ok = m.Current(c)
	assert.False(t, ok)
}

func TestManager_DestroyIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	c, rec := newCtx(nil)
	require.NoError(t, m.Establish(c, testAdmin))
	ck := lastCookie(t, rec)

	for i := 0; i < 2; i++ {
		c, _ = newCtx(ck)
		require.NoError(t, m.Destroy(c))
	}

	c, _ = newCtx(nil)
	require.NoError(t, m.Destroy(c))

	c, _ = newCtx(ck)
	assert.False(t, m.IsAdmin(c))
	err := m.Require(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestSweep_RemovesOnlyStaleSessionFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	write := func(name string, age time.Duration) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		mtime := now.Add(-age)
		require.NoError(t, os.Chtimes(p, mtime, mtime))
		return p
	}
	stale := write("session_STALE", 9*time.Hour)
	fresh := write("session_FRESH", time.Hour)
	other := write("uploads.txt", 48*time.Hour)

	n, err := Sweep(dir, 8*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestSweep_MissingDir(t *testing.T) {
	n, err := Sweep(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
