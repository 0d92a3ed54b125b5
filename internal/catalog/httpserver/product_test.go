package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulocustoms/shop/internal/catalog/repo"
	"github.com/lulocustoms/shop/internal/catalog/service"
	"github.com/lulocustoms/shop/internal/catalog/storage"
	"github.com/lulocustoms/shop/internal/testutil"
	"github.com/lulocustoms/shop/pkg/httpx"
)

type fakeGuard struct{ admin bool }

func (g *fakeGuard) Require(echo.Context) error {
	if !g.admin {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return nil
}

func (g *fakeGuard) IsAdmin(echo.Context) bool { return g.admin }

type testEnv struct {
	e     *echo.Echo
	guard *fakeGuard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedProduct(t, db, "Felga", "10.00", 5, true)
	testutil.SeedProduct(t, db, "Prototyp", "99.00", 1, false)

	guard := &fakeGuard{}
	h := &CatalogHTTP{
		Svc: &service.CatalogService{
			Repo:   &repo.GormRepo{DB: db},
			Images: storage.NewLocalStore(t.TempDir(), "/uploads/products/"),
		},
		Guard: guard,
	}
	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.Any("/api/products", h.Handle)
	return &testEnv{e: e, guard: guard}
}

func (env *testEnv) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (env *testEnv) do(method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return env.serve(req)
}

func multipartRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "felga.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestCatalogHTTP_PublicList(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	products := body["products"].([]any)
	require.Len(t, products, 1)
	first := products[0].(map[string]any)
	assert.Equal(t, "Felga", first["name"])
	assert.EqualValues(t, 10, first["price"])
	assert.Contains(t, rec.Body.String(), `"price":10.00`)

	env.guard.admin = true
	_, body = env.do(http.MethodGet, "/api/products", "")
	assert.Len(t, body["products"].([]any), 2)
}

func TestCatalogHTTP_Detail(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/products?id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Felga", body["product"].(map[string]any)["name"])

	rec, body = env.do(http.MethodGet, "/api/products?id=2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", body["error"])

	rec, _ = env.do(http.MethodGet, "/api/products?id=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHTTP_WritesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.serve(multipartRequest(t, map[string]string{"name": "X", "price": "1"}, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", body["error"])

	rec, _ = env.do(http.MethodPut, "/api/products", `{"id":1,"name":"X","price":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(http.MethodDelete, "/api/products?id=1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(http.MethodPatch, "/api/products", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCatalogHTTP_CreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	env.guard.admin = true

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	rec, body := env.serve(multipartRequest(t, map[string]string{
		"name": "Spoiler", "description": "carbon", "price": "249.90", "stock": "3",
	}, png))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Product created successfully", body["message"])
	created := body["product"].(map[string]any)
	assert.Equal(t, true, created["active"])
	assert.True(t, strings.HasPrefix(created["image_url"].(string), "/uploads/products/product_"))
	id := created["id"].(float64)

	rec, body = env.serve(multipartRequest(t, map[string]string{"name": "Bad", "price": "0"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Price must be greater than 0", body["error"])

	rec, body = env.do(http.MethodPut, "/api/products",
		`{"id":`+jsonNum(id)+`,"name":"Spoiler v2","description":"carbon","price":199.5,"stock":2,"active":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Product updated successfully", body["message"])
	updated := body["product"].(map[string]any)
	assert.Equal(t, "Spoiler v2", updated["name"])
	assert.Equal(t, false, updated["active"])
	assert.NotNil(t, updated["image_url"])

	rec, body = env.do(http.MethodPut, "/api/products", `{"name":"X","price":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product ID is required", body["error"])

	rec, body = env.do(http.MethodDelete, "/api/products?id="+jsonNum(id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", body["message"])

	rec, body = env.do(http.MethodDelete, "/api/products?id="+jsonNum(id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", body["error"])

	rec, body = env.do(http.MethodDelete, "/api/products", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product ID is required", body["error"])
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
