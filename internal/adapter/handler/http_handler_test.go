package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/medstock/internal/adapter/storage"
	"github.com/rl1809/medstock/internal/core/service"
	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/metrics"
)

type testEnv struct {
	dir     string
	handler http.Handler
	metrics *metrics.Metrics
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvIn(t, t.TempDir())
}

func setupTestEnvIn(t *testing.T, dir string) *testEnv {
	t.Helper()

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := storage.Instrument(storage.NewFileAdapter(dir, logger), "file", m)
	users := service.NewUserDirectory(store, "users", logger)
	inventory := service.NewInventoryDirectory(store, "inventory", logger)
	h := NewHTTPHandler(service.NewAuthService(users), inventory, store, logger)

	return &testEnv{
		dir:     dir,
		handler: NewRouter(h, NewPages(""), m, reg, logger),
		metrics: m,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) inventory(t *testing.T) []map[string]any {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&items))
	return items
}

func TestCreateThenList(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/inventory", `{"name":"Widget","qty":5}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	items := env.inventory(t)
	require.Len(t, items, 1)
	assert.Regexp(t, regexp.MustCompile(`^\d{13,}$`), items[0]["id"])
	assert.Equal(t, "Widget", items[0]["name"])
	assert.Equal(t, json.Number("5"), items[0]["qty"])
	assert.Len(t, items[0], 3)
}

func TestListInventory_EmptyIsArray(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/inventory", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListInventory_MalformedFile(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "inventory.json"), []byte("definitely not json"), 0o644))

	rec := env.do(t, http.MethodGet, "/api/inventory", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestInventory_NonObjectElementsAreKept(t *testing.T) {
	env := setupTestEnv(t)
	path := filepath.Join(env.dir, "inventory.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1","name":"Keep"}, "stray"]`), 0o644))

	rec := env.do(t, http.MethodGet, "/api/inventory", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"1","name":"Keep"}, "stray"]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/inventory", `{"name":"new"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	env.do(t, http.MethodPut, "/api/inventory/stray", `{"name":"x"}`)
	env.do(t, http.MethodDelete, "/api/inventory/stray", "")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var stored []any
	require.NoError(t, json.Unmarshal(data, &stored))
	require.Len(t, stored, 3)
	assert.Equal(t, map[string]any{"id": "1", "name": "Keep"}, stored[0])
	assert.Equal(t, "stray", stored[1])
	assert.Equal(t, "new", stored[2].(map[string]any)["name"])
}

func TestUpdateItem_Merge(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "inventory.json"),
		[]byte(`[{"id":"1","a":0,"b":2}]`), 0o644))

	rec := env.do(t, http.MethodPut, "/api/inventory/1", `{"a":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	items := env.inventory(t)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"id": "1", "a": json.Number("1"), "b": json.Number("2")}, items[0])
}

func TestUpdateItem_MissStillSucceeds(t *testing.T) {
	env := setupTestEnv(t)
	env.do(t, http.MethodPost, "/api/inventory", `{"name":"Widget"}`)
	path := filepath.Join(env.dir, "inventory.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/api/inventory/nonexistent", `{"name":"Other"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDeleteItem_Idempotent(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "inventory.json"),
		[]byte(`[{"id":"1"},{"id":"2"}]`), 0o644))

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodDelete, "/api/inventory/1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())

		items := env.inventory(t)
		require.Len(t, items, 1)
		assert.Equal(t, "2", items[0]["id"])
	}
}

func TestInventory_RejectsNonObjectBody(t *testing.T) {
	env := setupTestEnv(t)

	for _, body := range []string{`[1,2]`, `"text"`, `not json`, `null`} {
		rec := env.do(t, http.MethodPost, "/api/inventory", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"success":false,"error":"invalid request body"}`, rec.Body.String())
	}

	rec := env.do(t, http.MethodPut, "/api/inventory/1", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignUp_Duplicate(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/signup", `{"username":"alice","password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/signup", `{"username":"alice","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"User already exists"}`, rec.Body.String())

	data, err := os.ReadFile(filepath.Join(env.dir, "users.json"))
	require.NoError(t, err)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, map[string]any{"username": "alice", "password": "pw", "role": "user"}, users[0])
}

func TestSignUp_MissingFields(t *testing.T) {
	env := setupTestEnv(t)

	for _, body := range []string{`{"username":"alice"}`, `{"password":"pw"}`, `nope`} {
		rec := env.do(t, http.MethodPost, "/api/signup", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"success":false,"error":"Username and password are required"}`, rec.Body.String())
	}
}

func TestSignIn(t *testing.T) {
	env := setupTestEnv(t)
	env.do(t, http.MethodPost, "/api/signup", `{"username":"alice","password":"pw"}`)

	rec := env.do(t, http.MethodPost, "/api/signin", `{"username":"alice","password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"user":{"username":"alice","role":"user"}}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/signin", `{"username":"alice","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid credentials"}`, rec.Body.String())
}

func TestSignIn_AdminWithoutUserFile(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/signin", `{"username":"admin","password":"admin123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"user":{"username":"admin","role":"admin"}}`, rec.Body.String())
	assert.NoFileExists(t, filepath.Join(env.dir, "users.json"))
}

func TestBackendFailureIsInternalError(t *testing.T) {
	dir := t.TempDir()
	env := setupTestEnvIn(t, dir)
	// a directory where the collection file should be makes reads fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "inventory.json"), 0o755))

	rec := env.do(t, http.MethodGet, "/api/inventory", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal error"}`, rec.Body.String())
}

func TestPages(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Sign in")

	rec = env.do(t, http.MethodGet, "/inventory/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Inventory")

	rec = env.do(t, http.MethodGet, "/inventory", "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/inventory/", rec.Header().Get("Location"))
}

func TestPages_FromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.html"), []byte("<p>custom login</p>"), 0o644))
	pages := NewPages(dir)

	rec := httptest.NewRecorder()
	pages.Login(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "<p>custom login</p>", rec.Body.String())

	rec = httptest.NewRecorder()
	pages.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/inventory/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/inventory/1", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)

	rec = env.do(t, http.MethodGet, "/api/inventory", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/inventory", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set(requestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", rec.Header().Get(requestIDHeader))
}

func TestUnmatchedRequestsAreInstrumented(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/inventory", `{"name":"x"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("unknown", "PATCH", "405")))

	rec = env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("unknown", "GET", "404")))
}

func TestRequestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", "text")

	h := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	out := buf.String()
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "path=/x")
	assert.Contains(t, out, "request_id=")
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	env.do(t, http.MethodPost, "/api/inventory", `{"name":"Widget"}`)
	env.do(t, http.MethodDelete, "/api/inventory/1", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/inventory", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/inventory/{id}", "DELETE", "200")))

	rec = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medstock_http_requests_total")
	assert.Contains(t, rec.Body.String(), "medstock_record_store_operations_total")
}

func TestHealth_FreshDataDir(t *testing.T) {
	env := setupTestEnvIn(t, filepath.Join(t.TempDir(), "data"))

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/inventory", `{"name":"Aspirin"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, env.inventory(t), 1)
}

func TestHealth_Unavailable(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))
	env := setupTestEnvIn(t, notADir)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestRequestID_EmptyWithoutMiddleware(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
}
