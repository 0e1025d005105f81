package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/config"
	jwtx "github.com/dropDatabas3/docstore/internal/jwt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadOrDefault("")
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	reg := prometheus.NewRegistry()
	a, err := New(context.Background(), cfg, BuildInfo{Version: "test"}, Options{Registerer: reg, Gatherer: reg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_MemoryRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	a := newTestApp(t, cfg)
	assert.Nil(t, a.Issuer())

	h := a.Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/books/_doc/1", strings.NewReader(`{"a":1}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/_doc/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache"`)
	assert.Equal(t, "test", rec.Header().Get("X-Service-Version"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docstore_")
}

func TestApp_AuthEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "s3cr3t"
	a := newTestApp(t, cfg)
	require.NotNil(t, a.Issuer())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/_doc/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, _, err := a.Issuer().IssueAccess("ci", []string{jwtx.ScopeRead}, 0)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/books/_doc/1", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreOptions(t *testing.T) {
	cfg := testConfig(t)
	opts := StoreOptions(cfg)
	assert.Equal(t, "memory", opts.Adapter.Name)
	assert.Nil(t, opts.Cache)

	cfg.Cluster.Mode = "embedded"
	cfg.Cluster.NodeID = "n1"
	cfg.Cluster.RaftAddr = "127.0.0.1:7000"
	cfg.Cluster.SnapshotEvery = 100
	cfg.Cache.Enabled = true
	opts = StoreOptions(cfg)
	assert.Equal(t, "raft", opts.Adapter.Name)
	assert.Equal(t, "n1", opts.Adapter.Raft.NodeID)
	assert.EqualValues(t, 100, opts.Adapter.Raft.SnapshotThreshold)
	require.NotNil(t, opts.Cache)
	assert.Equal(t, "memory", opts.Cache.Driver)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, BuildInfo{}, Options{})
	assert.Error(t, err)
}

func TestApp_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate.Enabled = true
	cfg.Rate.Max = 1
	a := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/_doc/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/_doc/1", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
