package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	clusterctrl "github.com/dropDatabas3/docstore/internal/http/controllers/cluster"
	docctrl "github.com/dropDatabas3/docstore/internal/http/controllers/documents"
	healthctrl "github.com/dropDatabas3/docstore/internal/http/controllers/health"
	docsvc "github.com/dropDatabas3/docstore/internal/http/services/documents"
	healthsvc "github.com/dropDatabas3/docstore/internal/http/services/health"
	jwtx "github.com/dropDatabas3/docstore/internal/jwt"
	"github.com/dropDatabas3/docstore/internal/rate"
	"github.com/dropDatabas3/docstore/internal/store/adapters/memory"
)

func newTestRouter(t *testing.T, issuer *jwtx.Issuer, cluster repository.ClusterRepository) http.Handler {
	t.Helper()
	return newTestRouterWith(t, issuer, cluster, nil)
}

func newTestRouterWith(t *testing.T, issuer *jwtx.Issuer, cluster repository.ClusterRepository, limiter rate.Limiter) http.Handler {
	t.Helper()
	repo := memory.New()
	return New(Deps{
		Documents: docctrl.NewDocumentsController(docsvc.NewDocumentService(repo), 1024),
		Health: healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{
			StorageName:  "memory",
			StorageCheck: func(ctx context.Context) error { return nil },
		})),
		Cluster:     clusterctrl.NewClusterController(cluster),
		Issuer:      issuer,
		ClusterRepo: cluster,
		Limiter:     limiter,
		Gatherer:    prometheus.NewRegistry(),
	})
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestDocuments_InternalScenario(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodPut, "/books/_doc/1", `{"title":"a"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "books", body["_index"])
	assert.Equal(t, "1", body["_id"])
	assert.EqualValues(t, 1, body["_version"])
	assert.Equal(t, "created", body["result"])
	assert.Equal(t, `"1"`, rec.Header().Get("ETag"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodPut, "/books/_doc/1?version=1", `{"title":"b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["_version"])

	rec = do(t, h, http.MethodPut, "/books/_doc/1?version=1", `{"title":"c"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "VERSION_CONFLICT", body["code"])
	assert.EqualValues(t, 2, body["current_version"])
	assert.EqualValues(t, 1, body["provided_version"])
	assert.Equal(t, "internal", body["version_type"])
	assert.Equal(t, "[1]: version conflict, current version [2] is different than the one provided [1]", body["detail"])

	rec = do(t, h, http.MethodGet, "/books/_doc/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 2, body["_version"])
	assert.Equal(t, true, body["found"])
	assert.Equal(t, map[string]any{"title": "b"}, body["_source"])
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))
}

func TestDocuments_ExternalScenario(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodPut, "/books/_doc/1?version=5&version_type=external", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 5, decode(t, rec)["_version"])

	rec = do(t, h, http.MethodPut, "/books/_doc/1?version=10&version_type=external", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10, decode(t, rec)["_version"])

	rec = do(t, h, http.MethodPut, "/books/_doc/1?version=10&version_type=external", `{}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "[1]: version conflict, current version [10] is higher or equal to the one provided [10]", body["detail"])

	rec = do(t, h, http.MethodPut, "/books/_doc/1?version=11&version_type=external_gte", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec)["code"])
}

func TestDocuments_ExplicitZeroVersionRejected(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPut, "/books/_doc/1", `{"n":1}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/books/_doc/1", `{"n":2}`).Code)

	for _, target := range []string{
		"/books/_doc/1?version=0",
		"/books/_doc/1?version=-1",
		"/books/_doc/1?version=0&version_type=external",
	} {
		rec := do(t, h, http.MethodPut, target, `{"n":3}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		body := decode(t, rec)
		assert.Equal(t, "INVALID_PARAMETER", body["code"], target)
		assert.Contains(t, body["detail"], "version must be in [1,", target)
	}

	rec := do(t, h, http.MethodDelete, "/books/_doc/1?version=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/books/_doc/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["_version"])
	assert.Equal(t, map[string]any{"n": float64(2)}, body["_source"])
}

func TestDocuments_BadRequests(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	cases := []struct {
		name, method, target, body string
		status                     int
		code                       string
	}{
		{"bad version", http.MethodPut, "/books/_doc/1?version=x", `{}`, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"external without version", http.MethodPut, "/books/_doc/1?version_type=external", `{}`, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"upper index", http.MethodPut, "/Books/_doc/1", `{}`, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"not json", http.MethodPut, "/books/_doc/1", `nope`, http.StatusBadRequest, "INVALID_JSON"},
		{"array", http.MethodPut, "/books/_doc/1", `[1,2]`, http.StatusBadRequest, "INVALID_JSON"},
		{"too large", http.MethodPut, "/books/_doc/1", `{"a":"` + strings.Repeat("x", 2048) + `"}`, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"},
		{"missing doc", http.MethodGet, "/books/_doc/404", "", http.StatusNotFound, "DOCUMENT_NOT_FOUND"},
		{"unknown route", http.MethodGet, "/books/_search", "", http.StatusNotFound, "ROUTE_NOT_FOUND"},
		{"method", http.MethodPatch, "/books/_doc/1", `{}`, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decode(t, rec)["code"])
		})
	}
}

func TestDocuments_CreateEndpoints(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodPost, "/books/_doc", `{"a":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode(t, rec)["_id"].(string)
	require.Len(t, id, 36)

	rec = do(t, h, http.MethodPut, "/books/_create/"+id, `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/books/_doc/"+id+"?op_type=create", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/books/_create/new", `{}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestDocuments_DeleteAndTombstone(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPut, "/books/_doc/1", `{}`).Code)

	rec := do(t, h, http.MethodDelete, "/books/_doc/1?version=3", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodDelete, "/books/_doc/1?version=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "deleted", body["result"])
	assert.EqualValues(t, 2, body["_version"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/books/_doc/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/books/_doc/1", "").Code)

	rec = do(t, h, http.MethodPut, "/books/_doc/1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["_version"])
}

func TestDocuments_IfMatchAndHead(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodPut, "/books/_doc/1", `{}`, "If-Match", "*")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "document does not exist")

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPut, "/books/_doc/1", `{}`).Code)

	rec = do(t, h, http.MethodHead, "/books/_doc/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/books/_doc/1", `{}`, "If-Match", etag)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPut, "/books/_doc/1", `{}`, "If-Match", etag)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/books/_doc/1", `{}`, "If-Match", `"v1"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocuments_EscapedID(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodPut, "/books/_doc/a%2Fb", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "a/b", decode(t, rec)["_id"])

	rec = do(t, h, http.MethodGet, "/books/_doc/a%2Fb", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDocuments_Auth(t *testing.T) {
	iss := jwtx.NewIssuer("docstore", []byte("secret"))
	h := newTestRouter(t, iss, nil)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/books/_doc/1", "").Code)

	reader, _, err := iss.IssueAccess("reader", []string{jwtx.ScopeRead}, time.Minute)
	require.NoError(t, err)
	writer, _, err := iss.IssueAccess("writer", []string{jwtx.ScopeRead, jwtx.ScopeWrite}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPut, "/books/_doc/1", `{}`, "Authorization", "Bearer "+reader).Code)
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPut, "/books/_doc/1", `{}`, "Authorization", "Bearer "+writer).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/books/_doc/1", "", "Authorization", "Bearer "+reader).Code)

	// health y métricas no requieren token
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", "").Code)
}

type followerRepo struct {
	repository.ClusterRepository
}

func (followerRepo) IsLeader(ctx context.Context) (bool, error)     { return false, nil }
func (followerRepo) GetLeaderID(ctx context.Context) (string, error) { return "n2", nil }
func (followerRepo) GetStats(ctx context.Context) (*repository.ClusterStats, error) {
	return &repository.ClusterStats{NodeID: "n1", Role: repository.ClusterRoleFollower, LeaderID: "n2", Healthy: true}, nil
}

func TestDocuments_FollowerRejectsWrites(t *testing.T) {
	h := newTestRouter(t, nil, followerRepo{})

	rec := do(t, h, http.MethodPut, "/books/_doc/1", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "n2", rec.Header().Get("X-Leader"))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/books/_doc/1", "").Code)

	rec = do(t, h, http.MethodGet, "/_cluster/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "n2", decode(t, rec)["leader_id"])
}

func TestHealth_Readyz(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	rec := do(t, h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ready", body["status"])

	rec = do(t, h, http.MethodGet, "/_cluster/state", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocuments_RateLimited(t *testing.T) {
	h := newTestRouterWith(t, nil, nil, rate.NewMemoryLimiter(2, time.Minute))

	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPut, "/books/_doc/1", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/books/_doc/1", "").Code)

	rec := do(t, h, http.MethodGet, "/books/_doc/1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode(t, rec)["code"])

	// health no pasa por el limiter
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "").Code)
}
