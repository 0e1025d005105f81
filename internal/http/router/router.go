// Package router arma el http.Handler de la API sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	clusterctrl "github.com/dropDatabas3/docstore/internal/http/controllers/cluster"
	docctrl "github.com/dropDatabas3/docstore/internal/http/controllers/documents"
	healthctrl "github.com/dropDatabas3/docstore/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/docstore/internal/http/errors"
	mw "github.com/dropDatabas3/docstore/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/docstore/internal/jwt"
	"github.com/dropDatabas3/docstore/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Documents *docctrl.DocumentsController
	Health    *healthctrl.HealthController
	Cluster   *clusterctrl.ClusterController

	// Issuer nil deshabilita la autenticación.
	Issuer *jwtx.Issuer

	// ClusterRepo nil => single node, sin RequireLeader.
	ClusterRepo     repository.ClusterRepository
	LeaderRedirects map[string]string

	// Limiter nil deshabilita el rate limiting.
	Limiter rate.Limiter

	// Gatherer para /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer
}

// New construye el router completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, deps)
	registerDocumentRoutes(r, deps)
	return r
}

// registerHealthRoutes: /readyz, /metrics y /_cluster/state. Sin auth ni logging
// (muy frecuentes).
func registerHealthRoutes(r chi.Router, deps Deps) {
	base := func(h http.Handler) http.Handler {
		return mw.Chain(h, mw.WithRecover(), mw.WithRequestID())
	}

	if deps.Health != nil {
		r.Method(http.MethodGet, "/readyz", base(http.HandlerFunc(deps.Health.Readyz)))
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if deps.Cluster != nil {
		r.Method(http.MethodGet, "/_cluster/state", base(http.HandlerFunc(deps.Cluster.State)))
	}
}

// registerDocumentRoutes registra la API de documentos.
// Chain: recover -> request id -> logging -> no-store -> auth -> rate -> scopes -> leader.
func registerDocumentRoutes(r chi.Router, deps Deps) {
	c := deps.Documents
	if c == nil {
		return
	}
	authEnabled := deps.Issuer != nil

	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithRecover(),
			mw.WithRequestID(),
			mw.WithLogging(),
			mw.WithNoStore(),
			mw.RequireAuth(deps.Issuer),
			mw.WithRateLimit(deps.Limiter, mw.SubjectOrIPRateKey),
			mw.WriteMethods(mw.RequireScope(jwtx.ScopeWrite, authEnabled)),
			mw.RequireLeader(deps.ClusterRepo, deps.LeaderRedirects),
		)

		r.Get("/{index}/_doc/{id}", c.Get)
		r.Head("/{index}/_doc/{id}", c.Get)
		r.Put("/{index}/_doc/{id}", c.Index)
		r.Post("/{index}/_doc/{id}", c.Index)
		r.Delete("/{index}/_doc/{id}", c.Delete)
		r.Post("/{index}/_doc", c.IndexAutoID)
		r.Put("/{index}/_create/{id}", c.Create)
		r.Post("/{index}/_create/{id}", c.Create)
	})
}
