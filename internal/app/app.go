// Package app arma el proceso: config -> storage -> servicios -> HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/docstore/internal/cache"
	"github.com/dropDatabas3/docstore/internal/config"
	clusterctrl "github.com/dropDatabas3/docstore/internal/http/controllers/cluster"
	docctrl "github.com/dropDatabas3/docstore/internal/http/controllers/documents"
	healthctrl "github.com/dropDatabas3/docstore/internal/http/controllers/health"
	"github.com/dropDatabas3/docstore/internal/http/router"
	"github.com/dropDatabas3/docstore/internal/http/server"
	docsvc "github.com/dropDatabas3/docstore/internal/http/services/documents"
	healthsvc "github.com/dropDatabas3/docstore/internal/http/services/health"
	jwtx "github.com/dropDatabas3/docstore/internal/jwt"
	"github.com/dropDatabas3/docstore/internal/metrics"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/rate"
	"github.com/dropDatabas3/docstore/internal/store"

	// registra todos los adapters de storage
	_ "github.com/dropDatabas3/docstore/internal/store/adapters/all"
)

// BuildInfo se inyecta con -ldflags en cmd/docstore.
type BuildInfo struct {
	Version string
	Commit  string
}

// Options dependencias opcionales de New (tests).
type Options struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// App es el proceso armado.
type App struct {
	cfg     *config.Config
	conn    store.AdapterConnection
	issuer  *jwtx.Issuer
	handler http.Handler

	// rateClient sólo con rate.kind=redis
	rateClient *rdb.Client
}

// New abre el storage y construye el handler HTTP.
func New(ctx context.Context, cfg *config.Config, info BuildInfo, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	log := logger.From(ctx).With(logger.Component("app"))

	if err := metrics.RegisterDocuments(opts.Registerer); err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	conn, err := store.Open(ctx, StoreOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("app: open storage: %w", err)
	}

	var issuer *jwtx.Issuer
	if s := strings.TrimSpace(cfg.Auth.JWTSecret); s != "" {
		issuer = jwtx.NewIssuer(cfg.Auth.JWTIssuer, []byte(s))
		if ttl := config.Duration(cfg.Auth.TokenTTL); ttl > 0 {
			issuer.AccessTTL = ttl
		}
	} else {
		log.Warn("auth disabled: no jwt secret configured")
	}

	limiter, rateClient := newLimiter(cfg)
	if limiter != nil {
		log.Info("rate limiting enabled",
			logger.String("kind", cfg.Rate.Kind),
			logger.Int("max", cfg.Rate.Max),
			logger.String("window", cfg.Rate.Window),
		)
	}

	hdeps := healthsvc.Deps{
		Version:      info.Version,
		Commit:       info.Commit,
		StorageName:  conn.Name(),
		StorageCheck: conn.Ping,
		Cluster:      conn.Cluster(),
	}
	if cp, ok := conn.(store.CachePinger); ok {
		hdeps.CacheCheck = cp.PingCache
	}

	handler := router.New(router.Deps{
		Documents:       docctrl.NewDocumentsController(docsvc.NewDocumentService(conn.Documents()), cfg.Limits.MaxBodyBytes),
		Health:          healthctrl.NewHealthController(healthsvc.NewHealthService(hdeps)),
		Cluster:         clusterctrl.NewClusterController(conn.Cluster()),
		Issuer:          issuer,
		ClusterRepo:     conn.Cluster(),
		LeaderRedirects: cfg.Cluster.LeaderRedirects,
		Limiter:         limiter,
		Gatherer:        opts.Gatherer,
	})

	log.Info("app ready",
		logger.String("storage", conn.Name()),
		logger.Bool("cache", cfg.Cache.Enabled),
		logger.Bool("auth", issuer != nil),
		logger.Bool("cluster", conn.Cluster() != nil),
	)
	return &App{cfg: cfg, conn: conn, issuer: issuer, handler: handler, rateClient: rateClient}, nil
}

// newLimiter construye el limiter según cfg.Rate. nil si está deshabilitado.
func newLimiter(cfg *config.Config) (rate.Limiter, *rdb.Client) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	window := config.Duration(cfg.Rate.Window)
	if cfg.Rate.Kind == "redis" {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Rate.Redis.Addr, DB: cfg.Rate.Redis.DB})
		return rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Max, window), client
	}
	return rate.NewMemoryLimiter(cfg.Rate.Max, window), nil
}

// StoreOptions traduce la config a opciones de store.Open.
// cluster.mode=embedded fuerza el adapter raft.
func StoreOptions(cfg *config.Config) store.Options {
	ac := store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		MaxRetries:   cfg.Storage.MaxRetries,
		Redis: store.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		},
		NATS: store.NATSConfig{
			URL:      cfg.Storage.NATS.URL,
			Bucket:   cfg.Storage.NATS.Bucket,
			History:  cfg.Storage.NATS.History,
			Replicas: cfg.Storage.NATS.Replicas,
		},
	}
	if strings.EqualFold(cfg.Cluster.Mode, "embedded") {
		ac.Name = "raft"
		ac.Raft = store.RaftConfig{
			NodeID:           cfg.Cluster.NodeID,
			RaftAddr:         cfg.Cluster.RaftAddr,
			RaftDir:          cfg.Cluster.RaftDir,
			Peers:            cfg.Cluster.Nodes,
			Bootstrap:        cfg.Cluster.Bootstrap,
			DisableBootstrap: cfg.Cluster.JoinOnly,
			ApplyTimeout:     config.Duration(cfg.Cluster.ApplyTimeout),
			TLSEnable:        cfg.Cluster.RaftTLSEnable,
			TLSCertFile:      cfg.Cluster.RaftTLSCertFile,
			TLSKeyFile:       cfg.Cluster.RaftTLSKeyFile,
			TLSCAFile:        cfg.Cluster.RaftTLSCAFile,
			TLSServerName:    cfg.Cluster.RaftTLSServerName,
		}
		if cfg.Cluster.SnapshotEvery > 0 {
			ac.Raft.SnapshotThreshold = uint64(cfg.Cluster.SnapshotEvery)
		}
	}

	opts := store.Options{Adapter: ac}
	if cfg.Cache.Enabled {
		opts.Cache = &cache.Config{
			Driver:     cfg.Cache.Kind,
			Addr:       cfg.Cache.Redis.Addr,
			DB:         cfg.Cache.Redis.DB,
			Prefix:     cfg.Cache.Redis.Prefix,
			DefaultTTL: config.Duration(cfg.Cache.TTL),
		}
	}
	return opts
}

// Handler retorna el http.Handler completo.
func (a *App) Handler() http.Handler { return a.handler }

// Issuer retorna el emisor de tokens (nil si auth está deshabilitada).
func (a *App) Issuer() *jwtx.Issuer { return a.issuer }

// Run sirve HTTP hasta que ctx se cancele.
func (a *App) Run(ctx context.Context) error {
	srv := server.New(server.Config{
		Addr:            a.cfg.Server.Addr,
		ReadTimeout:     config.Duration(a.cfg.Server.ReadTimeout),
		WriteTimeout:    config.Duration(a.cfg.Server.WriteTimeout),
		ShutdownTimeout: config.Duration(a.cfg.Server.ShutdownTimeout),
	}, a.handler)
	return srv.Run(ctx)
}

// Close libera el storage y el cliente del limiter.
func (a *App) Close() error {
	start := time.Now()
	if a.rateClient != nil {
		_ = a.rateClient.Close()
	}
	err := a.conn.Close()
	logger.L().Info("storage closed", logger.Component("app"), logger.Duration(time.Since(start)))
	return err
}
