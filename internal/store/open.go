package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/docstore/internal/cache"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/util"
)

// Options configuración de Open.
type Options struct {
	Adapter AdapterConfig

	// Cache nil deshabilita el cache de lecturas.
	Cache *cache.Config
}

// Open conecta el adapter configurado y, si corresponde, envuelve el
// repositorio de documentos con el cache de lecturas.
func Open(ctx context.Context, opts Options) (AdapterConnection, error) {
	start := time.Now()
	conn, err := OpenAdapter(ctx, opts.Adapter)
	if err != nil {
		return nil, err
	}
	log := logger.From(ctx).With(logger.Component("store"))
	if opts.Adapter.DSN != "" {
		log = log.With(logger.String("dsn", util.MaskDSN(opts.Adapter.DSN)))
	}

	if opts.Cache == nil {
		log.Info("storage opened", logger.String("adapter", conn.Name()), logger.Duration(time.Since(start)))
		return conn, nil
	}

	c, err := cache.New(*opts.Cache)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: cache: %w", err)
	}
	log.Info("storage opened",
		logger.String("adapter", conn.Name()),
		logger.String("cache", opts.Cache.Driver),
		logger.Duration(time.Since(start)),
	)
	return &cachedConnection{
		AdapterConnection: conn,
		cache:             c,
		docs:              NewCachedRepository(conn.Documents(), c, opts.Cache.DefaultTTL),
	}, nil
}

type cachedConnection struct {
	AdapterConnection
	cache cache.Client
	docs  *CachedRepository
}

func (c *cachedConnection) Documents() repository.DocumentRepository { return c.docs }

func (c *cachedConnection) Close() error {
	cerr := c.cache.Close()
	if err := c.AdapterConnection.Close(); err != nil {
		return err
	}
	return cerr
}

// CachePinger lo implementa una conexión abierta con cache.
type CachePinger interface {
	PingCache(ctx context.Context) error
}

func (c *cachedConnection) PingCache(ctx context.Context) error { return c.cache.Ping(ctx) }
