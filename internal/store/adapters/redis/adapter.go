// Package redis implementa el adapter Redis: cada documento es una key con
// el registro serializado; el gate corre bajo WATCH/MULTI/EXEC.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
)

const (
	defaultPrefix     = "docstore"
	defaultMaxRetries = 32
)

func init() {
	store.RegisterAdapter(&redisAdapter{})
}

type redisAdapter struct{}

func (a *redisAdapter) Name() string { return "redis" }

func (a *redisAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	addr := cfg.Redis.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &redisConnection{
		client: client,
		docs:   &documentRepo{client: client, prefix: prefix, maxRetries: retries},
	}, nil
}

type redisConnection struct {
	client *goredis.Client
	docs   *documentRepo
}

func (c *redisConnection) Name() string { return "redis" }

func (c *redisConnection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisConnection) Close() error { return c.client.Close() }

func (c *redisConnection) Documents() repository.DocumentRepository { return c.docs }
func (c *redisConnection) Cluster() repository.ClusterRepository    { return nil }
