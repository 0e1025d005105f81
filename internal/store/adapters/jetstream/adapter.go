// Package jetstream implementa el adapter sobre NATS JetStream KV.
// La revisión de cada entrada actúa como compare-and-swap para el gate.
package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
)

const (
	defaultBucket     = "docstore_documents"
	defaultMaxRetries = 32
)

func init() {
	store.RegisterAdapter(&jetstreamAdapter{})
}

type jetstreamAdapter struct{}

func (a *jetstreamAdapter) Name() string { return "jetstream" }

func (a *jetstreamAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	url := cfg.NATS.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Name("docstore"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("jetstream: connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: init: %w", err)
	}

	bucket := cfg.NATS.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	history := cfg.NATS.History
	if history <= 0 {
		history = 1
	}
	replicas := cfg.NATS.Replicas
	if replicas <= 0 {
		replicas = 1
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "docstore versioned documents",
		History:     uint8(history),
		Replicas:    replicas,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: bucket %s: %w", bucket, err)
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &jetstreamConnection{
		nc:   nc,
		docs: &documentRepo{kv: kv, maxRetries: retries},
	}, nil
}

type jetstreamConnection struct {
	nc   *nats.Conn
	docs *documentRepo
}

func (c *jetstreamConnection) Name() string { return "jetstream" }

func (c *jetstreamConnection) Ping(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("jetstream: not connected (status %s)", c.nc.Status())
	}
	return c.nc.FlushWithContext(ctx)
}

func (c *jetstreamConnection) Close() error {
	c.nc.Close()
	return nil
}

func (c *jetstreamConnection) Documents() repository.DocumentRepository { return c.docs }
func (c *jetstreamConnection) Cluster() repository.ClusterRepository    { return nil }
