// Package memory implementa el adapter en memoria: mapa particionado de
// registros con un mutex de escritura por registro y lecturas sin lock.
package memory

import (
	"context"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return &memoryConnection{docs: New()}, nil
}

type memoryConnection struct {
	docs *Store
}

func (c *memoryConnection) Name() string                             { return "memory" }
func (c *memoryConnection) Ping(ctx context.Context) error           { return nil }
func (c *memoryConnection) Close() error                             { return nil }
func (c *memoryConnection) Documents() repository.DocumentRepository { return c.docs }
func (c *memoryConnection) Cluster() repository.ClusterRepository    { return nil }
