package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/cache"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
	"github.com/dropDatabas3/docstore/internal/store/adapters/memory"
	"github.com/dropDatabas3/docstore/internal/store/storetest"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

func newCached(t *testing.T) (*store.CachedRepository, *memory.Store) {
	t.Helper()
	backing := memory.New()
	c := cache.NewMemory("test", time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return store.NewCachedRepository(backing, c, time.Minute), backing
}

func TestCachedRepository_Conformance(t *testing.T) {
	repo, _ := newCached(t)
	storetest.Run(t, func(t *testing.T) repository.DocumentRepository { return repo })
}

func TestCachedRepository_ServesWrittenVersion(t *testing.T) {
	ctx := context.Background()
	repo, backing := newCached(t)

	_, err := repo.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Payload: []byte(`{"a":1}`)})
	require.NoError(t, err)

	// Escribir directo al backing store no pasa por el cache.
	_, err = backing.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Payload: []byte(`{"a":2}`)})
	require.NoError(t, err)

	doc, err := repo.Get(ctx, "books", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.JSONEq(t, `{"a":1}`, string(doc.Payload))
}

func TestCachedRepository_ConflictInvalidates(t *testing.T) {
	ctx := context.Background()
	repo, backing := newCached(t)

	_, err := repo.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Payload: []byte(`{}`)})
	require.NoError(t, err)
	_, err = backing.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Payload: []byte(`{"b":true}`)})
	require.NoError(t, err)

	_, err = repo.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Version: 1, Payload: []byte(`{}`)})
	require.True(t, versioning.IsConflict(err))

	doc, err := repo.Get(ctx, "books", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)
}

func TestCachedRepository_DeleteCachesTombstone(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCached(t)

	_, err := repo.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Payload: []byte(`{}`)})
	require.NoError(t, err)
	_, err = repo.Get(ctx, "books", "1")
	require.NoError(t, err)

	_, err = repo.Delete(ctx, repository.DeleteRequest{Namespace: "books", ID: "1"})
	require.NoError(t, err)

	_, err = repo.Get(ctx, "books", "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// ctxRepo falla como un driver real cuando el contexto ya está cancelado.
type ctxRepo struct {
	repository.DocumentRepository
}

func (ctxRepo) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &repository.Document{Namespace: namespace, ID: id, Version: 3, Payload: []byte(`{}`)}, nil
}

func TestCachedRepository_SharedLoadIgnoresCallerCancel(t *testing.T) {
	c := cache.NewMemory("test", time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	repo := store.NewCachedRepository(ctxRepo{}, c, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := repo.Get(ctx, "books", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Version)

	// quedó en cache para los demás llamadores
	doc, err = repo.Get(context.Background(), "books", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Version)
}

func TestCachedRepository_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCached(t)

	_, err := repo.Index(ctx, repository.WriteRequest{Namespace: "books", ID: "1", Payload: []byte(`{"a":1}`)})
	require.NoError(t, err)

	a, err := repo.Get(ctx, "books", "1")
	require.NoError(t, err)
	a.Payload[0] = 'X'

	b, err := repo.Get(ctx, "books", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b.Payload))
}

func TestOpen_WithCache(t *testing.T) {
	conn, err := store.Open(context.Background(), store.Options{
		Adapter: store.AdapterConfig{Name: "memory"},
		Cache:   &cache.Config{Driver: "memory", DefaultTTL: time.Second},
	})
	require.NoError(t, err)
	defer conn.Close()

	_, ok := conn.Documents().(*store.CachedRepository)
	assert.True(t, ok)
	assert.Nil(t, conn.Cluster())
}

func TestOpen_UnknownAdapter(t *testing.T) {
	_, err := store.Open(context.Background(), store.Options{Adapter: store.AdapterConfig{Name: "nope"}})
	require.Error(t, err)
}
