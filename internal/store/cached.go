package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/docstore/internal/cache"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/metrics"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
)

// CachedRepository envuelve un DocumentRepository con un cache read-through.
// Las escrituras siempre van al repositorio; el gate nunca lee del cache.
// Las lecturas pueden quedar atrasadas como mucho el TTL.
type CachedRepository struct {
	next  repository.DocumentRepository
	cache cache.Client
	ttl   time.Duration

	// sf agrupa misses concurrentes sobre el mismo documento
	sf singleflight.Group
}

// NewCachedRepository crea el wrapper. ttl 0 usa el default del cliente.
func NewCachedRepository(next repository.DocumentRepository, c cache.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, cache: c, ttl: ttl}
}

// namespace no admite '/', así que la key es unívoca.
func cacheKey(namespace, id string) string {
	return "doc:" + namespace + "/" + id
}

func (r *CachedRepository) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	key := cacheKey(namespace, id)

	if doc, ok := r.lookup(ctx, key, namespace, id); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		if !doc.Live() {
			return nil, repository.ErrNotFound
		}
		return doc, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// La lectura es compartida: no debe cortarse si se cancela el primer llamador.
		sctx := context.WithoutCancel(ctx)
		doc, err := r.next.Get(sctx, namespace, id)
		if err != nil {
			return nil, err
		}
		r.refresh(sctx, key, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	// El resultado de singleflight es compartido entre llamadores.
	return v.(*repository.Document).Clone(), nil
}

func (r *CachedRepository) Index(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	res, err := r.next.Index(ctx, req)
	key := cacheKey(req.Namespace, req.ID)
	if err != nil {
		r.invalidate(ctx, key, err)
		return nil, err
	}
	r.refresh(ctx, key, &repository.Document{
		Namespace: req.Namespace,
		ID:        req.ID,
		Version:   res.Version,
		Payload:   append([]byte(nil), req.Payload...),
		UpdatedAt: time.Now().UTC(),
	})
	return res, nil
}

func (r *CachedRepository) Delete(ctx context.Context, req repository.DeleteRequest) (*repository.WriteResult, error) {
	res, err := r.next.Delete(ctx, req)
	key := cacheKey(req.Namespace, req.ID)
	if err != nil {
		r.invalidate(ctx, key, err)
		return nil, err
	}
	r.refresh(ctx, key, &repository.Document{
		Namespace: req.Namespace,
		ID:        req.ID,
		Version:   res.Version,
		Deleted:   true,
		UpdatedAt: time.Now().UTC(),
	})
	return res, nil
}

func (r *CachedRepository) lookup(ctx context.Context, key, namespace, id string) (*repository.Document, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsNotFound(err) {
			metrics.CacheRequests.WithLabelValues("error").Inc()
			logger.From(ctx).Warn("document cache get failed", logger.Component("store.cache"), logger.Key(key), logger.Err(err))
		}
		return nil, false
	}
	doc, err := DecodeRecord(namespace, id, data)
	if err != nil {
		_ = r.cache.Delete(ctx, key)
		return nil, false
	}
	return doc, true
}

// refresh guarda doc sólo si su versión es mayor a la cacheada.
// Compare-then-set no es atómico: una carrera puede dejar una versión vieja
// hasta que expire el TTL.
func (r *CachedRepository) refresh(ctx context.Context, key string, doc *repository.Document) {
	if cur, ok := r.lookup(ctx, key, doc.Namespace, doc.ID); ok && cur.Version >= doc.Version {
		return
	}
	data, err := EncodeRecord(doc)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		logger.From(ctx).Warn("document cache set failed", logger.Component("store.cache"), logger.Key(key), logger.Err(err))
	}
}

// invalidate descarta la entrada tras una escritura fallida. Un conflicto o un
// not found indican que la entrada cacheada puede no reflejar el estado real.
func (r *CachedRepository) invalidate(ctx context.Context, key string, cause error) {
	if err := r.cache.Delete(ctx, key); err != nil && !cache.IsNotFound(err) {
		logger.From(ctx).Warn("document cache invalidate failed",
			logger.Component("store.cache"), logger.Key(key), logger.Err(err), zap.NamedError("cause", cause))
	}
}

var _ repository.DocumentRepository = (*CachedRepository)(nil)
