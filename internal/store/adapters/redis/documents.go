package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/store"
)

type documentRepo struct {
	client     *goredis.Client
	prefix     string
	maxRetries int
}

// key: prefix:namespace:id. El namespace no admite ':'; el id puede contenerlo
// porque es el último segmento.
func (r *documentRepo) key(namespace, id string) string {
	return r.prefix + ":" + namespace + ":" + id
}

func (r *documentRepo) load(ctx context.Context, c goredis.Cmdable, namespace, id string) (*repository.Document, error) {
	data, err := c.Get(ctx, r.key(namespace, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeRecord(namespace, id, data)
}

func (r *documentRepo) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	doc, err := r.load(ctx, r.client, namespace, id)
	if err != nil {
		return nil, err
	}
	if !doc.Live() {
		return nil, repository.ErrNotFound
	}
	return doc, nil
}

func (r *documentRepo) Index(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	return r.mutate(ctx, req.Namespace, req.ID, func(cur *repository.Document) (*repository.Document, *repository.WriteResult, error) {
		return repository.ApplyWrite(cur, req, time.Now())
	})
}

func (r *documentRepo) Delete(ctx context.Context, req repository.DeleteRequest) (*repository.WriteResult, error) {
	return r.mutate(ctx, req.Namespace, req.ID, func(cur *repository.Document) (*repository.Document, *repository.WriteResult, error) {
		return repository.ApplyDelete(cur, req, time.Now())
	})
}

type transition func(cur *repository.Document) (*repository.Document, *repository.WriteResult, error)

// mutate ejecuta read-evaluate-write con WATCH. Si otra escritura toca la key
// entre el GET y el EXEC, la transacción falla (TxFailedErr) y se reevalúa
// el gate con el valor nuevo.
func (r *documentRepo) mutate(ctx context.Context, namespace, id string, fn transition) (*repository.WriteResult, error) {
	key := r.key(namespace, id)
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		var res *repository.WriteResult
		err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
			cur, err := r.load(ctx, tx, namespace, id)
			if err != nil {
				return err
			}
			next, wr, err := fn(cur)
			if err != nil {
				return err
			}
			data, err := store.EncodeRecord(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			if err == nil {
				res = wr
			}
			return err
		}, key)

		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, goredis.TxFailedErr):
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		default:
			return nil, err
		}
	}
	logger.From(ctx).Warn("redis write retries exhausted",
		logger.Component("store.redis"),
		logger.Namespace(namespace),
		logger.DocID(id),
		logger.Count(r.maxRetries),
	)
	return nil, store.ErrContention
}

var _ repository.DocumentRepository = (*documentRepo)(nil)
