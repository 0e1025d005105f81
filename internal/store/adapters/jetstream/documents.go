package jetstream

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/store"
)

type documentRepo struct {
	kv         jetstream.KeyValue
	maxRetries int
}

// key: namespace.<base64url(id)>. Los ids arbitrarios no son tokens NATS válidos.
func key(namespace, id string) string {
	return namespace + "." + base64.RawURLEncoding.EncodeToString([]byte(id))
}

// load retorna el documento y la revisión de la entrada (0 si no existe).
func (r *documentRepo) load(ctx context.Context, namespace, id string) (*repository.Document, uint64, error) {
	entry, err := r.kv.Get(ctx, key(namespace, id))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	doc, err := store.DecodeRecord(namespace, id, entry.Value())
	if err != nil {
		return nil, 0, err
	}
	return doc, entry.Revision(), nil
}

func (r *documentRepo) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	doc, _, err := r.load(ctx, namespace, id)
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

// mutate lee la entrada, evalúa el gate y escribe condicionado a la revisión leída.
// Si otra escritura avanzó la revisión, se reevalúa contra el valor nuevo.
func (r *documentRepo) mutate(ctx context.Context, namespace, id string, fn transition) (*repository.WriteResult, error) {
	k := key(namespace, id)
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		cur, rev, err := r.load(ctx, namespace, id)
		if err != nil {
			return nil, err
		}
		next, res, err := fn(cur)
		if err != nil {
			return nil, err
		}
		data, err := store.EncodeRecord(next)
		if err != nil {
			return nil, err
		}

		if rev == 0 {
			_, err = r.kv.Create(ctx, k, data)
		} else {
			_, err = r.kv.Update(ctx, k, data, rev)
		}
		if err == nil {
			return res, nil
		}
		if !isRevisionMismatch(err) {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	logger.From(ctx).Warn("jetstream write retries exhausted",
		logger.Component("store.jetstream"),
		logger.Namespace(namespace),
		logger.DocID(id),
		logger.Count(r.maxRetries),
	)
	return nil, store.ErrContention
}

func isRevisionMismatch(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

var _ repository.DocumentRepository = (*documentRepo)(nil)
