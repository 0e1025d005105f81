package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
)

// insertAttempts: un INSERT que pierde la carrera (0 filas) relee la fila
// ya comprometida y vuelve a evaluar el gate una vez.
const insertAttempts = 2

type documentRepo struct {
	pool *pgxpool.Pool
}

const selectDocument = `
	SELECT version, payload, deleted, updated_at
	FROM documents
	WHERE namespace = $1 AND id = $2`

func scanDocument(row pgx.Row, namespace, id string) (*repository.Document, error) {
	doc := &repository.Document{Namespace: namespace, ID: id}
	var payload []byte
	err := row.Scan(&doc.Version, &payload, &doc.Deleted, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.Payload = payload
	return doc, nil
}

func (r *documentRepo) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx, selectDocument, namespace, id), namespace, id)
	if err != nil {
		return nil, fmt.Errorf("pg: get document: %w", err)
	}
	if !doc.Live() {
		return nil, repository.ErrNotFound
	}
	return doc, nil
}

func (r *documentRepo) Index(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	var res *repository.WriteResult
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for attempt := 0; attempt < insertAttempts; attempt++ {
			cur, err := lockDocument(ctx, tx, req.Namespace, req.ID)
			if err != nil {
				return err
			}
			next, wr, err := repository.ApplyWrite(cur, req, time.Now())
			if err != nil {
				return err
			}
			if cur != nil {
				if err := updateDocument(ctx, tx, next); err != nil {
					return err
				}
				res = wr
				return nil
			}
			inserted, err := insertDocument(ctx, tx, next)
			if err != nil {
				return err
			}
			if inserted {
				res = wr
				return nil
			}
		}
		return fmt.Errorf("pg: concurrent insert on %s/%s not resolved", req.Namespace, req.ID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *documentRepo) Delete(ctx context.Context, req repository.DeleteRequest) (*repository.WriteResult, error) {
	var res *repository.WriteResult
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cur, err := lockDocument(ctx, tx, req.Namespace, req.ID)
		if err != nil {
			return err
		}
		next, wr, err := repository.ApplyDelete(cur, req, time.Now())
		if err != nil {
			return err
		}
		if err := updateDocument(ctx, tx, next); err != nil {
			return err
		}
		res = wr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func lockDocument(ctx context.Context, tx pgx.Tx, namespace, id string) (*repository.Document, error) {
	doc, err := scanDocument(tx.QueryRow(ctx, selectDocument+" FOR UPDATE", namespace, id), namespace, id)
	if err != nil {
		return nil, fmt.Errorf("pg: lock document: %w", err)
	}
	return doc, nil
}

// insertDocument retorna false si otra transacción insertó la fila primero.
func insertDocument(ctx context.Context, tx pgx.Tx, d *repository.Document) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO documents (namespace, id, version, payload, deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (namespace, id) DO NOTHING`,
		d.Namespace, d.ID, d.Version, nullableJSON(d.Payload), d.Deleted, d.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("pg: insert document: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func updateDocument(ctx context.Context, tx pgx.Tx, d *repository.Document) error {
	_, err := tx.Exec(ctx, `
		UPDATE documents
		SET version = $3, payload = $4, deleted = $5, updated_at = $6
		WHERE namespace = $1 AND id = $2`,
		d.Namespace, d.ID, d.Version, nullableJSON(d.Payload), d.Deleted, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("pg: update document: %w", err)
	}
	return nil
}

// nullableJSON: los tombstones no tienen payload.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var _ repository.DocumentRepository = (*documentRepo)(nil)
