package raft

import (
	"context"
	"time"

	"github.com/dropDatabas3/docstore/internal/cluster"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
	"github.com/dropDatabas3/docstore/internal/store/adapters/memory"
)

// applier es la parte de cluster.Node que usa el repositorio.
type applier interface {
	IsLeader() bool
	Apply(ctx context.Context, m cluster.Mutation) (*cluster.ApplyResult, error)
}

// documentRepo replica escrituras por Raft y lee del estado local.
type documentRepo struct {
	node  applier
	state *memory.Store
}

// Get lee del FSM local; en followers puede estar atrasado respecto del líder.
func (r *documentRepo) Get(ctx context.Context, namespace, id string) (*repository.Document, error) {
	return r.state.Get(ctx, namespace, id)
}

func (r *documentRepo) Index(ctx context.Context, req repository.WriteRequest) (*repository.WriteResult, error) {
	return r.apply(ctx, cluster.IndexMutation(req, time.Now()))
}

func (r *documentRepo) Delete(ctx context.Context, req repository.DeleteRequest) (*repository.WriteResult, error) {
	return r.apply(ctx, cluster.DeleteMutation(req, time.Now()))
}

func (r *documentRepo) apply(ctx context.Context, m cluster.Mutation) (*repository.WriteResult, error) {
	if !r.node.IsLeader() {
		return nil, store.ErrNotLeader
	}
	res, err := r.node.Apply(ctx, m)
	if err != nil {
		return nil, err
	}
	return res.Result, res.Err
}

var _ repository.DocumentRepository = (*documentRepo)(nil)
