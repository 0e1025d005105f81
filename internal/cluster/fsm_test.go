package cluster_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/cluster"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store/adapters/memory"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

var ts = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func apply(t *testing.T, fsm *cluster.FSM, index uint64, m cluster.Mutation) *cluster.ApplyResult {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	ret := fsm.Apply(&raft.Log{Index: index, Data: data})
	res, ok := ret.(*cluster.ApplyResult)
	require.True(t, ok, "unexpected fsm response %T: %v", ret, ret)
	return res
}

func TestFSM_Apply_InternalScenario(t *testing.T) {
	state := memory.New()
	fsm := cluster.NewFSM(state)

	res := apply(t, fsm, 1, cluster.IndexMutation(repository.WriteRequest{Namespace: "idx", ID: "a", Payload: []byte(`{"n":1}`)}, ts))
	require.NoError(t, res.Err)
	assert.Equal(t, int64(1), res.Result.Version)
	assert.Equal(t, repository.ResultCreated, res.Result.Result)

	res = apply(t, fsm, 2, cluster.IndexMutation(repository.WriteRequest{Namespace: "idx", ID: "a", Version: 1, Payload: []byte(`{"n":2}`)}, ts))
	require.NoError(t, res.Err)
	assert.Equal(t, int64(2), res.Result.Version)

	res = apply(t, fsm, 3, cluster.IndexMutation(repository.WriteRequest{Namespace: "idx", ID: "a", Version: 1, Payload: []byte(`{"n":3}`)}, ts))
	ce, ok := versioning.AsConflict(res.Err)
	require.True(t, ok)
	assert.Equal(t, int64(2), ce.Current)
	assert.Equal(t, int64(1), ce.Provided)

	doc := state.Raw("idx", "a")
	require.NotNil(t, doc)
	assert.JSONEq(t, `{"n":2}`, string(doc.Payload))
	assert.True(t, doc.UpdatedAt.Equal(ts), "timestamp comes from the mutation")
}

func TestFSM_Apply_ExternalAndDelete(t *testing.T) {
	state := memory.New()
	fsm := cluster.NewFSM(state)

	res := apply(t, fsm, 1, cluster.IndexMutation(repository.WriteRequest{
		Namespace: "idx", ID: "b", Version: 5, VersionType: versioning.External, Payload: []byte(`{}`),
	}, ts))
	require.NoError(t, res.Err)
	assert.Equal(t, int64(5), res.Result.Version)

	res = apply(t, fsm, 2, cluster.DeleteMutation(repository.DeleteRequest{
		Namespace: "idx", ID: "b", Version: 9, VersionType: versioning.External,
	}, ts))
	require.NoError(t, res.Err)
	assert.Equal(t, repository.ResultDeleted, res.Result.Result)
	assert.Equal(t, int64(9), res.Result.Version)

	res = apply(t, fsm, 3, cluster.DeleteMutation(repository.DeleteRequest{Namespace: "idx", ID: "b"}, ts))
	assert.ErrorIs(t, res.Err, repository.ErrNotFound)
}

func TestFSM_Apply_BadEntries(t *testing.T) {
	fsm := cluster.NewFSM(memory.New())

	assert.Nil(t, fsm.Apply(&raft.Log{}))

	ret := fsm.Apply(&raft.Log{Data: []byte("{not json")})
	_, isErr := ret.(error)
	assert.True(t, isErr)

	data, _ := json.Marshal(cluster.Mutation{Type: "doc.bogus"})
	ret = fsm.Apply(&raft.Log{Data: data})
	_, isErr = ret.(error)
	assert.True(t, isErr)
}

// Dos réplicas que aplican el mismo log llegan al mismo estado.
func TestFSM_Deterministic(t *testing.T) {
	muts := []cluster.Mutation{
		cluster.IndexMutation(repository.WriteRequest{Namespace: "n", ID: "1", Payload: []byte(`{"a":1}`)}, ts),
		cluster.IndexMutation(repository.WriteRequest{Namespace: "n", ID: "1", Version: 1, Payload: []byte(`{"a":2}`)}, ts.Add(time.Second)),
		cluster.IndexMutation(repository.WriteRequest{Namespace: "n", ID: "1", Version: 1, Payload: []byte(`{"a":3}`)}, ts.Add(2*time.Second)),
		cluster.DeleteMutation(repository.DeleteRequest{Namespace: "n", ID: "1"}, ts.Add(3*time.Second)),
		cluster.IndexMutation(repository.WriteRequest{Namespace: "n", ID: "2", Version: 7, VersionType: versioning.External, Payload: []byte(`{}`)}, ts),
	}
	a, b := memory.New(), memory.New()
	fa, fb := cluster.NewFSM(a), cluster.NewFSM(b)
	for i, m := range muts {
		ra := apply(t, fa, uint64(i+1), m)
		rb := apply(t, fb, uint64(i+1), m)
		assert.Equal(t, ra.Result, rb.Result)
		assert.Equal(t, ra.Err == nil, rb.Err == nil)
	}
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

type memSink struct {
	bytes.Buffer
	cancelled bool
}

func (s *memSink) ID() string    { return "test" }
func (s *memSink) Close() error  { return nil }
func (s *memSink) Cancel() error { s.cancelled = true; return nil }

func TestFSM_SnapshotRestore(t *testing.T) {
	state := memory.New()
	fsm := cluster.NewFSM(state)
	apply(t, fsm, 1, cluster.IndexMutation(repository.WriteRequest{Namespace: "idx", ID: "live", Payload: []byte(`{"x":1}`)}, ts))
	apply(t, fsm, 2, cluster.IndexMutation(repository.WriteRequest{Namespace: "idx", ID: "gone", Payload: []byte(`{}`)}, ts))
	apply(t, fsm, 3, cluster.DeleteMutation(repository.DeleteRequest{Namespace: "idx", ID: "gone"}, ts))

	snap, err := fsm.Snapshot()
	require.NoError(t, err)
	sink := &memSink{}
	require.NoError(t, snap.Persist(sink))
	snap.Release()
	require.False(t, sink.cancelled)

	restored := memory.New()
	require.NoError(t, cluster.NewFSM(restored).Restore(io.NopCloser(bytes.NewReader(sink.Bytes()))))
	assert.Equal(t, state.Snapshot(), restored.Snapshot())

	// El tombstone sobrevive al restore.
	tomb := restored.Raw("idx", "gone")
	require.NotNil(t, tomb)
	assert.True(t, tomb.Deleted)
	assert.Equal(t, int64(2), tomb.Version)
}

func TestFSM_RestoreRejectsGarbage(t *testing.T) {
	err := cluster.NewFSM(memory.New()).Restore(io.NopCloser(bytes.NewReader([]byte("plain"))))
	assert.Error(t, err)
}
