// Package storetest contiene la suite de conformidad que todo
// DocumentRepository debe pasar.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

// Factory crea (o reutiliza) un repositorio para un subtest.
type Factory func(t *testing.T) repository.DocumentRepository

// Concurrency es la cantidad de escritores en los tests de carrera.
var Concurrency = 16

var nsSeq atomic.Int64

// namespace único por subtest, para backends compartidos (pg, redis, nats).
func namespace() string {
	return fmt.Sprintf("suite-%d-%d", time.Now().UnixNano(), nsSeq.Add(1))
}

// Run ejecuta la suite completa.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo repository.DocumentRepository, ns string)
	}{
		{"ScenarioInternal", testScenarioInternal},
		{"ScenarioExternal", testScenarioExternal},
		{"StaleInternalLeavesStateUnchanged", testStaleInternalUnchanged},
		{"ExternalNotGreaterLeavesStateUnchanged", testExternalUnchanged},
		{"UnconditionalInternal", testUnconditionalInternal},
		{"CreateOnly", testCreateOnly},
		{"MustExist", testMustExist},
		{"GetMissing", testGetMissing},
		{"DeleteAndTombstone", testDeleteAndTombstone},
		{"DeleteMissing", testDeleteMissing},
		{"DeleteStaleVersion", testDeleteStale},
		{"PayloadRoundTrip", testPayloadRoundTrip},
		{"RaceSameExpectedVersion", testRaceSameVersion},
		{"RaceCreateOnly", testRaceCreateOnly},
		{"RaceUnconditional", testRaceUnconditional},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, factory(t), namespace())
		})
	}
}

func index(t *testing.T, repo repository.DocumentRepository, req repository.WriteRequest) (*repository.WriteResult, error) {
	t.Helper()
	if req.Payload == nil {
		req.Payload = []byte(`{"n":1}`)
	}
	return repo.Index(context.Background(), req)
}

func requireVersion(t *testing.T, repo repository.DocumentRepository, ns, id string, want int64) {
	t.Helper()
	doc, err := repo.Get(context.Background(), ns, id)
	require.NoError(t, err)
	require.Equal(t, want, doc.Version)
}

func requireConflict(t *testing.T, err error, current, provided int64) {
	t.Helper()
	ce, ok := versioning.AsConflict(err)
	require.True(t, ok, "expected version conflict, got %v", err)
	assert.Equal(t, current, ce.Current)
	assert.Equal(t, provided, ce.Provided)
}

func testScenarioInternal(t *testing.T, repo repository.DocumentRepository, ns string) {
	res, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, repository.ResultCreated, res.Result)

	res, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "a", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)
	assert.Equal(t, repository.ResultUpdated, res.Result)

	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "a", Version: 1})
	requireConflict(t, err, 2, 1)
	requireVersion(t, repo, ns, "a", 2)
}

func testScenarioExternal(t *testing.T, repo repository.DocumentRepository, ns string) {
	ext := versioning.External
	res, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "b", Version: 5, VersionType: ext})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version)

	res, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "b", Version: 10, VersionType: ext})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Version)

	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "b", Version: 10, VersionType: ext})
	requireConflict(t, err, 10, 10)
	requireVersion(t, repo, ns, "b", 10)
}

func testStaleInternalUnchanged(t *testing.T, repo repository.DocumentRepository, ns string) {
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "s", Payload: []byte(`{"v":"orig"}`)})
	require.NoError(t, err)

	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "s", Version: 7, Payload: []byte(`{"v":"new"}`)})
	requireConflict(t, err, 1, 7)

	doc, err := repo.Get(context.Background(), ns, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.JSONEq(t, `{"v":"orig"}`, string(doc.Payload))
}

func testExternalUnchanged(t *testing.T, repo repository.DocumentRepository, ns string) {
	ext := versioning.External
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "e", Version: 8, VersionType: ext, Payload: []byte(`{"v":8}`)})
	require.NoError(t, err)

	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "e", Version: 3, VersionType: ext, Payload: []byte(`{"v":3}`)})
	requireConflict(t, err, 8, 3)

	doc, err := repo.Get(context.Background(), ns, "e")
	require.NoError(t, err)
	assert.Equal(t, int64(8), doc.Version)
	assert.JSONEq(t, `{"v":8}`, string(doc.Payload))
}

func testUnconditionalInternal(t *testing.T, repo repository.DocumentRepository, ns string) {
	for i := int64(1); i <= 3; i++ {
		res, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "u"})
		require.NoError(t, err)
		assert.Equal(t, i, res.Version)
	}
}

func testCreateOnly(t *testing.T, repo repository.DocumentRepository, ns string) {
	res, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "c", OpType: repository.OpCreate})
	require.NoError(t, err)
	assert.Equal(t, repository.ResultCreated, res.Result)

	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "c", OpType: repository.OpCreate})
	require.True(t, versioning.IsConflict(err))
	requireVersion(t, repo, ns, "c", 1)
}

func testMustExist(t *testing.T, repo repository.DocumentRepository, ns string) {
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "m", MustExist: true})
	require.True(t, versioning.IsConflict(err))

	_, err = repo.Get(context.Background(), ns, "m")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testGetMissing(t *testing.T, repo repository.DocumentRepository, ns string) {
	_, err := repo.Get(context.Background(), ns, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func testDeleteAndTombstone(t *testing.T, repo repository.DocumentRepository, ns string) {
	ctx := context.Background()
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "d"})
	require.NoError(t, err)

	res, err := repo.Delete(ctx, repository.DeleteRequest{Namespace: ns, ID: "d", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)
	assert.Equal(t, repository.ResultDeleted, res.Result)

	_, err = repo.Get(ctx, ns, "d")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Una escritura posterior continúa desde la versión del tombstone.
	res, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "d"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)
	assert.Equal(t, repository.ResultCreated, res.Result)

	_, err = repo.Delete(ctx, repository.DeleteRequest{Namespace: ns, ID: "d"})
	require.NoError(t, err)
	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "d", Version: 4, VersionType: versioning.External})
	requireConflict(t, err, 4, 4)
}

func testDeleteMissing(t *testing.T, repo repository.DocumentRepository, ns string) {
	ctx := context.Background()
	_, err := repo.Delete(ctx, repository.DeleteRequest{Namespace: ns, ID: "ghost"})
	require.ErrorIs(t, err, repository.ErrNotFound)

	res, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version)
}

func testDeleteStale(t *testing.T, repo repository.DocumentRepository, ns string) {
	ctx := context.Background()
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "x"})
	require.NoError(t, err)
	_, err = index(t, repo, repository.WriteRequest{Namespace: ns, ID: "x"})
	require.NoError(t, err)

	_, err = repo.Delete(ctx, repository.DeleteRequest{Namespace: ns, ID: "x", Version: 1})
	requireConflict(t, err, 2, 1)
	requireVersion(t, repo, ns, "x", 2)
}

func testPayloadRoundTrip(t *testing.T, repo repository.DocumentRepository, ns string) {
	body := []byte(`{"title":"hola","tags":["a","b"],"n":3.5}`)
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "p/1 ü", Payload: body})
	require.NoError(t, err)

	doc, err := repo.Get(context.Background(), ns, "p/1 ü")
	require.NoError(t, err)
	assert.Equal(t, ns, doc.Namespace)
	assert.Equal(t, "p/1 ü", doc.ID)
	assert.JSONEq(t, string(body), string(doc.Payload))
	assert.False(t, doc.UpdatedAt.IsZero())
}

// N escritores con la misma versión esperada: exactamente uno gana.
func testRaceSameVersion(t *testing.T, repo repository.DocumentRepository, ns string) {
	_, err := index(t, repo, repository.WriteRequest{Namespace: ns, ID: "r"})
	require.NoError(t, err)

	var ok, conflicts atomic.Int32
	var other atomic.Pointer[error]
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := repo.Index(context.Background(), repository.WriteRequest{
				Namespace: ns, ID: "r", Version: 1,
				Payload: []byte(fmt.Sprintf(`{"writer":%d}`, i)),
			})
			switch {
			case err == nil:
				ok.Add(1)
			case versioning.IsConflict(err):
				conflicts.Add(1)
			default:
				other.Store(&err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if e := other.Load(); e != nil {
		t.Fatalf("unexpected error: %v", *e)
	}
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(Concurrency-1), conflicts.Load())
	requireVersion(t, repo, ns, "r", 2)
}

func testRaceCreateOnly(t *testing.T, repo repository.DocumentRepository, ns string) {
	var ok, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := repo.Index(context.Background(), repository.WriteRequest{
				Namespace: ns, ID: "rc", OpType: repository.OpCreate, Payload: []byte(`{}`),
			})
			if err == nil {
				ok.Add(1)
			} else if versioning.IsConflict(err) {
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(Concurrency-1), conflicts.Load())
	requireVersion(t, repo, ns, "rc", 1)
}

// Sin versión todas las escrituras ganan y las versiones no se repiten.
func testRaceUnconditional(t *testing.T, repo repository.DocumentRepository, ns string) {
	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.Index(context.Background(), repository.WriteRequest{Namespace: ns, ID: "ru", Payload: []byte(`{}`)})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[res.Version], "duplicate version %d", res.Version)
			seen[res.Version] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, Concurrency)
	requireVersion(t, repo, ns, "ru", int64(Concurrency))
}
