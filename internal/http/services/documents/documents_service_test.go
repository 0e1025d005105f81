package documents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	dto "github.com/dropDatabas3/docstore/internal/http/dto/documents"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/store/adapters/memory"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

func newService() DocumentService {
	return NewDocumentService(memory.New())
}

func write(t *testing.T, s DocumentService, id string, p dto.WriteParams) (*dto.WriteResponse, error) {
	t.Helper()
	return s.Index(context.Background(), WriteInput{Index: "books", ID: id, Body: []byte(`{"title":"x"}`), Params: p})
}

func TestIndex_InternalLifecycle(t *testing.T) {
	s := newService()

	res, err := write(t, s, "1", dto.WriteParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, "created", res.Result)

	res, err = write(t, s, "1", dto.WriteParams{Version: "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)
	assert.Equal(t, "updated", res.Result)

	_, err = write(t, s, "1", dto.WriteParams{Version: "1"})
	ce, ok := versioning.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, int64(2), ce.Current)
	assert.Equal(t, int64(1), ce.Provided)
}

func TestIndex_ExternalAliases(t *testing.T) {
	s := newService()

	res, err := write(t, s, "1", dto.WriteParams{Version: "5", VersionType: "external"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version)

	res, err = write(t, s, "1", dto.WriteParams{Version: "10", VersionType: "external_gt"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Version)

	_, err = write(t, s, "1", dto.WriteParams{Version: "10", VersionType: "external"})
	assert.True(t, versioning.IsConflict(err))

	_, err = write(t, s, "1", dto.WriteParams{Version: "11", VersionType: "external_gte"})
	assert.ErrorIs(t, err, versioning.ErrInvalidVersionType)
}

func TestIndex_InvalidParams(t *testing.T) {
	s := newService()
	cases := map[string]dto.WriteParams{
		"version not int":        {Version: "abc"},
		"negative":               {Version: "-1"},
		"internal zero":          {Version: "0"},
		"zero with if-match":     {Version: "0", IfMatchVersion: 2},
		"external missing":       {VersionType: "external"},
		"external zero":          {Version: "0", VersionType: "external"},
		"unknown type":           {VersionType: "force"},
		"op_type":                {OpType: "upsert"},
		"if-match with external": {VersionType: "external", IfMatchVersion: 3},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := write(t, s, "1", p)
			require.Error(t, err)
			assert.False(t, versioning.IsConflict(err))
		})
	}
}

func TestIndex_Validation(t *testing.T) {
	s := newService()
	ctx := context.Background()

	for _, idx := range []string{"", "Books", "_books", ".", "..", "a/b", strings.Repeat("a", 256)} {
		_, err := s.Index(ctx, WriteInput{Index: idx, ID: "1", Body: []byte(`{}`)})
		assert.ErrorIs(t, err, ErrInvalidParameter, idx)
	}

	_, err := s.Index(ctx, WriteInput{Index: "books", ID: strings.Repeat("x", 513), Body: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	for _, body := range []string{"", "[1]", `"s"`, `{"a":`} {
		_, err := s.Index(ctx, WriteInput{Index: "books", ID: "1", Body: []byte(body)})
		assert.ErrorIs(t, err, ErrInvalidPayload, body)
	}
}

func TestIndex_CreateOnlyAndGeneratedID(t *testing.T) {
	s := newService()
	ctx := context.Background()

	res, err := s.Index(ctx, WriteInput{Index: "books", Body: []byte(`{}`), GenerateID: true})
	require.NoError(t, err)
	assert.Len(t, res.ID, 36)
	assert.Equal(t, "created", res.Result)

	_, err = s.Index(ctx, WriteInput{Index: "books", ID: res.ID, Body: []byte(`{}`), CreateOnly: true})
	ce, ok := versioning.AsConflict(err)
	require.True(t, ok)
	assert.Contains(t, ce.Reason, "document already exists")

	_, err = write(t, s, res.ID, dto.WriteParams{OpType: "create"})
	assert.True(t, versioning.IsConflict(err))
}

func TestIndex_IfMatch(t *testing.T) {
	s := newService()

	_, err := write(t, s, "1", dto.WriteParams{IfMatchAny: true})
	ce, ok := versioning.AsConflict(err)
	require.True(t, ok)
	assert.Contains(t, ce.Reason, "document does not exist")

	_, err = write(t, s, "1", dto.WriteParams{})
	require.NoError(t, err)

	res, err := write(t, s, "1", dto.WriteParams{IfMatchVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)

	_, err = write(t, s, "1", dto.WriteParams{IfMatchVersion: 1})
	assert.True(t, versioning.IsConflict(err))

	// ?version tiene prioridad sobre If-Match
	res, err = write(t, s, "1", dto.WriteParams{Version: "2", IfMatchVersion: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)
}

func TestGetAndDelete(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.Get(ctx, "books", "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = write(t, s, "1", dto.WriteParams{})
	require.NoError(t, err)

	got, err := s.Get(ctx, "books", "1")
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.JSONEq(t, `{"title":"x"}`, string(got.Source))

	_, err = s.Delete(ctx, DeleteInput{Index: "books", ID: "1", Params: dto.WriteParams{Version: "7"}})
	assert.True(t, versioning.IsConflict(err))

	res, err := s.Delete(ctx, DeleteInput{Index: "books", ID: "1", Params: dto.WriteParams{Version: "1"}})
	require.NoError(t, err)
	assert.Equal(t, "deleted", res.Result)
	assert.Equal(t, int64(2), res.Version)

	_, err = s.Get(ctx, "books", "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Delete(ctx, DeleteInput{Index: "books", ID: "1"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	res, err = s.Index(ctx, WriteInput{Index: "books", ID: "1", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)
	assert.Equal(t, "created", res.Result)
}

func TestMutations_EmitAuditEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))
	s := newService()

	in := WriteInput{Index: "books", ID: "1", Body: []byte(`{}`)}
	_, err := s.Index(ctx, in)
	require.NoError(t, err)
	_, err = s.Index(ctx, in)
	require.NoError(t, err)
	_, err = s.Delete(ctx, DeleteInput{Index: "books", ID: "1"})
	require.NoError(t, err)

	audits := logs.FilterLoggerName("audit").All()
	require.Len(t, audits, 3)
	assert.Equal(t, "document.created", audits[0].Message)
	assert.Equal(t, "document.updated", audits[1].Message)
	assert.Equal(t, "document.deleted", audits[2].Message)
	assert.EqualValues(t, 3, audits[2].ContextMap()["version"])
}
