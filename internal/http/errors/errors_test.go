package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrInvalidParameter.WithDetail("bad version"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_PARAMETER", body["code"])
	assert.Equal(t, "bad version", body["detail"])
	assert.NotContains(t, body, "current_version")
}

func TestWriteError_GenericIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestWriteError_VersionConflictFields(t *testing.T) {
	_, _, err := repository.ApplyWrite(
		&repository.Document{Namespace: "books", ID: "1", Version: 2},
		repository.WriteRequest{Namespace: "books", ID: "1", Version: 1, VersionType: versioning.Internal},
		testNow,
	)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteError(rec, ErrVersionConflict.WithCause(fmt.Errorf("index: %w", err)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VERSION_CONFLICT", body["code"])
	assert.Equal(t, "books", body["index"])
	assert.Equal(t, "1", body["id"])
	assert.EqualValues(t, 2, body["current_version"])
	assert.EqualValues(t, 1, body["provided_version"])
	assert.Equal(t, "internal", body["version_type"])
	assert.Equal(t, "[1]: version conflict, current version [2] is different than the one provided [1]", body["detail"])
}

func TestWithDetail_DoesNotMutateBase(t *testing.T) {
	_ = ErrNotFound.WithDetail("x")
	assert.Empty(t, ErrNotFound.Detail)
}
