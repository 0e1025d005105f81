package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestBuild_Envs(t *testing.T) {
	for _, env := range []string{"dev", "prod", "test", ""} {
		l := build(Config{Env: env, Level: "info", ServiceName: "docstore"})
		require.NotNil(t, l, env)
	}
}

func TestFrom_ContextScoped(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	ctx := ToContext(context.Background(), L().With(RequestID("r-1")))
	FromWithFields(ctx, Namespace("books"), DocID("42")).Info("indexed", Version(3))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "books", fields["index"])
	assert.Equal(t, "42", fields["doc_id"])
	assert.Equal(t, int64(3), fields["version"])
}

func TestFrom_NilContextFallsBack(t *testing.T) {
	assert.NotNil(t, From(nil))
}
