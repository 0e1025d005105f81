package jetstream

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
	"github.com/dropDatabas3/docstore/internal/store/storetest"
)

func TestKey_EncodesID(t *testing.T) {
	k := key("books", "a b/ü.c")
	require.True(t, strings.HasPrefix(k, "books."))
	assert.NotContains(t, strings.TrimPrefix(k, "books."), ".")

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(k, "books."))
	require.NoError(t, err)
	assert.Equal(t, "a b/ü.c", string(raw))
}

func TestIsRevisionMismatch(t *testing.T) {
	assert.True(t, isRevisionMismatch(jetstream.ErrKeyExists))
	assert.True(t, isRevisionMismatch(fmt.Errorf("wrap: %w", &jetstream.APIError{ErrorCode: jetstream.JSErrCodeStreamWrongLastSequence})))
	assert.False(t, isRevisionMismatch(jetstream.ErrKeyNotFound))
	assert.False(t, isRevisionMismatch(context.DeadlineExceeded))
}

func TestJetStream_Conformance(t *testing.T) {
	url := os.Getenv("DOCSTORE_TEST_NATS_URL")
	if url == "" {
		t.Skip("DOCSTORE_TEST_NATS_URL not set")
	}
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:       "jetstream",
		MaxRetries: 256,
		NATS: store.NATSConfig{
			URL:    url,
			Bucket: fmt.Sprintf("docstore_test_%d", time.Now().UnixNano()),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.Ping(context.Background()))

	storetest.Run(t, func(t *testing.T) repository.DocumentRepository { return conn.Documents() })
}
