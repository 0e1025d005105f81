package pg

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/store"
	"github.com/dropDatabas3/docstore/internal/store/storetest"
)

func openTestConn(t *testing.T) store.AdapterConnection {
	t.Helper()
	dsn := os.Getenv("DOCSTORE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DOCSTORE_TEST_PG_DSN not set")
	}
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:         "postgres",
		DSN:          dsn,
		MaxOpenConns: storetest.Concurrency + 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPostgres_Conformance(t *testing.T) {
	conn := openTestConn(t)
	storetest.Run(t, func(t *testing.T) repository.DocumentRepository { return conn.Documents() })
}

func TestPostgres_MigrationsIdempotent(t *testing.T) {
	conn := openTestConn(t)
	require.NoError(t, conn.Ping(context.Background()))

	// Segunda conexión: las migraciones ya aplicadas se saltean.
	again := openTestConn(t)
	require.NoError(t, again.Ping(context.Background()))
}
