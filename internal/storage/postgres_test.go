package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a throwaway PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("ledger"),
		postgres.WithUsername("ledger"),
		postgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStorage_Contract(t *testing.T) {
	dsn := startPostgres(t)

	runStorageContract(t, func(t *testing.T) service.Storage {
		ctx := context.Background()
		store, err := NewPostgresStorage(ctx, dsn)
		require.NoError(t, err)
		require.NoError(t, store.Migrate(ctx))
		t.Cleanup(func() {
			_, _ = store.db.ExecContext(context.Background(), `TRUNCATE transactions`)
			_ = store.Close()
		})
		return store
	})
}
