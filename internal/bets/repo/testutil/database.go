//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/radieske/bet-settler/internal/shared/db"
)

// TestDatabase representa um Postgres efêmero com o schema migrado
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *sql.DB
	DSN       string
}

// SetupTestDatabase sobe um container Postgres, aplica as migrações e registra a limpeza em t.Cleanup
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bet_settler_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":      "bet-settler-repository",
			"test-name": t.Name(),
		}),
	)
	require.NoError(t, err)

	tdb := &TestDatabase{Container: container}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if tdb.DB != nil {
			_ = tdb.DB.Close()
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate test container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, err = db.MigrateUp(dsn)
	require.NoError(t, err)

	pg, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)

	tdb.DB = pg
	tdb.DSN = dsn
	return tdb
}
