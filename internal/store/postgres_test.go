//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fineflow77/btclti/internal/database"
	"github.com/fineflow77/btclti/internal/domain"
)

// setupPgRepo starts a PostgreSQL container and applies the embedded migrations.
func setupPgRepo(t *testing.T) *PgRepository {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("btclti"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrations := os.DirFS(filepath.Join(projectRoot(t), "cmd", "btclti", "migrations"))
	require.NoError(t, database.RunMigrations(ctx, pool, migrations))
	// Applying twice is a no-op.
	require.NoError(t, database.RunMigrations(ctx, pool, migrations))

	return NewPgRepository(pool)
}

func projectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func TestPgRepository(t *testing.T) {
	ctx := context.Background()
	repo := setupPgRepo(t)

	_, err := repo.LatestQuote(ctx, "jpy")
	assert.True(t, errors.Is(err, ErrNotFound))

	q := domain.SpotQuote{
		Currency:  "jpy",
		PriceUSD:  decimal.RequireFromString("100000.12"),
		PriceFiat: decimal.RequireFromString("15000018"),
		FetchedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SaveQuote(ctx, q))

	got, err := repo.LatestQuote(ctx, "jpy")
	require.NoError(t, err)
	assert.True(t, got.PriceUSD.Equal(q.PriceUSD))
	assert.True(t, got.PriceFiat.Equal(q.PriceFiat))
	assert.True(t, got.FetchedAt.Equal(q.FetchedAt))

	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, repo.SaveHistory(ctx, []domain.PricePoint{
		{Date: day(1), PriceUSD: 94000},
		{Date: day(2), PriceUSD: 96000},
	}))
	require.NoError(t, repo.SaveHistory(ctx, []domain.PricePoint{{Date: day(2), PriceUSD: 95000}}))

	points, err := repo.History(ctx, day(1))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[0].Date.Equal(day(1)))
	assert.Equal(t, 95000.0, points[1].PriceUSD)
}
