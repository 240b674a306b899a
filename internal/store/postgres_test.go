package store

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankurclub/clever-video-summarizer/internal"
	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// setupTestPostgres connects to TEST_DATABASE_URL and skips when unreachable.
func setupTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Skipf("Postgres not available: %v", err)
	}

	require.NoError(t, internal.RunMigrations(db))
	_, err = db.Exec(`TRUNCATE usage_counters, artifacts`)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE usage_counters, artifacts`)
		_ = db.Close()
	})

	return NewPostgresStore(db)
}

func TestPostgresStore_ConcurrentIncrements(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateUsage(ctx, "user-1", increment)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.UpdateUsage(ctx, "user-1", func(c *domain.UsageCounters) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, 20, got.MonthlyCount)
}

func TestPostgresStore_Artifacts(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	a := domain.NewArtifact("user-1", domain.ArtifactSummary, "first", base)
	b := domain.NewArtifact("user-1", domain.ArtifactSummary, "second", base.Add(time.Second))

	require.NoError(t, s.PutArtifact(ctx, a))
	require.NoError(t, s.PutArtifact(ctx, b))
	assert.ErrorIs(t, s.PutArtifact(ctx, a), ErrDuplicate)

	list, err := s.ListArtifacts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	_, err = s.GetArtifact(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := s.DeleteArtifact(ctx, "user-2", a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteArtifact(ctx, "user-1", a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}
