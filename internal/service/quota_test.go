package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/store"
)

func newTestQuota(t *testing.T) (QuotaService, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewQuotaService(store.NewMemoryStore(), time.UTC, testLogger(), WithQuotaClock(clock.Now)), clock
}

func TestQuota_AbsentStateIsZero(t *testing.T) {
	q, _ := newTestQuota(t)

	c, err := q.CurrentUsage(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, c.MonthlyCount)
	assert.Zero(t, c.DailyCount)
	assert.Equal(t, "2026-03", c.LastMonthlyReset)
	assert.Equal(t, "2026-03-15", c.LastDailyReset)
}

func TestQuota_DailyLimitAfterExactlyLimitIncrements(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		tier  domain.PlanTier
		limit int
	}{
		{domain.PlanFree, 1},
		{domain.PlanPro, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			q, _ := newTestQuota(t)
			require.NoError(t, q.ResetDaily(ctx, "u"))

			for i := 0; i < tt.limit; i++ {
				reached, err := q.HasReachedDailyLimit(ctx, "u", tt.tier)
				require.NoError(t, err)
				assert.False(t, reached, "after %d increments", i)
				require.NoError(t, q.IncrementDaily(ctx, "u"))
			}

			reached, err := q.HasReachedDailyLimit(ctx, "u", tt.tier)
			require.NoError(t, err)
			assert.True(t, reached)

			require.NoError(t, q.ResetDaily(ctx, "u"))
			reached, err = q.HasReachedDailyLimit(ctx, "u", tt.tier)
			require.NoError(t, err)
			assert.False(t, reached)
		})
	}
}

func TestQuota_BusinessNeverReaches(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	for i := 0; i < 100; i++ {
		_, err := q.RecordUpload(ctx, "biz", domain.PlanBusiness)
		require.NoError(t, err)
	}

	monthly, err := q.HasReachedMonthlyLimit(ctx, "biz", domain.PlanBusiness)
	require.NoError(t, err)
	daily, err := q.HasReachedDailyLimit(ctx, "biz", domain.PlanBusiness)
	require.NoError(t, err)
	assert.False(t, monthly)
	assert.False(t, daily)
}

func TestQuota_RolloverIdempotentWithinDay(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQuota(t)

	_, err := q.RecordUpload(ctx, "u", domain.PlanPro)
	require.NoError(t, err)

	first, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	clock.Advance(3 * time.Hour)
	second, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQuota_RolloverOnNewDayAndMonth(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQuota(t)

	for i := 0; i < 3; i++ {
		_, err := q.RecordUpload(ctx, "u", domain.PlanPro)
		require.NoError(t, err)
	}

	clock.Advance(24 * time.Hour)
	c, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 3, c.MonthlyCount)
	assert.Equal(t, 0, c.DailyCount)
	assert.Equal(t, "2026-03-16", c.LastDailyReset)

	clock.Advance(20 * 24 * time.Hour)
	c, err = q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 0, c.MonthlyCount)
	assert.Equal(t, "2026-04", c.LastMonthlyReset)
}

func TestQuota_TimezoneDecidesTheDay(t *testing.T) {
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*60*60)

	// 20:00 UTC on the 15th is already the 16th in Tokyo.
	at := time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)
	q := NewQuotaService(store.NewMemoryStore(), tokyo, testLogger(), WithQuotaClock(func() time.Time { return at }))

	c, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-16", c.LastDailyReset)
}

func TestQuota_ConcurrentRecordUpload(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.RecordUpload(ctx, "u", domain.PlanBusiness)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 50, c.MonthlyCount)
	assert.Equal(t, 50, c.DailyCount)
}

func TestQuota_ReserveUploadStopsAtCeiling(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	c, hit, err := q.ReserveUpload(ctx, "u", domain.PlanFree)
	require.NoError(t, err)
	assert.Empty(t, hit)
	assert.Equal(t, 1, c.DailyCount)

	c, hit, err = q.ReserveUpload(ctx, "u", domain.PlanFree)
	require.NoError(t, err)
	assert.Equal(t, domain.LimitDaily, hit)
	assert.Equal(t, 1, c.DailyCount)
	assert.Equal(t, 1, c.MonthlyCount)
}

func TestQuota_ConcurrentReserveNeverOverruns(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, hit, err := q.ReserveUpload(ctx, "u", domain.PlanPro)
			assert.NoError(t, err)
			if hit == "" {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
	c, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 5, c.DailyCount)
}

func TestQuota_ReleaseUpload(t *testing.T) {
	ctx := context.Background()
	q, clock := newTestQuota(t)

	reserved, _, err := q.ReserveUpload(ctx, "u", domain.PlanPro)
	require.NoError(t, err)
	require.NoError(t, q.ReleaseUpload(ctx, "u", reserved))

	c, err := q.CurrentUsage(ctx, "u")
	require.NoError(t, err)
	assert.Zero(t, c.MonthlyCount)
	assert.Zero(t, c.DailyCount)

	t.Run("does not touch the next day", func(t *testing.T) {
		reserved, _, err := q.ReserveUpload(ctx, "u", domain.PlanPro)
		require.NoError(t, err)

		clock.Advance(24 * time.Hour)
		_, _, err = q.ReserveUpload(ctx, "u", domain.PlanPro)
		require.NoError(t, err)
		require.NoError(t, q.ReleaseUpload(ctx, "u", reserved))

		c, err := q.CurrentUsage(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, 1, c.MonthlyCount)
		assert.Equal(t, 1, c.DailyCount)
	})
}

func TestQuota_Usage(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	_, err := q.RecordUpload(ctx, "u", domain.PlanPro)
	require.NoError(t, err)

	snap, err := q.Usage(ctx, "u", domain.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, 49, snap.MonthlyRemaining)
	assert.Equal(t, 4, snap.DailyRemaining)
	assert.Equal(t, domain.PlanPro, snap.Tier)

	snap, err = q.Usage(ctx, "u", domain.PlanBusiness)
	require.NoError(t, err)
	assert.Equal(t, domain.Unlimited, snap.MonthlyRemaining)
}

type failingUsageStore struct{}

func (failingUsageStore) UpdateUsage(ctx context.Context, identity string, fn store.UpdateFunc) (domain.UsageCounters, error) {
	return domain.UsageCounters{}, errors.New("disk full")
}

func TestQuota_StoreFailureIsInternal(t *testing.T) {
	q := NewQuotaService(failingUsageStore{}, nil, testLogger())

	_, err := q.CurrentUsage(context.Background(), "u")
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
