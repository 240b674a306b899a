// Package service contains the business logic layer.
//
// This file implements the quota tracker: per-identity monthly and daily
// upload counters that roll over lazily on the first read or write of a new
// calendar period.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/metrics"
	"github.com/ankurclub/clever-video-summarizer/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService tracks upload counters per identity.
type QuotaService interface {
	// CurrentUsage returns the counters after applying any pending rollover.
	// A rollover is persisted.
	CurrentUsage(ctx context.Context, identity string) (domain.UsageCounters, error)

	// HasReachedMonthlyLimit reports whether the monthly count hit the tier's
	// ceiling. Never true for unbounded tiers.
	HasReachedMonthlyLimit(ctx context.Context, identity string, tier domain.PlanTier) (bool, error)

	// HasReachedDailyLimit is the daily counterpart of HasReachedMonthlyLimit.
	HasReachedDailyLimit(ctx context.Context, identity string, tier domain.PlanTier) (bool, error)

	// IncrementMonthly adds one to the monthly counter.
	IncrementMonthly(ctx context.Context, identity string) error

	// IncrementDaily adds one to the daily counter.
	IncrementDaily(ctx context.Context, identity string) error

	// RecordUpload adds one to both counters in a single update. Call it
	// exactly once per accepted upload.
	RecordUpload(ctx context.Context, identity string, tier domain.PlanTier) (domain.UsageCounters, error)

	// ReserveUpload counts one upload if the tier still has room, as a single
	// step under the identity's lock. When a ceiling has been reached nothing
	// is counted and the limit that fired is returned.
	ReserveUpload(ctx context.Context, identity string, tier domain.PlanTier) (domain.UsageCounters, domain.LimitKind, error)

	// ReleaseUpload gives back an upload counted by ReserveUpload whose work
	// failed. Counters of a period that has rolled over since are left alone.
	ReleaseUpload(ctx context.Context, identity string, reserved domain.UsageCounters) error

	// ResetMonthly zeroes the monthly counter and stamps the current month.
	ResetMonthly(ctx context.Context, identity string) error

	// ResetDaily zeroes the daily counter and stamps the current day.
	ResetDaily(ctx context.Context, identity string) error

	// Usage returns counters, limits and remaining uploads for tier.
	Usage(ctx context.Context, identity string, tier domain.PlanTier) (domain.UsageSnapshot, error)
}

// =============================================================================
// Implementation
// =============================================================================

// QuotaOption configures the quota service.
type QuotaOption func(*quotaService)

// WithQuotaClock replaces time.Now.
func WithQuotaClock(now func() time.Time) QuotaOption {
	return func(s *quotaService) {
		s.now = now
	}
}

type quotaService struct {
	usage    store.UsageStore
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewQuotaService creates a QuotaService. Period markers are computed in loc;
// nil means UTC.
func NewQuotaService(usage store.UsageStore, loc *time.Location, logger *slog.Logger, opts ...QuotaOption) QuotaService {
	if loc == nil {
		loc = time.UTC
	}
	s := &quotaService{
		usage:    usage,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *quotaService) clock() time.Time {
	return s.now().In(s.location)
}

// update applies fn after rolling the counters over to the current period.
func (s *quotaService) update(ctx context.Context, op, identity string, fn func(c *domain.UsageCounters) bool) (domain.UsageCounters, error) {
	now := s.clock()
	counters, err := s.usage.UpdateUsage(ctx, identity, func(c *domain.UsageCounters) (bool, error) {
		rolled := c.Rollover(now)
		changed := false
		if fn != nil {
			changed = fn(c)
		}
		return rolled || changed, nil
	})
	if err != nil {
		s.logger.Error("usage update failed", "error", err, "op", op, "identity", identity)
		return domain.UsageCounters{}, domain.Internal(err, op, "failed to update usage counters")
	}
	return counters, nil
}

// CurrentUsage returns rolled-over counters.
func (s *quotaService) CurrentUsage(ctx context.Context, identity string) (domain.UsageCounters, error) {
	return s.update(ctx, "quota.current_usage", identity, nil)
}

// HasReachedMonthlyLimit compares the monthly count with the tier ceiling.
func (s *quotaService) HasReachedMonthlyLimit(ctx context.Context, identity string, tier domain.PlanTier) (bool, error) {
	limits := domain.LimitsFor(tier)
	if limits.MonthlyUnbounded() {
		return false, nil
	}

	c, err := s.CurrentUsage(ctx, identity)
	if err != nil {
		return false, err
	}
	return domain.ReachedCount(c.MonthlyCount, limits.MonthlyUploadLimit), nil
}

// HasReachedDailyLimit compares the daily count with the tier ceiling.
func (s *quotaService) HasReachedDailyLimit(ctx context.Context, identity string, tier domain.PlanTier) (bool, error) {
	limits := domain.LimitsFor(tier)
	if limits.DailyUnbounded() {
		return false, nil
	}

	c, err := s.CurrentUsage(ctx, identity)
	if err != nil {
		return false, err
	}
	return domain.ReachedCount(c.DailyCount, limits.DailyUploadLimit), nil
}

// IncrementMonthly bumps the monthly counter.
func (s *quotaService) IncrementMonthly(ctx context.Context, identity string) error {
	_, err := s.update(ctx, "quota.increment_monthly", identity, func(c *domain.UsageCounters) bool {
		c.MonthlyCount++
		return true
	})
	return err
}

// IncrementDaily bumps the daily counter.
func (s *quotaService) IncrementDaily(ctx context.Context, identity string) error {
	_, err := s.update(ctx, "quota.increment_daily", identity, func(c *domain.UsageCounters) bool {
		c.DailyCount++
		return true
	})
	return err
}

// RecordUpload bumps both counters together.
func (s *quotaService) RecordUpload(ctx context.Context, identity string, tier domain.PlanTier) (domain.UsageCounters, error) {
	const op = "quota.record_upload"

	c, err := s.update(ctx, op, identity, func(c *domain.UsageCounters) bool {
		c.MonthlyCount++
		c.DailyCount++
		return true
	})
	if err != nil {
		return c, err
	}

	metrics.UploadsRecorded.WithLabelValues(string(tier)).Inc()
	s.logger.Debug("upload recorded",
		"identity", identity,
		"monthly", c.MonthlyCount,
		"daily", c.DailyCount,
	)
	return c, nil
}

// ReserveUpload re-checks both ceilings and counts the upload in one update.
func (s *quotaService) ReserveUpload(ctx context.Context, identity string, tier domain.PlanTier) (domain.UsageCounters, domain.LimitKind, error) {
	const op = "quota.reserve_upload"
	limits := domain.LimitsFor(tier)

	var hit domain.LimitKind
	c, err := s.update(ctx, op, identity, func(c *domain.UsageCounters) bool {
		hit = ""
		switch {
		case domain.ReachedCount(c.MonthlyCount, limits.MonthlyUploadLimit):
			hit = domain.LimitMonthly
			return false
		case domain.ReachedCount(c.DailyCount, limits.DailyUploadLimit):
			hit = domain.LimitDaily
			return false
		}
		c.MonthlyCount++
		c.DailyCount++
		return true
	})
	if err != nil || hit != "" {
		return c, hit, err
	}

	metrics.UploadsRecorded.WithLabelValues(string(tier)).Inc()
	s.logger.Debug("upload reserved",
		"identity", identity,
		"monthly", c.MonthlyCount,
		"daily", c.DailyCount,
	)
	return c, "", nil
}

// ReleaseUpload undoes a reservation within the period it was made in.
func (s *quotaService) ReleaseUpload(ctx context.Context, identity string, reserved domain.UsageCounters) error {
	const op = "quota.release_upload"

	_, err := s.update(ctx, op, identity, func(c *domain.UsageCounters) bool {
		changed := false
		if c.LastMonthlyReset == reserved.LastMonthlyReset && c.MonthlyCount > 0 {
			c.MonthlyCount--
			changed = true
		}
		if c.LastDailyReset == reserved.LastDailyReset && c.DailyCount > 0 {
			c.DailyCount--
			changed = true
		}
		return changed
	})
	if err == nil {
		s.logger.Debug("upload released", "identity", identity)
	}
	return err
}

// ResetMonthly clears the monthly counter.
func (s *quotaService) ResetMonthly(ctx context.Context, identity string) error {
	const op = "quota.reset_monthly"

	_, err := s.update(ctx, op, identity, func(c *domain.UsageCounters) bool {
		c.MonthlyCount = 0
		return true
	})
	if err == nil {
		s.logger.Info("monthly usage reset", "identity", identity)
	}
	return err
}

// ResetDaily clears the daily counter.
func (s *quotaService) ResetDaily(ctx context.Context, identity string) error {
	const op = "quota.reset_daily"

	_, err := s.update(ctx, op, identity, func(c *domain.UsageCounters) bool {
		c.DailyCount = 0
		return true
	})
	if err == nil {
		s.logger.Info("daily usage reset", "identity", identity)
	}
	return err
}

// Usage builds the dashboard snapshot.
func (s *quotaService) Usage(ctx context.Context, identity string, tier domain.PlanTier) (domain.UsageSnapshot, error) {
	c, err := s.CurrentUsage(ctx, identity)
	if err != nil {
		return domain.UsageSnapshot{}, err
	}

	limits := domain.LimitsFor(tier)
	return domain.UsageSnapshot{
		Tier:             tier,
		Counters:         c,
		Limits:           limits,
		MonthlyRemaining: domain.Remaining(c.MonthlyCount, limits.MonthlyUploadLimit),
		DailyRemaining:   domain.Remaining(c.DailyCount, limits.DailyUploadLimit),
	}, nil
}
