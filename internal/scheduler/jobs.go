package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ankurclub/clever-video-summarizer/internal/metrics"
)

// jobTimeout bounds a single sweep.
const jobTimeout = 30 * time.Second

// RateSweeper drops idle rate-window patterns.
type RateSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ThrottleSweeper drops expired per-IP throttle entries.
type ThrottleSweeper interface {
	Sweep() int
}

// Jobs holds the maintenance tasks run by the scheduler.
type Jobs struct {
	rate     RateSweeper
	throttle ThrottleSweeper
	logger   *slog.Logger
}

// NewJobs creates the job set. Either sweeper may be nil.
func NewJobs(rate RateSweeper, throttle ThrottleSweeper, logger *slog.Logger) *Jobs {
	return &Jobs{rate: rate, throttle: throttle, logger: logger}
}

// SweepRateWindows removes patterns that can no longer affect a decision.
func (j *Jobs) SweepRateWindows() {
	if j.rate == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	removed, err := j.rate.Sweep(ctx)
	if err != nil {
		j.logger.Error("rate window sweep failed", "error", err)
		return
	}

	metrics.RatePatternsSwept.Add(float64(removed))
	j.logger.Debug("rate window sweep complete",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// SweepThrottle removes expired IP throttle windows.
func (j *Jobs) SweepThrottle() {
	if j.throttle == nil {
		return
	}
	if removed := j.throttle.Sweep(); removed > 0 {
		j.logger.Debug("ip throttle sweep complete", "removed", removed)
	}
}
