package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateSweeper struct {
	calls   atomic.Int32
	removed int
	err     error
}

func (f *fakeRateSweeper) Sweep(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return f.removed, f.err
}

type fakeThrottle struct {
	calls atomic.Int32
}

func (f *fakeThrottle) Sweep() int {
	f.calls.Add(1)
	return 2
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJobs_Sweeps(t *testing.T) {
	rate := &fakeRateSweeper{removed: 3}
	throttle := &fakeThrottle{}
	jobs := NewJobs(rate, throttle, testLogger())

	jobs.SweepRateWindows()
	jobs.SweepThrottle()

	assert.Equal(t, int32(1), rate.calls.Load())
	assert.Equal(t, int32(1), throttle.calls.Load())
}

func TestJobs_SweepErrorIsLogged(t *testing.T) {
	rate := &fakeRateSweeper{err: errors.New("redis down")}
	jobs := NewJobs(rate, nil, testLogger())

	assert.NotPanics(t, jobs.SweepRateWindows)
	assert.NotPanics(t, jobs.SweepThrottle)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(NewJobs(nil, nil, testLogger()), testLogger(), Config{RateSweepSchedule: "every so often"})

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate window sweep")
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(NewJobs(&fakeRateSweeper{}, &fakeThrottle{}, testLogger()), testLogger(), Config{
		RateSweepSchedule:     "@every 5m",
		ThrottleSweepSchedule: "@every 1m",
	})

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	<-s.Stop().Done()
}
