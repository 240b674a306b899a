package ratewindow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// Decision is the outcome of a rate check.
type Decision struct {
	Allowed           bool          `json:"allowed"`
	RetryAfter        time.Duration `json:"-"`
	RetryAfterMinutes int           `json:"retry_after_minutes,omitempty"`
	Message           string        `json:"message,omitempty"`
}

// Err converts a refusal into a rate_limit error. Allowed decisions return nil.
func (d Decision) Err(op string) error {
	if d.Allowed {
		return nil
	}
	return domain.RateLimited(op, d.RetryAfter, d.Message)
}

// Monitor applies the sliding-window policy over a Store.
type Monitor struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor creates a Monitor. cfg must pass Validate.
func NewMonitor(store Store, cfg Config, logger *slog.Logger, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate window config: %w", err)
	}

	m := &Monitor{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the active tunables.
func (m *Monitor) Config() Config {
	return m.cfg
}

// CheckRequestAllowed decides whether identity may issue a request of kind
// now. Admitted requests are logged; refused ones are not.
func (m *Monitor) CheckRequestAllowed(ctx context.Context, identity string, kind domain.RequestKind) (Decision, error) {
	now := m.now()
	var (
		decision Decision
		started  bool
		requests int
	)

	// The store may run fn more than once; only the last run counts.
	err := m.store.Update(ctx, identity, func(p *domain.RequestPattern) error {
		started = false
		requests = 0

		if p.InCooldown(now) {
			remaining := p.CooldownUntil.Sub(now)
			minutes := ceilMinutes(remaining)
			decision = Decision{
				RetryAfter:        remaining,
				RetryAfterMinutes: minutes,
				Message:           fmt.Sprintf("Please wait %d %s before making another request.", minutes, pluralMinutes(minutes)),
			}
			return nil
		}

		// Expired cooldowns are cleared lazily.
		p.CooldownUntil = time.Time{}
		p.Prune(now, m.cfg.PatternWindow)

		if len(p.Entries) >= m.cfg.MaxRequestsPerWindow {
			p.CooldownUntil = now.Add(m.cfg.CooldownDuration)
			minutes := ceilMinutes(m.cfg.CooldownDuration)
			decision = Decision{
				RetryAfter:        m.cfg.CooldownDuration,
				RetryAfterMinutes: minutes,
				Message:           fmt.Sprintf("Rate limit exceeded. Please wait %d %s before trying again.", minutes, pluralMinutes(minutes)),
			}
			started = true
			requests = len(p.Entries)
			return nil
		}

		p.Entries = append(p.Entries, domain.RequestLogEntry{At: now, Kind: kind})
		decision = Decision{Allowed: true}
		return nil
	})
	if err != nil {
		return Decision{}, domain.Internal(err, "ratewindow.check_request_allowed", "failed to update request pattern")
	}

	if started {
		m.logger.Info("Rate window exceeded, cooldown started",
			"identity", identity,
			"kind", kind,
			"requests", requests,
			"cooldown_until", now.Add(m.cfg.CooldownDuration),
		)
	}

	return decision, nil
}

// IsUnusualPattern reports whether identity's recent requests look automated.
// It reads state without modifying it.
func (m *Monitor) IsUnusualPattern(ctx context.Context, identity string) (bool, error) {
	p, ok, err := m.store.Load(ctx, identity)
	if err != nil {
		return false, domain.Internal(err, "ratewindow.is_unusual_pattern", "failed to load request pattern")
	}
	if !ok {
		return false, nil
	}
	return m.classify(p, m.now()), nil
}

func (m *Monitor) classify(p domain.RequestPattern, now time.Time) bool {
	recent := p.Within(now, m.cfg.PatternWindow)

	burst := 0
	for _, e := range recent {
		if now.Sub(e.At) < m.cfg.BurstWindow {
			burst++
		}
	}
	if burst > m.cfg.BurstThreshold {
		return true
	}

	if len(recent) < m.cfg.AlternationMinRequests {
		return false
	}

	alternations := 0
	for i := 1; i < len(recent); i++ {
		if recent[i].Kind != recent[i-1].Kind {
			alternations++
		}
	}
	return alternations >= m.cfg.AlternationThreshold
}

// Sweep forgets identities with no cooldown and no entries in the window.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	removed, err := m.store.Sweep(ctx, func(p domain.RequestPattern) bool {
		return p.Idle(now, m.cfg.PatternWindow)
	})
	if err != nil {
		return 0, fmt.Errorf("sweep request patterns: %w", err)
	}
	return removed, nil
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

func pluralMinutes(n int) string {
	if n == 1 {
		return "minute"
	}
	return "minutes"
}
