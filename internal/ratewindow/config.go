// Package ratewindow throttles abusive call patterns per identity.
//
// Each identity keeps a chronological log of admitted requests over a trailing
// pattern window. Hitting the per-window cap puts the identity into a cooldown
// that expires lazily on a later check. A separate, non-mutating classifier
// flags bursts and alternating request kinds.
package ratewindow

import (
	"errors"
	"time"
)

// Config holds the monitor tunables.
type Config struct {
	// CooldownDuration is how long an identity is refused after hitting the cap.
	CooldownDuration time.Duration

	// PatternWindow is the trailing span over which requests are counted.
	PatternWindow time.Duration

	// MaxRequestsPerWindow is the number of logged requests that triggers a cooldown.
	MaxRequestsPerWindow int

	// BurstWindow and BurstThreshold flag more than BurstThreshold requests
	// logged within BurstWindow.
	BurstWindow    time.Duration
	BurstThreshold int

	// AlternationThreshold flags at least this many kind switches among the
	// window-scoped requests, once there are AlternationMinRequests of them.
	AlternationThreshold   int
	AlternationMinRequests int
}

// DefaultConfig returns the standard thresholds: two requests per minute,
// then a ten minute cooldown.
func DefaultConfig() Config {
	return Config{
		CooldownDuration:       10 * time.Minute,
		PatternWindow:          time.Minute,
		MaxRequestsPerWindow:   2,
		BurstWindow:            10 * time.Second,
		BurstThreshold:         3,
		AlternationThreshold:   3,
		AlternationMinRequests: 4,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.CooldownDuration <= 0 {
		return errors.New("cooldown duration must be positive")
	}
	if c.PatternWindow <= 0 {
		return errors.New("pattern window must be positive")
	}
	if c.MaxRequestsPerWindow < 1 {
		return errors.New("max requests per window must be at least 1")
	}
	if c.BurstWindow <= 0 {
		return errors.New("burst window must be positive")
	}
	if c.BurstWindow > c.PatternWindow {
		return errors.New("burst window must not exceed pattern window")
	}
	if c.BurstThreshold < 1 {
		return errors.New("burst threshold must be at least 1")
	}
	if c.AlternationThreshold < 1 {
		return errors.New("alternation threshold must be at least 1")
	}
	if c.AlternationMinRequests < 2 {
		return errors.New("alternation min requests must be at least 2")
	}
	return nil
}

// Retention is how long a pattern can still influence a decision after its
// last change.
func (c Config) Retention() time.Duration {
	if c.CooldownDuration > c.PatternWindow {
		return c.CooldownDuration
	}
	return c.PatternWindow
}
