package domain

import (
	"strings"
	"time"
)

// RequestKind classifies a rate-monitored request.
type RequestKind string

const (
	RequestUpload RequestKind = "upload"
	RequestVideo  RequestKind = "video"
)

// ParseRequestKind validates a request kind string.
func ParseRequestKind(s string) (RequestKind, bool) {
	switch RequestKind(strings.ToLower(strings.TrimSpace(s))) {
	case RequestUpload:
		return RequestUpload, true
	case RequestVideo:
		return RequestVideo, true
	default:
		return "", false
	}
}

// RequestLogEntry is one admitted request.
type RequestLogEntry struct {
	At   time.Time   `json:"at"`
	Kind RequestKind `json:"kind"`
}

// RequestPattern is the sliding-window history of one identity.
// Entries are kept in chronological order.
type RequestPattern struct {
	Entries       []RequestLogEntry `json:"entries"`
	CooldownUntil time.Time         `json:"cooldown_until,omitzero"`
}

// InCooldown reports whether the identity is still cooling down at now.
func (p *RequestPattern) InCooldown(now time.Time) bool {
	return !p.CooldownUntil.IsZero() && now.Before(p.CooldownUntil)
}

// Prune drops entries at least window old.
func (p *RequestPattern) Prune(now time.Time, window time.Duration) {
	kept := p.Entries[:0]
	for _, e := range p.Entries {
		if now.Sub(e.At) < window {
			kept = append(kept, e)
		}
	}
	p.Entries = kept
}

// Within returns the entries younger than window, without mutating p.
func (p RequestPattern) Within(now time.Time, window time.Duration) []RequestLogEntry {
	var out []RequestLogEntry
	for _, e := range p.Entries {
		if now.Sub(e.At) < window {
			out = append(out, e)
		}
	}
	return out
}

// Idle reports whether the pattern holds nothing that could affect a future decision.
func (p RequestPattern) Idle(now time.Time, window time.Duration) bool {
	if p.InCooldown(now) {
		return false
	}
	return len(p.Within(now, window)) == 0
}
