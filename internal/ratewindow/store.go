package ratewindow

import (
	"context"
	"sync"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/keylock"
)

// Store holds request patterns keyed by identity.
type Store interface {
	// Update applies fn to the identity's pattern as one atomic step.
	// A missing identity starts from an empty pattern.
	Update(ctx context.Context, identity string, fn func(p *domain.RequestPattern) error) error

	// Load returns a copy of the identity's pattern and whether it exists.
	Load(ctx context.Context, identity string) (domain.RequestPattern, bool, error)

	// Sweep removes patterns for which idle returns true and reports how many.
	Sweep(ctx context.Context, idle func(p domain.RequestPattern) bool) (int, error)
}

// MemoryStore keeps patterns in process memory.
type MemoryStore struct {
	locks *keylock.Locker

	mu       sync.RWMutex
	patterns map[string]domain.RequestPattern
}

// NewMemoryStore creates an empty in-memory pattern store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    keylock.New(),
		patterns: make(map[string]domain.RequestPattern),
	}
}

func (s *MemoryStore) Update(ctx context.Context, identity string, fn func(p *domain.RequestPattern) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.locks.With(identity, func() error {
		s.mu.RLock()
		p := clonePattern(s.patterns[identity])
		s.mu.RUnlock()

		if err := fn(&p); err != nil {
			return err
		}

		s.mu.Lock()
		s.patterns[identity] = p
		s.mu.Unlock()
		return nil
	})
}

func (s *MemoryStore) Load(ctx context.Context, identity string) (domain.RequestPattern, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[identity]
	return clonePattern(p), ok, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, idle func(p domain.RequestPattern) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, p := range s.patterns {
		if idle(p) {
			delete(s.patterns, id)
			removed++
		}
	}
	return removed, nil
}

func clonePattern(p domain.RequestPattern) domain.RequestPattern {
	if p.Entries != nil {
		p.Entries = append([]domain.RequestLogEntry(nil), p.Entries...)
	}
	return p
}
