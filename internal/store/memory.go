package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/keylock"
)

// MemoryStore keeps state in process memory. State is lost on restart.
type MemoryStore struct {
	locks *keylock.Locker

	mu        sync.RWMutex
	usage     map[string]domain.UsageCounters
	artifacts map[string]domain.StoredArtifact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:     keylock.New(),
		usage:     make(map[string]domain.UsageCounters),
		artifacts: make(map[string]domain.StoredArtifact),
	}
}

// UpdateUsage applies fn under the identity's lock.
func (s *MemoryStore) UpdateUsage(ctx context.Context, identity string, fn UpdateFunc) (domain.UsageCounters, error) {
	if err := ctx.Err(); err != nil {
		return domain.UsageCounters{}, err
	}

	unlock := s.locks.Lock(identity)
	defer unlock()

	s.mu.RLock()
	counters := s.usage[identity]
	s.mu.RUnlock()

	dirty, err := fn(&counters)
	if err != nil {
		return domain.UsageCounters{}, err
	}

	if dirty {
		s.mu.Lock()
		s.usage[identity] = counters
		s.mu.Unlock()
	}

	return counters, nil
}

func (s *MemoryStore) PutArtifact(ctx context.Context, a domain.StoredArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[a.ID]; exists {
		return ErrDuplicate
	}
	s.artifacts[a.ID] = a
	return nil
}

func (s *MemoryStore) ListArtifacts(ctx context.Context, owner string) ([]domain.StoredArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredArtifact, 0)
	for _, a := range s.artifacts {
		if a.OwnedBy(owner) {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetArtifact(ctx context.Context, id string) (domain.StoredArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	if !ok {
		return domain.StoredArtifact{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) DeleteArtifact(ctx context.Context, owner, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok || !a.OwnedBy(owner) {
		return false, nil
	}
	delete(s.artifacts, id)
	return true, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
