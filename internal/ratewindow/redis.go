package ratewindow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// maxTxRetries bounds optimistic retries when a watched key changes mid-update.
const maxTxRetries = 10

// ErrContention is returned when an update keeps losing the optimistic race.
var ErrContention = errors.New("ratewindow: too much contention on identity")

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps patterns in Redis so cooldowns survive restarts and are
// shared between replicas. Each pattern is one JSON value whose TTL is
// refreshed on every write; expired keys are idle by construction.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a store writing keys under prefix. Keys expire
// retention plus one minute after their last update.
func NewRedisStore(client *redis.Client, prefix string, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisStore) Update(ctx context.Context, identity string, fn func(p *domain.RequestPattern) error) error {
	key := s.key(identity)

	txf := func(tx *redis.Tx) error {
		p, _, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}

		if err := fn(&p); err != nil {
			return err
		}

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode pattern: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.retention+time.Minute)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

func (s *RedisStore) Load(ctx context.Context, identity string) (domain.RequestPattern, bool, error) {
	return s.get(ctx, s.client, s.key(identity))
}

// Sweep is a no-op; key TTLs expire idle patterns.
func (s *RedisStore) Sweep(ctx context.Context, idle func(p domain.RequestPattern) bool) (int, error) {
	return 0, nil
}

func (s *RedisStore) get(ctx context.Context, c getter, key string) (domain.RequestPattern, bool, error) {
	var p domain.RequestPattern

	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("failed to read pattern: %w", err)
	}

	if err := json.Unmarshal(data, &p); err != nil {
		return domain.RequestPattern{}, false, fmt.Errorf("failed to decode pattern: %w", err)
	}
	return p, true, nil
}

func (s *RedisStore) key(identity string) string {
	return fmt.Sprintf("%s:%s", s.prefix, identity)
}
