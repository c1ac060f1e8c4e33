package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

// GuardedStore bounds every call to a remote Store by a timeout and stops
// calling it while its circuit breaker is open. QueryCache treats the
// resulting errors as misses, so a dead Redis costs one timeout per
// FailureThreshold queries instead of one per query.
type GuardedStore struct {
	store   Store
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

func NewGuardedStore(store Store, breaker *resilience.CircuitBreaker, timeout time.Duration) *GuardedStore {
	return &GuardedStore{store: store, breaker: breaker, timeout: timeout}
}

func (g *GuardedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := g.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, g.timeout, "cache-get", func(ctx context.Context) error {
			v, ok, err := g.store.Get(ctx, key)
			if err != nil {
				return err
			}
			value, found = v, ok
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

func (g *GuardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, g.timeout, "cache-set", func(ctx context.Context) error {
			return g.store.Set(ctx, key, value, ttl)
		})
	})
}
