// Package cache memoises FindTopDocumentsByStatus results in a key/value
// store. Keys include the engine instance id and generation, so any mutation
// of the engine, or a different engine on a shared store, makes earlier
// entries unreachable.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Store is implemented by *redis.Client and MemoryStore.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) get(ctx context.Context, key string) ([]index.Document, bool) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var docs []index.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return docs, true
}

func (c *QueryCache) set(ctx context.Context, key string, docs []index.Document) {
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for (query, status, instance,
// generation) or
// calls compute, caching a successful result. Concurrent callers with the
// same key share one compute call. Store failures degrade to computing.
// The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	status index.DocumentStatus,
	instance string,
	generation uint64,
	compute func() ([]index.Document, error),
) ([]index.Document, bool, error) {
	key := buildKey(query, status, instance, generation)
	if docs, ok := c.get(ctx, key); ok {
		c.recordHit()
		c.logger.Debug("cache hit", "query", query, "key", key)
		return docs, true, nil
	}
	c.recordMiss()
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if docs, ok := c.get(ctx, key); ok {
			return docs, nil
		}
		docs, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]index.Document), false, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(query string, status index.DocumentStatus, instance string, generation uint64) string {
	raw := fmt.Sprintf("%s|%d|%s|%s", instance, generation, status, normalizeQuery(query))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("search:%x", hash[:16])
}

// normalizeQuery sorts and dedups the query words. Word order and repeats
// never change a result, so such queries share an entry.
func normalizeQuery(query string) string {
	words := tokenizer.SplitIntoWords(query)
	sort.Strings(words)
	out := words[:0]
	for i, w := range words {
		if i > 0 && w == words[i-1] {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
