package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	FailedSearches    int64        `json:"failed_searches"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	TotalDocsIndexed  int64        `json:"total_docs_indexed"`
	AvgLatencyUs      float64      `json:"avg_latency_us"`
	P50LatencyUs      int64        `json:"p50_latency_us"`
	P95LatencyUs      int64        `json:"p95_latency_us"`
	P99LatencyUs      int64        `json:"p99_latency_us"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search and index events into running statistics. It is
// a Sink in its own right and can also be fed from Kafka via HandleEvent.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	failedSearches    int64
	zeroResults       int64
	docsIndexed       int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Track records SearchEvent and IndexEvent values and ignores anything else.
func (a *Aggregator) Track(_ string, event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case *SearchEvent:
		a.recordSearchEvent(*e)
	case IndexEvent:
		a.recordIndexEvent(e)
	case *IndexEvent:
		a.recordIndexEvent(*e)
	}
}

// HandleEvent decodes analytics events published by a Collector.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var envelope struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &envelope); err != nil {
			return fmt.Errorf("decoding analytics event: %v: %w", err, kafka.ErrSkip)
		}
		switch envelope.Type {
		case EventSearch, EventZeroResult, EventSearchFail:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				return fmt.Errorf("%v: %w", err, kafka.ErrSkip)
			}
			agg.recordSearchEvent(event)
		case EventIndexDoc:
			event, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				return fmt.Errorf("%v: %w", err, kafka.ErrSkip)
			}
			agg.recordIndexEvent(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", envelope.Type, "key", string(key))
		}
		return nil
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	switch event.Type {
	case EventSearchFail:
		a.failedSearches++
		return
	case EventZeroResult:
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	a.latencies = append(a.latencies, event.LatencyUs)
	a.queryCounts[event.Query]++
}

func (a *Aggregator) recordIndexEvent(IndexEvent) {
	a.mu.Lock()
	a.docsIndexed++
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		FailedSearches:   a.failedSearches,
		ZeroResultCount:  a.zeroResults,
		TotalDocsIndexed: a.docsIndexed,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
