package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/resilience"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	failFor int
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor > 0 {
		p.failFor--
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorOptions{BatchSize: 10, FlushInterval: time.Hour, Retry: noRetry()})
	c.Start(context.Background())
	c.Track("cat", SearchEvent{Type: EventSearch, Query: "cat"})
	c.Track("dog", SearchEvent{Type: EventZeroResult, Query: "dog"})
	c.Close()
	if got := pub.published(); got != 2 {
		t.Errorf("published %d events, want 2", got)
	}
	if c.BufferLen() != 0 {
		t.Errorf("buffer still holds %d events", c.BufferLen())
	}
}

func TestCollectorFlushesWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorOptions{BatchSize: 3, FlushInterval: time.Hour, Retry: noRetry()})
	c.Start(context.Background())
	defer c.Close()
	for i := 0; i < 3; i++ {
		c.Track("q", SearchEvent{Type: EventSearch})
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.published() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("full buffer was not flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{failFor: 1}
	c := NewCollector(pub, CollectorOptions{BatchSize: 2, Retry: noRetry()})
	c.Track("a", 1)
	c.Track("b", 2)
	c.Flush(context.Background())
	if c.BufferLen() != 2 {
		t.Fatalf("failed batch not requeued, buffer = %d", c.BufferLen())
	}
	c.Flush(context.Background())
	if pub.published() != 2 || c.BufferLen() != 0 {
		t.Errorf("published %d, buffered %d", pub.published(), c.BufferLen())
	}
}

func TestCollectorRetriesWithinFlush(t *testing.T) {
	pub := &fakePublisher{failFor: 2}
	retry := resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	c := NewCollector(pub, CollectorOptions{Retry: retry})
	c.Track("a", 1)
	c.Flush(context.Background())
	if pub.published() != 1 {
		t.Errorf("published %d events after retries, want 1", pub.published())
	}
}

func TestCollectorBufferCap(t *testing.T) {
	pub := &fakePublisher{failFor: 100}
	c := NewCollector(pub, CollectorOptions{BatchSize: 2, Retry: noRetry()})
	for i := 0; i < 10; i++ {
		c.Track("q", i)
	}
	c.Flush(context.Background())
	if c.BufferLen() != 6 {
		t.Errorf("buffer = %d, want cap of 6", c.BufferLen())
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track("cat", SearchEvent{Type: EventSearch, Query: "cat", LatencyUs: 10})
	agg.Track("cat", SearchEvent{Type: EventSearch, Query: "cat", LatencyUs: 30})
	agg.Track("dog", &SearchEvent{Type: EventZeroResult, Query: "dog", LatencyUs: 20})
	agg.Track("bad", SearchEvent{Type: EventSearchFail, Query: "--"})
	agg.Track("doc", IndexEvent{Type: EventIndexDoc, DocumentID: 1})
	agg.Track("noise", "ignored")

	s := agg.Stats()
	if s.TotalSearches != 4 || s.FailedSearches != 1 || s.ZeroResultCount != 1 || s.TotalDocsIndexed != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.AvgLatencyUs != 20 || s.P50LatencyUs != 20 {
		t.Errorf("latency avg=%v p50=%v", s.AvgLatencyUs, s.P50LatencyUs)
	}
	if len(s.TopQueries) != 2 || s.TopQueries[0] != (QueryCount{Query: "cat", Count: 2}) {
		t.Errorf("top queries = %v", s.TopQueries)
	}
	if len(s.ZeroResultQueries) != 1 || s.ZeroResultQueries[0].Query != "dog" {
		t.Errorf("zero result queries = %v", s.ZeroResultQueries)
	}
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	search, _ := json.Marshal(SearchEvent{Type: EventZeroResult, Query: "parrot"})
	indexed, _ := json.Marshal(IndexEvent{Type: EventIndexDoc, DocumentID: 3})
	ctx := context.Background()

	if err := handle(ctx, []byte("parrot"), search); err != nil {
		t.Fatal(err)
	}
	if err := handle(ctx, []byte("3"), indexed); err != nil {
		t.Fatal(err)
	}
	if err := handle(ctx, nil, []byte(`{"type":"unknown"}`)); err != nil {
		t.Errorf("unknown type should be ignored, got %v", err)
	}
	if err := handle(ctx, nil, []byte(`not json`)); !errors.Is(err, kafka.ErrSkip) {
		t.Errorf("malformed event should be skipped, got %v", err)
	}
	s := agg.Stats()
	if s.ZeroResultCount != 1 || s.TotalDocsIndexed != 1 {
		t.Errorf("stats = %+v", s)
	}
}
