// Package analytics tracks search traffic: a sliding window of recent calls
// with their zero-result count, plus search and index events that can be
// aggregated in process or shipped to Kafka.
package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// DefaultWindow is one call per minute over a day.
const DefaultWindow = 1440

// Searcher is satisfied by *indexer.Engine.
type Searcher interface {
	FindTopDocuments(rawQuery string) ([]index.Document, error)
	FindTopDocumentsByStatus(rawQuery string, status index.DocumentStatus) ([]index.Document, error)
	FindTopDocumentsFunc(rawQuery string, pred index.Predicate) ([]index.Document, error)
}

type RequestQueueOptions struct {
	// Window is how many recent successful calls are kept; <= 0 means
	// DefaultWindow.
	Window  int
	Metrics *metrics.Metrics
	Sink    Sink
}

// RequestQueue forwards searches and remembers, for the last Window
// successful calls, whether each returned nothing. It is not safe for
// concurrent use.
type RequestQueue struct {
	searcher Searcher
	window   int
	empty    []bool
	head     int
	size     int
	noResult int
	metrics  *metrics.Metrics
	sink     Sink
	now      func() time.Time
}

func NewRequestQueue(searcher Searcher, opts RequestQueueOptions) *RequestQueue {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &RequestQueue{
		searcher: searcher,
		window:   window,
		empty:    make([]bool, window),
		metrics:  opts.Metrics,
		sink:     opts.Sink,
		now:      time.Now,
	}
}

func (q *RequestQueue) AddFindRequest(rawQuery string) ([]index.Document, error) {
	return q.track(rawQuery, index.StatusActual.String(), func() ([]index.Document, error) {
		return q.searcher.FindTopDocuments(rawQuery)
	})
}

func (q *RequestQueue) AddFindRequestByStatus(rawQuery string, status index.DocumentStatus) ([]index.Document, error) {
	return q.track(rawQuery, status.String(), func() ([]index.Document, error) {
		return q.searcher.FindTopDocumentsByStatus(rawQuery, status)
	})
}

func (q *RequestQueue) AddFindRequestFunc(rawQuery string, pred index.Predicate) ([]index.Document, error) {
	return q.track(rawQuery, "predicate", func() ([]index.Document, error) {
		return q.searcher.FindTopDocumentsFunc(rawQuery, pred)
	})
}

// NoResultRequests counts calls in the window that returned no documents.
func (q *RequestQueue) NoResultRequests() int {
	return q.noResult
}

// Len is the number of calls currently in the window.
func (q *RequestQueue) Len() int {
	return q.size
}

func (q *RequestQueue) track(rawQuery, filter string, search func() ([]index.Document, error)) ([]index.Document, error) {
	start := q.now()
	docs, err := search()
	elapsed := q.now().Sub(start)

	event := SearchEvent{
		Type:      EventSearch,
		Query:     rawQuery,
		Filter:    filter,
		Returned:  len(docs),
		LatencyUs: elapsed.Microseconds(),
		Timestamp: start.UTC(),
	}
	if err != nil {
		event.Type = EventSearchFail
		event.Error = err.Error()
		q.observe(metrics.ResultError, elapsed, 0)
		q.emit(event)
		return nil, err
	}

	isEmpty := len(docs) == 0
	q.push(isEmpty)
	if isEmpty {
		event.Type = EventZeroResult
		q.observe(metrics.ResultZeroResult, elapsed, 0)
	} else {
		q.observe(metrics.ResultHit, elapsed, len(docs))
	}
	q.emit(event)
	return docs, nil
}

// push evicts the oldest call once the window is full.
func (q *RequestQueue) push(isEmpty bool) {
	if q.size == q.window {
		if q.empty[q.head] {
			q.noResult--
		}
		q.empty[q.head] = isEmpty
		q.head = (q.head + 1) % q.window
	} else {
		q.empty[(q.head+q.size)%q.window] = isEmpty
		q.size++
	}
	if isEmpty {
		q.noResult++
	}
}

func (q *RequestQueue) observe(resultType string, elapsed time.Duration, returned int) {
	if q.metrics == nil {
		return
	}
	q.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	q.metrics.SearchLatency.Observe(elapsed.Seconds())
	if resultType != metrics.ResultError {
		q.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

func (q *RequestQueue) emit(event SearchEvent) {
	if q.sink != nil {
		q.sink.Track(event.Query, event)
	}
}
