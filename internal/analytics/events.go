package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventSearchFail EventType = "search_error"
	EventIndexDoc   EventType = "index_document"
)

// SearchEvent describes one call made through a RequestQueue.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Filter    string    `json:"filter"`
	Returned  int       `json:"returned"`
	LatencyUs int64     `json:"latency_us"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexEvent describes one document added through the ingest consumer.
type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID int       `json:"document_id"`
	Status     string    `json:"status"`
	TokenCount int       `json:"token_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives analytics events. Collector and Aggregator implement it.
type Sink interface {
	Track(key string, event any)
}
