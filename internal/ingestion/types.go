// Package ingestion defines how documents reach the engine: a YAML corpus
// file, the line-oriented console format, or IngestEvent messages on Kafka.
package ingestion

import "time"

const (
	ActionIndex  = "index"
	ActionRemove = "remove"
)

// IngestEvent is the Kafka message payload on the document-ingest topic.
// An empty Action means ActionIndex.
type IngestEvent struct {
	Action     string    `json:"action,omitempty"`
	DocumentID int       `json:"document_id"`
	Text       string    `json:"text"`
	Status     string    `json:"status,omitempty"`
	Ratings    []int     `json:"ratings"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Corpus is a stop-word list plus the documents to index, in order.
type Corpus struct {
	StopWords string           `yaml:"stopWords"`
	Documents []CorpusDocument `yaml:"documents"`
}

type CorpusDocument struct {
	ID      int    `yaml:"id"`
	Text    string `yaml:"text"`
	Status  string `yaml:"status"`
	Ratings []int  `yaml:"ratings"`
}
