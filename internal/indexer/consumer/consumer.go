// Package consumer applies ingest events from Kafka to the engine.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/metrics"
)

// Indexer is the mutating half of *indexer.Engine.
type Indexer interface {
	AddDocument(id int, text string, status index.DocumentStatus, ratings []int) error
	RemoveDocument(id int)
	GetDocumentCount() int
}

// Options are optional hooks; nil fields are skipped.
type Options struct {
	Metrics *metrics.Metrics
	Sink    analytics.Sink
}

// HandleMessage returns a MessageHandler that indexes or removes one
// document per event. Events the engine can never accept are reported with
// kafka.ErrSkip so they are committed instead of redelivered. The consumer
// calls the handler from one goroutine, which keeps the engine's single
// writer contract as long as nothing else mutates it meanwhile.
func HandleMessage(engine Indexer, opts Options) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			return fmt.Errorf("key %s: %v: %w", key, err, kafka.ErrSkip)
		}
		if err := validator.ValidateIngestEvent(&event); err != nil {
			return fmt.Errorf("document %d: %v: %w", event.DocumentID, err, kafka.ErrSkip)
		}

		if event.Action == ingestion.ActionRemove {
			before := engine.GetDocumentCount()
			engine.RemoveDocument(event.DocumentID)
			if engine.GetDocumentCount() == before {
				logger.Debug("remove ignored, unknown document", "doc_id", event.DocumentID)
				return nil
			}
			if opts.Metrics != nil {
				opts.Metrics.DocsRemovedTotal.Inc()
				opts.Metrics.IndexDocumentCount.Set(float64(engine.GetDocumentCount()))
			}
			logger.Info("document removed", "doc_id", event.DocumentID)
			return nil
		}

		status, _ := index.ParseStatus(event.Status)
		if err := engine.AddDocument(event.DocumentID, event.Text, status, event.Ratings); err != nil {
			if errors.Is(err, apperrors.ErrInvalidArgument) || errors.Is(err, apperrors.ErrInvalidText) {
				return fmt.Errorf("indexing document %d: %v: %w", event.DocumentID, err, kafka.ErrSkip)
			}
			return fmt.Errorf("indexing document %d: %w", event.DocumentID, err)
		}
		if opts.Metrics != nil {
			opts.Metrics.DocsIndexedTotal.Inc()
			opts.Metrics.IndexDocumentCount.Set(float64(engine.GetDocumentCount()))
		}
		if opts.Sink != nil {
			opts.Sink.Track(fmt.Sprint(event.DocumentID), analytics.IndexEvent{
				Type:       analytics.EventIndexDoc,
				DocumentID: event.DocumentID,
				Status:     status.String(),
				Timestamp:  time.Now().UTC(),
			})
		}
		logger.Info("document indexed", "doc_id", event.DocumentID, "status", status.String())
		return nil
	}
}
