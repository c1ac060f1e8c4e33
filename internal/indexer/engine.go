// Package indexer is the document search engine: it indexes documents with
// their status and rating and answers ranked TF-IDF queries with plus and
// minus terms.
//
// Engine does no internal locking. Structural mutations (AddDocument,
// RemoveDocument, SetStopWords) must be serialised by the caller and must
// not overlap with queries. Queries may run concurrently with each other,
// and any single call may fan out internally under execution.Parallel.
package indexer

import (
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
	"github.com/google/uuid"
)

type Engine struct {
	idx        *index.MemoryIndex
	exec       *executor.Executor
	stopWords  map[string]struct{}
	cfg        config.IndexerConfig
	logger     *slog.Logger
	instanceID string
	generation atomic.Uint64
}

// New creates an engine whose stop words are the given collection.
func New(stopWords ...string) (*Engine, error) {
	return newEngine(config.IndexerConfig{}, stopWords)
}

// NewFromText creates an engine whose stop words are the space-separated
// words of text.
func NewFromText(text string) (*Engine, error) {
	if err := tokenizer.ValidateText(text); err != nil {
		return nil, err
	}
	return newEngine(config.IndexerConfig{}, tokenizer.SplitIntoWords(text))
}

// NewEngine creates an engine from configuration; cfg.StopWords is parsed as
// space-separated text.
func NewEngine(cfg config.IndexerConfig) (*Engine, error) {
	if err := tokenizer.ValidateText(cfg.StopWords); err != nil {
		return nil, err
	}
	return newEngine(cfg, tokenizer.SplitIntoWords(cfg.StopWords))
}

func newEngine(cfg config.IndexerConfig, stopWords []string) (*Engine, error) {
	set := tokenizer.UniqueNonEmpty(stopWords)
	for word := range set {
		if !tokenizer.IsValidWord(word) {
			return nil, apperrors.Newf(apperrors.ErrInvalidText, "stop word %q contains a control character", word)
		}
	}
	idx := index.NewMemoryIndex()
	instanceID := uuid.NewString()
	e := &Engine{
		idx:        idx,
		exec:       executor.New(idx, cfg.Workers, cfg.AccumulatorShards),
		stopWords:  set,
		cfg:        cfg,
		logger:     slog.Default().With("component", "indexer", "instance_id", instanceID),
		instanceID: instanceID,
	}
	return e, nil
}

// SetStopWords adds the space-separated words of text to the stop words.
// Documents indexed earlier keep their postings, but later queries drop the
// new stop words, so the generation advances.
func (e *Engine) SetStopWords(text string) error {
	if err := tokenizer.ValidateText(text); err != nil {
		return err
	}
	for _, word := range tokenizer.SplitIntoWords(text) {
		e.stopWords[word] = struct{}{}
	}
	e.generation.Add(1)
	return nil
}

func (e *Engine) IsStopWord(word string) bool {
	_, ok := e.stopWords[word]
	return ok
}

// AddDocument indexes text under id. It fails with ErrInvalidArgument for a
// negative or already present id and with ErrInvalidText when text holds a
// control character; in both cases the engine is left unchanged.
func (e *Engine) AddDocument(id int, text string, status index.DocumentStatus, ratings []int) error {
	if id < 0 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "negative document id %d", id)
	}
	if e.idx.Contains(id) {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "duplicate document id %d", id)
	}
	words, err := e.splitNoStop(text)
	if err != nil {
		return err
	}
	e.idx.Add(id, words, status, index.AverageRating(ratings))
	e.generation.Add(1)
	e.logger.Debug("document indexed",
		"doc_id", id,
		"token_count", len(words),
		"doc_count", e.idx.DocCount(),
	)
	return nil
}

// FindTopDocuments returns up to five ACTUAL documents ranked by relevance.
func (e *Engine) FindTopDocuments(rawQuery string) ([]index.Document, error) {
	return e.FindTopDocumentsPolicy(execution.Sequential, rawQuery, index.Actual())
}

func (e *Engine) FindTopDocumentsByStatus(rawQuery string, status index.DocumentStatus) ([]index.Document, error) {
	return e.FindTopDocumentsPolicy(execution.Sequential, rawQuery, index.StatusIs(status))
}

// FindTopDocumentsFunc filters by pred; a nil pred keeps ACTUAL documents.
func (e *Engine) FindTopDocumentsFunc(rawQuery string, pred index.Predicate) ([]index.Document, error) {
	return e.FindTopDocumentsPolicy(execution.Sequential, rawQuery, pred)
}

// FindTopDocumentsPolicy is the general form: documents passing pred and
// free of minus terms, ordered by relevance (rating breaks near ties) and
// capped at ranker.MaxResults. Under execution.Parallel pred is called
// concurrently. A nil pred keeps ACTUAL documents.
func (e *Engine) FindTopDocumentsPolicy(policy execution.Policy, rawQuery string, pred index.Predicate) ([]index.Document, error) {
	if pred == nil {
		pred = index.Actual()
	}
	plan, err := e.parse(policy, rawQuery)
	if err != nil {
		return nil, err
	}
	return ranker.Top(e.exec.FindAll(policy, plan, pred)), nil
}

// MatchDocument returns the sorted plus terms of rawQuery found in document
// id, or none if any minus term is found, along with the document status.
// It fails with ErrNotFound for an unknown id.
func (e *Engine) MatchDocument(rawQuery string, id int) ([]string, index.DocumentStatus, error) {
	return e.MatchDocumentPolicy(execution.Sequential, rawQuery, id)
}

func (e *Engine) MatchDocumentPolicy(policy execution.Policy, rawQuery string, id int) ([]string, index.DocumentStatus, error) {
	if !e.idx.Contains(id) {
		return nil, 0, apperrors.Newf(apperrors.ErrNotFound, "document %d", id)
	}
	plan, err := e.parse(policy, rawQuery)
	if err != nil {
		return nil, 0, err
	}
	return e.exec.Match(policy, plan, id)
}

// RemoveDocument deletes document id. Unknown ids are ignored.
func (e *Engine) RemoveDocument(id int) {
	e.RemoveDocumentPolicy(execution.Sequential, id)
}

func (e *Engine) RemoveDocumentPolicy(policy execution.Policy, id int) {
	if !e.idx.Remove(policy, e.cfg.Workers, id) {
		return
	}
	e.generation.Add(1)
	e.logger.Debug("document removed",
		"doc_id", id,
		"policy", policy.String(),
		"doc_count", e.idx.DocCount(),
	)
}

// GetWordFrequencies returns a copy of the term frequencies of document id;
// the map is empty for an unknown id.
func (e *Engine) GetWordFrequencies(id int) map[string]float64 {
	return e.idx.WordFrequencies(id)
}

// DocumentIDs returns the indexed ids in insertion order.
func (e *Engine) DocumentIDs() []int {
	return e.idx.IDs()
}

func (e *Engine) GetDocumentCount() int {
	return e.idx.DocCount()
}

// InstanceID is a random id fixed at construction. Together with Generation
// it names the engine state, also across processes sharing a cache.
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Generation changes on every successful AddDocument, RemoveDocument and
// SetStopWords.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *Engine) parse(policy execution.Policy, rawQuery string) (*parser.QueryPlan, error) {
	return parser.ParseWithPolicy(policy, e.cfg.Workers, rawQuery, e.IsStopWord)
}

// splitNoStop validates every word before returning any, so a failure
// leaves nothing half indexed.
func (e *Engine) splitNoStop(text string) ([]string, error) {
	words := tokenizer.SplitIntoWords(text)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !tokenizer.IsValidWord(word) {
			return nil, apperrors.Newf(apperrors.ErrInvalidText, "word %q contains a control character", word)
		}
		if !e.IsStopWord(word) {
			kept = append(kept, word)
		}
	}
	return kept, nil
}
