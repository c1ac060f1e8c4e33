package executor

import (
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
)

// Executor evaluates parsed queries against a MemoryIndex. It only reads the
// index.
type Executor struct {
	idx     *index.MemoryIndex
	workers int
	shards  int
}

// New returns an Executor whose parallel paths use at most workers
// goroutines and an accumulator of shards shards.
func New(idx *index.MemoryIndex, workers int, shards int) *Executor {
	return &Executor{
		idx:     idx,
		workers: execution.Workers(workers),
		shards:  shards,
	}
}

// FindAll returns every document that scores on a plan term, passes pred and
// contains no exclude term, with its TF-IDF relevance. The result is
// unordered.
func (e *Executor) FindAll(policy execution.Policy, plan *parser.QueryPlan, pred index.Predicate) []index.Document {
	if policy == execution.Parallel {
		return e.findAllSharded(plan, pred)
	}
	relevance := make(map[int]float64)
	total := e.idx.DocCount()
	for _, term := range plan.Terms {
		docs, ok := e.idx.Postings(term)
		if !ok {
			continue
		}
		idf := ranker.IDF(total, len(docs))
		for id, tf := range docs {
			rec, _ := e.idx.Record(id)
			if pred(id, rec.Status, rec.Rating) {
				relevance[id] += tf * idf
			}
		}
	}
	for _, term := range plan.ExcludeTerms {
		docs, ok := e.idx.Postings(term)
		if !ok {
			continue
		}
		for id := range docs {
			delete(relevance, id)
		}
	}
	return e.collect(relevance)
}

// Match returns the plan terms present in document id, or none when an
// exclude term is present, together with the document status.
func (e *Executor) Match(policy execution.Policy, plan *parser.QueryPlan, id int) ([]string, index.DocumentStatus, error) {
	rec, ok := e.idx.Record(id)
	if !ok {
		return nil, 0, apperrors.Newf(apperrors.ErrNotFound, "document %d", id)
	}
	if policy == execution.Parallel {
		return e.matchParallel(plan, id), rec.Status, nil
	}
	for _, term := range plan.ExcludeTerms {
		if e.idx.HasTerm(id, term) {
			return []string{}, rec.Status, nil
		}
	}
	matched := make([]string, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		if e.idx.HasTerm(id, term) {
			matched = append(matched, term)
		}
	}
	return matched, rec.Status, nil
}

func (e *Executor) collect(relevance map[int]float64) []index.Document {
	docs := make([]index.Document, 0, len(relevance))
	for id, score := range relevance {
		rec, _ := e.idx.Record(id)
		docs = append(docs, index.Document{
			ID:        id,
			Relevance: score,
			Rating:    rec.Rating,
		})
	}
	return docs
}
