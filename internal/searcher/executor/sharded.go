package executor

import (
	"slices"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/accumulator"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
)

// findAllSharded scans one posting list per worker and accumulates into a
// sharded map. Exclusion starts only after every plus term is accumulated.
func (e *Executor) findAllSharded(plan *parser.QueryPlan, pred index.Predicate) []index.Document {
	acc := accumulator.New[int, float64](e.shards)
	total := e.idx.DocCount()

	_ = execution.ForEach(execution.Parallel, e.workers, len(plan.Terms), func(i int) error {
		docs, ok := e.idx.Postings(plan.Terms[i])
		if !ok {
			return nil
		}
		idf := ranker.IDF(total, len(docs))
		for id, tf := range docs {
			rec, _ := e.idx.Record(id)
			if pred(id, rec.Status, rec.Rating) {
				acc.Add(id, tf*idf)
			}
		}
		return nil
	})
	_ = execution.ForEach(execution.Parallel, e.workers, len(plan.ExcludeTerms), func(i int) error {
		docs, ok := e.idx.Postings(plan.ExcludeTerms[i])
		if !ok {
			return nil
		}
		for id := range docs {
			acc.Delete(id)
		}
		return nil
	})
	return e.collect(acc.Snapshot())
}

func (e *Executor) matchParallel(plan *parser.QueryPlan, id int) []string {
	var excluded atomic.Bool
	_ = execution.ForEach(execution.Parallel, e.workers, len(plan.ExcludeTerms), func(i int) error {
		if !excluded.Load() && e.idx.HasTerm(id, plan.ExcludeTerms[i]) {
			excluded.Store(true)
		}
		return nil
	})
	if excluded.Load() {
		return []string{}
	}

	hits := make([]string, len(plan.Terms))
	_ = execution.ForEach(execution.Parallel, e.workers, len(plan.Terms), func(i int) error {
		if e.idx.HasTerm(id, plan.Terms[i]) {
			hits[i] = plan.Terms[i]
		}
		return nil
	})
	matched := slices.DeleteFunc(hits, func(term string) bool {
		return term == ""
	})
	slices.Sort(matched)
	return slices.Compact(matched)
}
