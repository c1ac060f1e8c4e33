// Package batch runs many queries against one searcher concurrently.
package batch

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
	"golang.org/x/sync/errgroup"
)

// Searcher is satisfied by *indexer.Engine.
type Searcher interface {
	FindTopDocuments(rawQuery string) ([]index.Document, error)
}

// ProcessQueries returns one result list per query, in query order. Queries
// run concurrently on at most GOMAXPROCS goroutines; the first error cancels
// the queries not yet started and is returned.
func ProcessQueries(ctx context.Context, s Searcher, queries []string) ([][]index.Document, error) {
	results := make([][]index.Document, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(execution.Workers(0))
	for i, query := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs, err := s.FindTopDocuments(query)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessQueriesJoined is ProcessQueries flattened into one list, query by
// query.
func ProcessQueriesJoined(ctx context.Context, s Searcher, queries []string) ([]index.Document, error) {
	results, err := ProcessQueries(ctx, s, queries)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, docs := range results {
		total += len(docs)
	}
	joined := make([]index.Document, 0, total)
	for _, docs := range results {
		joined = append(joined, docs...)
	}
	return joined, nil
}
