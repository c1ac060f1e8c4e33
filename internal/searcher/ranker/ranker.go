package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
)

const (
	// MaxResults is the hard cap on FindTopDocuments results.
	MaxResults = 5
	// Epsilon is the relevance difference below which rating decides order.
	Epsilon = 1e-6
)

// IDF is ln(totalDocs / docFreq). docFreq must be positive.
func IDF(totalDocs, docFreq int) float64 {
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Less orders by relevance descending; relevances closer than Epsilon are
// ordered by rating descending, then by id ascending.
func Less(a, b index.Document) bool {
	if math.Abs(a.Relevance-b.Relevance) < Epsilon {
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	}
	return a.Relevance > b.Relevance
}

// Rank orders docs in place with Less and truncates to limit (no truncation
// when limit <= 0).
func Rank(docs []index.Document, limit int) []index.Document {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(docs[i], docs[j])
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

// Top ranks docs and keeps the first MaxResults.
func Top(docs []index.Document) []index.Document {
	return Rank(docs, MaxResults)
}
