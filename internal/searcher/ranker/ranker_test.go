package ranker

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
)

func ids(docs []index.Document) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestIDF(t *testing.T) {
	if got := IDF(4, 4); got != 0 {
		t.Errorf("IDF(4, 4) = %v, want 0", got)
	}
	if got, want := IDF(3, 1), math.Log(3); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(3, 1) = %v, want %v", got, want)
	}
}

func TestRankOrdersByRelevanceThenRating(t *testing.T) {
	docs := []index.Document{
		{ID: 1, Relevance: 0.2, Rating: 9},
		{ID: 2, Relevance: 0.5, Rating: 1},
		{ID: 3, Relevance: 0.5 + Epsilon/10, Rating: 4},
		{ID: 4, Relevance: 0.7, Rating: -3},
	}
	got := ids(Rank(docs, 0))
	want := []int{4, 3, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() order = %v, want %v", got, want)
	}
}

func TestRankBreaksFullTiesByID(t *testing.T) {
	docs := []index.Document{
		{ID: 8, Relevance: 0.3, Rating: 2},
		{ID: 5, Relevance: 0.3, Rating: 2},
		{ID: 6, Relevance: 0.3, Rating: 2},
	}
	got := ids(Rank(docs, 0))
	want := []int{5, 6, 8}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() order = %v, want %v", got, want)
	}
}

func TestTopTruncates(t *testing.T) {
	docs := make([]index.Document, 0, 9)
	for i := 0; i < 9; i++ {
		docs = append(docs, index.Document{ID: i, Relevance: float64(i)})
	}
	got := Top(docs)
	if len(got) != MaxResults {
		t.Fatalf("Top() returned %d docs, want %d", len(got), MaxResults)
	}
	if got[0].ID != 8 || got[MaxResults-1].ID != 4 {
		t.Errorf("Top() = %v", ids(got))
	}
}

func BenchmarkRank(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			src := make([]index.Document, n)
			for i := range src {
				src[i] = index.Document{ID: i, Relevance: float64(i%97) / 97, Rating: i % 10}
			}
			docs := make([]index.Document, n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				copy(docs, src)
				_ = Top(docs)
			}
		})
	}
}
