package indexer

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
)

var policies = []execution.Policy{execution.Sequential, execution.Parallel}

func mustEngine(t testing.TB, stopWords string) *Engine {
	t.Helper()
	e, err := NewFromText(stopWords)
	if err != nil {
		t.Fatalf("NewFromText(%q): %v", stopWords, err)
	}
	return e
}

func mustAdd(t testing.TB, e *Engine, id int, text string, status index.DocumentStatus, ratings ...int) {
	t.Helper()
	if err := e.AddDocument(id, text, status, ratings); err != nil {
		t.Fatalf("AddDocument(%d, %q): %v", id, text, err)
	}
}

func ids(docs []index.Document) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestConstructors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		e, err := New()
		if err != nil {
			t.Fatal(err)
		}
		if e.IsStopWord("and") {
			t.Error("no stop words expected")
		}
	})
	t.Run("collection dedups and drops empty", func(t *testing.T) {
		e, err := New("and", "", "in", "and")
		if err != nil {
			t.Fatal(err)
		}
		if len(e.stopWords) != 2 || !e.IsStopWord("in") {
			t.Errorf("stop words = %v", e.stopWords)
		}
	})
	t.Run("text", func(t *testing.T) {
		e := mustEngine(t, "  and in   at ")
		for _, w := range []string{"and", "in", "at"} {
			if !e.IsStopWord(w) {
				t.Errorf("%q should be a stop word", w)
			}
		}
	})
	t.Run("invalid collection", func(t *testing.T) {
		_, err := New("and", "i\x12n")
		if !errors.Is(err, apperrors.ErrInvalidText) {
			t.Errorf("expected ErrInvalidText, got %v", err)
		}
	})
	t.Run("invalid text", func(t *testing.T) {
		_, err := NewFromText("and i\x12n at")
		if !errors.Is(err, apperrors.ErrInvalidText) {
			t.Errorf("expected ErrInvalidText, got %v", err)
		}
	})
	t.Run("config", func(t *testing.T) {
		e, err := NewEngine(config.IndexerConfig{StopWords: "and with", Workers: 2, AccumulatorShards: 8})
		if err != nil {
			t.Fatal(err)
		}
		if !e.IsStopWord("with") {
			t.Error("expected with to be a stop word")
		}
	})
}

func TestAddDocumentValidation(t *testing.T) {
	e := mustEngine(t, "and in at")
	mustAdd(t, e, 1, "curly cat", index.StatusActual, 1)

	tests := []struct {
		name string
		id   int
		text string
		want error
	}{
		{"negative id", -1, "curly dog", apperrors.ErrInvalidArgument},
		{"duplicate id", 1, "curly dog", apperrors.ErrInvalidArgument},
		{"control character", 2, "curly d\x12og", apperrors.ErrInvalidText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := e.Generation()
			err := e.AddDocument(tt.id, tt.text, index.StatusActual, []int{1})
			if !errors.Is(err, tt.want) {
				t.Fatalf("AddDocument() error = %v, want %v", err, tt.want)
			}
			if e.GetDocumentCount() != 1 {
				t.Errorf("document count = %d, want 1", e.GetDocumentCount())
			}
			if e.Generation() != gen {
				t.Error("generation changed on failed add")
			}
		})
	}
	docs, err := e.FindTopDocuments("curly")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(docs), []int{1}) {
		t.Errorf("failed add left postings behind: %v", ids(docs))
	}
}

func TestStopWordsNeverIndexed(t *testing.T) {
	e := mustEngine(t, "in the")
	mustAdd(t, e, 42, "in the", index.StatusActual, 1, 2, 3)
	mustAdd(t, e, 43, "cat in the city", index.StatusActual, 1, 2, 3)

	docs, err := e.FindTopDocuments("in the")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("stop words matched documents %v", ids(docs))
	}
	if len(e.GetWordFrequencies(42)) != 0 {
		t.Errorf("stop-word document has terms: %v", e.GetWordFrequencies(42))
	}
	if e.GetDocumentCount() != 2 {
		t.Errorf("document count = %d, want 2", e.GetDocumentCount())
	}
}

func TestCurlyScenario(t *testing.T) {
	e := mustEngine(t, "and in at")
	mustAdd(t, e, 1, "curly cat curly tail", index.StatusActual, 7, 2, 7)
	mustAdd(t, e, 2, "curly dog and fancy collar", index.StatusActual, 1, 2, 3)

	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			docs, err := e.FindTopDocumentsPolicy(policy, "curly", index.Actual())
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids(docs), []int{1, 2}) {
				t.Fatalf("order = %v, want [1 2]", ids(docs))
			}
			if docs[0].Rating != 5 || docs[1].Rating != 2 {
				t.Errorf("ratings = %d, %d", docs[0].Rating, docs[1].Rating)
			}
		})
	}
	if tf := e.GetWordFrequencies(2)["curly"]; tf != 0.25 {
		t.Errorf("tf(curly, 2) = %v, want 0.25", tf)
	}
}

func TestRelevanceValues(t *testing.T) {
	e := mustEngine(t, "and in on")
	mustAdd(t, e, 0, "white cat and fashionable collar", index.StatusActual, 8, -3)
	mustAdd(t, e, 1, "fluffy cat fluffy tail", index.StatusActual, 7, 2, 7)
	mustAdd(t, e, 2, "groomed dog expressive eyes", index.StatusActual, 5, -12, 2, 1)

	docs, err := e.FindTopDocuments("fluffy groomed cat")
	if err != nil {
		t.Fatal(err)
	}
	want := []index.Document{
		{ID: 1, Relevance: 0.5*math.Log(3) + 0.25*math.Log(1.5), Rating: 5},
		{ID: 2, Relevance: 0.25 * math.Log(3), Rating: -1},
		{ID: 0, Relevance: 0.25 * math.Log(1.5), Rating: 2},
	}
	if len(docs) != len(want) {
		t.Fatalf("got %v, want %v", docs, want)
	}
	for i := range want {
		if docs[i].ID != want[i].ID || docs[i].Rating != want[i].Rating ||
			math.Abs(docs[i].Relevance-want[i].Relevance) > ranker.Epsilon {
			t.Errorf("docs[%d] = %v, want %v", i, docs[i], want[i])
		}
	}
}

func TestFindTopDocumentsFilters(t *testing.T) {
	e := mustEngine(t, "")
	mustAdd(t, e, 11, "first test for status", index.StatusBanned, 8, 3)
	mustAdd(t, e, 8, "second test for status", index.StatusRemoved, 8, 3)
	mustAdd(t, e, 2, "third test for status", index.StatusBanned, 8, 3)
	mustAdd(t, e, 14, "third test for status", index.StatusActual, 8, 3)
	mustAdd(t, e, 5, "third test for status", index.StatusIrrelevant, 8, 3)

	tests := []struct {
		status index.DocumentStatus
		want   int
	}{
		{index.StatusBanned, 2},
		{index.StatusRemoved, 1},
		{index.StatusIrrelevant, 1},
		{index.StatusActual, 1},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			docs, err := e.FindTopDocumentsByStatus("test", tt.status)
			if err != nil {
				t.Fatal(err)
			}
			if len(docs) != tt.want {
				t.Errorf("got %d documents, want %d", len(docs), tt.want)
			}
		})
	}

	even, err := e.FindTopDocumentsFunc("test", func(id int, _ index.DocumentStatus, _ int) bool {
		return id%2 == 0
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(even) != 3 {
		t.Errorf("even-id predicate returned %v", ids(even))
	}
}

func TestMinusTermIsAbsolute(t *testing.T) {
	e := mustEngine(t, "")
	mustAdd(t, e, 1, "curly cat with a tail", index.StatusActual, 1)
	mustAdd(t, e, 2, "curly cat", index.StatusActual, 1)
	everything := func(int, index.DocumentStatus, int) bool { return true }
	for _, policy := range policies {
		docs, err := e.FindTopDocumentsPolicy(policy, "curly cat -tail", everything)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids(docs), []int{2}) {
			t.Errorf("%v: got %v, want [2]", policy, ids(docs))
		}
	}
}

func TestFindTopDocumentsCapsAtFive(t *testing.T) {
	e := mustEngine(t, "")
	for id := 0; id < 8; id++ {
		mustAdd(t, e, id, fmt.Sprintf("cat number%d", id), index.StatusActual, id)
	}
	mustAdd(t, e, 100, "dog", index.StatusActual, 0)
	docs, err := e.FindTopDocuments("cat")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(docs), []int{7, 6, 5, 4, 3}) {
		t.Errorf("got %v, want five highest-rated", ids(docs))
	}
}

func TestQuerySyntaxErrors(t *testing.T) {
	e := mustEngine(t, "и в на")
	mustAdd(t, e, 1, "пушистый кот пушистый хвост", index.StatusActual, 1)
	for _, query := range []string{"пушистый --кот", "пушистый -", "скво\x12рец"} {
		for _, policy := range policies {
			if _, err := e.FindTopDocumentsPolicy(policy, query, index.Actual()); err == nil {
				t.Errorf("%v: expected error for %q", policy, query)
			}
			if _, _, err := e.MatchDocumentPolicy(policy, query, 1); err == nil {
				t.Errorf("%v: expected match error for %q", policy, query)
			}
		}
	}
}

func TestMatchDocument(t *testing.T) {
	e := mustEngine(t, "and with")
	mustAdd(t, e, 7, "funny pet with curly hair", index.StatusBanned, 1)
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			words, status, err := e.MatchDocumentPolicy(policy, "curly funny and dog", 7)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(words, []string{"curly", "funny"}) {
				t.Errorf("words = %q", words)
			}
			if status != index.StatusBanned {
				t.Errorf("status = %v", status)
			}
			words, _, err = e.MatchDocumentPolicy(policy, "curly funny -hair", 7)
			if err != nil {
				t.Fatal(err)
			}
			if len(words) != 0 {
				t.Errorf("minus term should clear match, got %q", words)
			}
			_, _, err = e.MatchDocumentPolicy(policy, "curly", 8)
			if !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRemoveDocumentIdempotent(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			e := mustEngine(t, "and with")
			mustAdd(t, e, 1, "funny pet and nasty rat", index.StatusActual, 1, 2)
			mustAdd(t, e, 2, "funny pet with curly hair", index.StatusActual, 1, 2)

			e.RemoveDocumentPolicy(policy, 1)
			gen := e.Generation()
			e.RemoveDocumentPolicy(policy, 1)
			if e.Generation() != gen {
				t.Error("second removal changed the generation")
			}
			if e.GetDocumentCount() != 1 {
				t.Errorf("document count = %d, want 1", e.GetDocumentCount())
			}
			if len(e.GetWordFrequencies(1)) != 0 {
				t.Error("word frequencies survived removal")
			}
			if !reflect.DeepEqual(e.DocumentIDs(), []int{2}) {
				t.Errorf("ids = %v", e.DocumentIDs())
			}
			docs, err := e.FindTopDocuments("nasty rat")
			if err != nil {
				t.Fatal(err)
			}
			if len(docs) != 0 {
				t.Errorf("removed document still found: %v", ids(docs))
			}
		})
	}
}

func TestRemoveThenReAddRoundTrip(t *testing.T) {
	texts := map[int]string{
		1: "funny pet and nasty rat",
		2: "funny pet with curly hair",
		3: "nasty rat with curly hair",
	}
	build := func() *Engine {
		e := mustEngine(t, "and with")
		for id := 1; id <= 3; id++ {
			mustAdd(t, e, id, texts[id], index.StatusActual, id, id+1)
		}
		return e
	}
	fresh := build()
	cycled := build()
	cycled.RemoveDocument(2)
	mustAdd(t, cycled, 2, texts[2], index.StatusActual, 2, 3)

	for _, query := range []string{"curly hair", "funny -rat", "nasty pet"} {
		want, err := fresh.FindTopDocuments(query)
		if err != nil {
			t.Fatal(err)
		}
		got, err := cycled.FindTopDocuments(query)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("query %q: got %v, want %v", query, got, want)
		}
	}
}

func TestSetStopWords(t *testing.T) {
	e := mustEngine(t, "")
	if err := e.SetStopWords("and in"); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, e, 1, "cat in the hat", index.StatusActual, 1)
	if _, ok := e.GetWordFrequencies(1)["in"]; ok {
		t.Error("in should be filtered as stop word")
	}
	if err := e.SetStopWords("the\x01"); !errors.Is(err, apperrors.ErrInvalidText) {
		t.Errorf("expected ErrInvalidText, got %v", err)
	}
}

func TestSetStopWordsAdvancesGeneration(t *testing.T) {
	e := mustEngine(t, "")
	mustAdd(t, e, 1, "cat here", index.StatusActual, 1)
	gen := e.Generation()
	if err := e.SetStopWords("cat"); err != nil {
		t.Fatal(err)
	}
	if e.Generation() == gen {
		t.Error("generation unchanged after SetStopWords")
	}
	gen = e.Generation()
	if err := e.SetStopWords("bad\x01"); err == nil {
		t.Fatal("expected error")
	}
	if e.Generation() != gen {
		t.Error("failed SetStopWords changed the generation")
	}
}

func TestInstanceIDsDiffer(t *testing.T) {
	a, b := mustEngine(t, ""), mustEngine(t, "")
	if a.InstanceID() == "" || a.InstanceID() == b.InstanceID() {
		t.Errorf("instance ids %q and %q", a.InstanceID(), b.InstanceID())
	}
}

func TestFindTopDocumentsNilPredicate(t *testing.T) {
	e := mustEngine(t, "")
	mustAdd(t, e, 1, "curly cat", index.StatusActual, 1)
	mustAdd(t, e, 2, "curly dog", index.StatusBanned, 5)
	for _, policy := range policies {
		docs, err := e.FindTopDocumentsPolicy(policy, "curly", nil)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids(docs), []int{1}) {
			t.Errorf("%s: ids = %v, want [1]", policy, ids(docs))
		}
	}
	docs, err := e.FindTopDocumentsFunc("curly", nil)
	if err != nil || !reflect.DeepEqual(ids(docs), []int{1}) {
		t.Errorf("FindTopDocumentsFunc(nil) = %v, %v", ids(docs), err)
	}
}

func TestRemoveDocumentWithoutTerms(t *testing.T) {
	e := mustEngine(t, "and")
	mustAdd(t, e, 5, "and and", index.StatusActual)
	e.RemoveDocument(5)
	if e.GetDocumentCount() != 0 {
		t.Errorf("document count = %d after removal", e.GetDocumentCount())
	}
}

func BenchmarkEngineAddDocument(b *testing.B) {
	e := mustEngine(b, "and in at with")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.AddDocument(i, "benchmark document body with several terms for measuring indexing throughput", index.StatusActual, []int{1, 2, 3}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngineFindTopDocuments(b *testing.B) {
	e := mustEngine(b, "and in at")
	terms := []string{"curly", "cat", "dog", "fancy", "collar", "tail", "groomed", "eyes"}
	for i := 0; i < 10000; i++ {
		text := fmt.Sprintf("%s %s and %s %s", terms[i%len(terms)], terms[(i+1)%len(terms)],
			terms[(i+3)%len(terms)], fmt.Sprintf("w%d", i%500))
		if err := e.AddDocument(i, text, index.StatusActual, []int{i % 10}); err != nil {
			b.Fatal(err)
		}
	}
	for _, policy := range policies {
		b.Run(policy.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.FindTopDocumentsPolicy(policy, "curly cat fancy -eyes", index.Actual()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
