package index

import (
	"container/list"
	"maps"

	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
)

// MemoryIndex holds the inverted index (term -> document -> term frequency),
// its transpose, the document records and the insertion order of ids.
//
// MemoryIndex does no locking. Add and Remove must be serialised by the
// caller and must not overlap with reads; any number of reads may run
// concurrently.
type MemoryIndex struct {
	postings  map[string]map[int]float64
	docTerms  map[int]map[string]float64
	documents map[int]Record
	order     *list.List
	positions map[int]*list.Element
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		postings:  make(map[string]map[int]float64),
		docTerms:  make(map[int]map[string]float64),
		documents: make(map[int]Record),
		order:     list.New(),
		positions: make(map[int]*list.Element),
	}
}

// Add indexes words under id. The words must already be validated and
// stripped of stop words, and id must not be present.
func (m *MemoryIndex) Add(id int, words []string, status DocumentStatus, rating int) {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	freqs := make(map[string]float64, len(counts))
	total := float64(len(words))
	for term, count := range counts {
		tf := float64(count) / total
		freqs[term] = tf
		docs, exists := m.postings[term]
		if !exists {
			docs = make(map[int]float64)
			m.postings[term] = docs
		}
		docs[id] = tf
	}
	m.docTerms[id] = freqs
	m.documents[id] = Record{Status: status, Rating: rating}
	m.positions[id] = m.order.PushBack(id)
}

// Remove deletes every trace of id and reports whether it was present. Under
// execution.Parallel the per-term posting deletions are spread over workers
// goroutines; each one touches a distinct posting map.
func (m *MemoryIndex) Remove(policy execution.Policy, workers int, id int) bool {
	freqs, exists := m.docTerms[id]
	if !exists {
		return false
	}
	terms := make([]string, 0, len(freqs))
	lists := make([]map[int]float64, 0, len(freqs))
	for term := range freqs {
		terms = append(terms, term)
		lists = append(lists, m.postings[term])
	}
	_ = execution.ForEach(policy, workers, len(lists), func(i int) error {
		delete(lists[i], id)
		return nil
	})
	for i, term := range terms {
		if len(lists[i]) == 0 {
			delete(m.postings, term)
		}
	}
	delete(m.docTerms, id)
	delete(m.documents, id)
	if el, ok := m.positions[id]; ok {
		m.order.Remove(el)
		delete(m.positions, id)
	}
	return true
}

// Contains reports whether id is indexed.
func (m *MemoryIndex) Contains(id int) bool {
	_, exists := m.documents[id]
	return exists
}

// Postings returns the document -> term frequency map of term. The map is
// owned by the index and must not be modified.
func (m *MemoryIndex) Postings(term string) (map[int]float64, bool) {
	docs, exists := m.postings[term]
	return docs, exists
}

// WordFrequencies returns a copy of the term -> frequency map of id, empty
// when id is unknown.
func (m *MemoryIndex) WordFrequencies(id int) map[string]float64 {
	freqs, exists := m.docTerms[id]
	if !exists {
		return map[string]float64{}
	}
	return maps.Clone(freqs)
}

// HasTerm reports whether term occurs in document id.
func (m *MemoryIndex) HasTerm(id int, term string) bool {
	_, exists := m.postings[term][id]
	return exists
}

func (m *MemoryIndex) Record(id int) (Record, bool) {
	rec, exists := m.documents[id]
	return rec, exists
}

// IDs returns the indexed ids in insertion order.
func (m *MemoryIndex) IDs() []int {
	ids := make([]int, 0, m.order.Len())
	for el := m.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(int))
	}
	return ids
}

func (m *MemoryIndex) DocCount() int {
	return len(m.documents)
}

func (m *MemoryIndex) TermCount() int {
	return len(m.postings)
}
