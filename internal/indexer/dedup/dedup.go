// Package dedup removes documents whose set of indexed words repeats the set
// of an earlier document.
package dedup

import (
	"log/slog"
	"sort"
	"strings"
)

// Index is the part of the engine the detector needs. DocumentIDs must
// return ids in insertion order; that order decides which copy survives.
type Index interface {
	DocumentIDs() []int
	GetWordFrequencies(id int) map[string]float64
	RemoveDocument(id int)
}

// RemoveDuplicates keeps the first document of every distinct word set and
// removes the rest, returning the removed ids in the order they were found.
// Frequencies and ratings are ignored. Documents with no indexed words form
// one set like any other. logger is used as given; nil means the default
// logger tagged with component=dedup.
func RemoveDuplicates(idx Index, logger *slog.Logger) []int {
	if logger == nil {
		logger = slog.Default().With("component", "dedup")
	}

	seen := make(map[string]struct{})
	var duplicates []int
	for _, id := range idx.DocumentIDs() {
		key := wordSetKey(idx.GetWordFrequencies(id))
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		seen[key] = struct{}{}
	}
	for _, id := range duplicates {
		logger.Info("found duplicate document", "doc_id", id)
		idx.RemoveDocument(id)
	}
	return duplicates
}

// wordSetKey joins the sorted words with NUL, which never occurs in an
// indexed word.
func wordSetKey(freqs map[string]float64) string {
	words := make([]string, 0, len(freqs))
	for w := range freqs {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, "\x00")
}
