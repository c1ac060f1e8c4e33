package index

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// DocumentStatus is caller-assigned metadata. Ranking never looks at it
// except through a Predicate.
type DocumentStatus int

const (
	StatusActual DocumentStatus = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

func (s DocumentStatus) String() string {
	switch s {
	case StatusActual:
		return "ACTUAL"
	case StatusIrrelevant:
		return "IRRELEVANT"
	case StatusBanned:
		return "BANNED"
	case StatusRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("DocumentStatus(%d)", int(s))
	}
}

// ParseStatus is the inverse of DocumentStatus.String, case-insensitive.
func ParseStatus(s string) (DocumentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACTUAL":
		return StatusActual, nil
	case "IRRELEVANT":
		return StatusIrrelevant, nil
	case "BANNED":
		return StatusBanned, nil
	case "REMOVED":
		return StatusRemoved, nil
	default:
		return StatusActual, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown document status %q", s)
	}
}

// Document is one ranked search result.
type Document struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

func (d Document) String() string {
	return fmt.Sprintf("{ document_id = %d, relevance = %g, rating = %d }", d.ID, d.Relevance, d.Rating)
}

// Record is the stored metadata of an indexed document.
type Record struct {
	Status DocumentStatus
	Rating int
}

// Predicate filters documents during relevance accumulation. Parallel
// searches call it from several goroutines at once.
type Predicate func(id int, status DocumentStatus, rating int) bool

// StatusIs matches documents with exactly the given status.
func StatusIs(status DocumentStatus) Predicate {
	return func(_ int, s DocumentStatus, _ int) bool {
		return s == status
	}
}

// Actual is the default filter of FindTopDocuments.
func Actual() Predicate {
	return StatusIs(StatusActual)
}

// AverageRating is the truncated integer mean of ratings, 0 when empty.
func AverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
