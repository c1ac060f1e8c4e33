// Package validator checks ingest events before they reach the engine and
// reports every offending field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

const maxTextLength = 1 << 20

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Unwrap classifies every validation failure as ErrInvalidArgument.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidArgument
}

// ValidateIngestEvent checks the fields the engine would otherwise reject
// later. Duplicate ids are left to the engine.
func ValidateIngestEvent(event *ingestion.IngestEvent) error {
	errs := make(map[string]string)

	switch event.Action {
	case "", ingestion.ActionIndex:
		if err := tokenizer.ValidateText(event.Text); err != nil {
			errs["text"] = "text must not contain control characters"
		} else if len(event.Text) > maxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		}
		if _, err := index.ParseStatus(event.Status); err != nil {
			errs["status"] = fmt.Sprintf("unknown status %q", event.Status)
		}
	case ingestion.ActionRemove:
	default:
		errs["action"] = fmt.Sprintf("unknown action %q", event.Action)
	}
	if event.DocumentID < 0 {
		errs["document_id"] = "document id must not be negative"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
