// Package parser turns a raw query string into a QueryPlan of plus terms
// and minus terms.
//
// A word starting with '-' is a minus term. A bare "-", a word starting with
// "--" and a word holding a control character are rejected. Stop words are
// dropped from both sets.
package parser

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/execution"
)

// QueryPlan is a parsed query. Terms and ExcludeTerms are sorted and free of
// duplicates.
type QueryPlan struct {
	Terms        []string
	ExcludeTerms []string
	RawQuery     string
}

// StopFunc reports whether a word is a stop word.
type StopFunc func(word string) bool

type queryWord struct {
	text    string
	exclude bool
	stop    bool
}

// Parse parses query on the caller's goroutine.
func Parse(query string, isStop StopFunc) (*QueryPlan, error) {
	return ParseWithPolicy(execution.Sequential, 0, query, isStop)
}

// ParseWithPolicy parses the words of query under the given policy. The
// result does not depend on the policy.
func ParseWithPolicy(policy execution.Policy, workers int, query string, isStop StopFunc) (*QueryPlan, error) {
	words := tokenizer.SplitIntoWords(query)
	parsed := make([]queryWord, len(words))
	err := execution.ForEach(policy, workers, len(words), func(i int) error {
		qw, err := parseWord(words[i], isStop)
		if err != nil {
			return err
		}
		parsed[i] = qw
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan := &QueryPlan{
		Terms:        make([]string, 0, len(parsed)),
		ExcludeTerms: make([]string, 0),
		RawQuery:     query,
	}
	for _, qw := range parsed {
		if qw.stop {
			continue
		}
		if qw.exclude {
			plan.ExcludeTerms = append(plan.ExcludeTerms, qw.text)
		} else {
			plan.Terms = append(plan.Terms, qw.text)
		}
	}
	plan.Terms = normalize(plan.Terms)
	plan.ExcludeTerms = normalize(plan.ExcludeTerms)
	return plan, nil
}

func parseWord(word string, isStop StopFunc) (queryWord, error) {
	if word == "" {
		return queryWord{}, apperrors.New(apperrors.ErrInvalidArgument, "empty query word")
	}
	exclude := false
	if word[0] == '-' {
		exclude = true
		word = word[1:]
	}
	if word == "" {
		return queryWord{}, apperrors.New(apperrors.ErrInvalidArgument, "minus sign without a word")
	}
	if word[0] == '-' {
		return queryWord{}, apperrors.Newf(apperrors.ErrInvalidArgument, "double minus in %q", "-"+word)
	}
	if !tokenizer.IsValidWord(word) {
		return queryWord{}, apperrors.Newf(apperrors.ErrInvalidText, "query word %q contains a control character", word)
	}
	return queryWord{
		text:    word,
		exclude: exclude,
		stop:    isStop != nil && isStop(word),
	}, nil
}

func normalize(terms []string) []string {
	slices.Sort(terms)
	return slices.Compact(terms)
}
