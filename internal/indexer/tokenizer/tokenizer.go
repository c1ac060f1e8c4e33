// Package tokenizer splits document and query text into words. Words are
// separated by the space character only; any byte below 0x20 makes a word
// invalid.
package tokenizer

import (
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
)

// SplitIntoWords returns the non-empty space-separated words of text in
// order. Runs of spaces collapse, leading and trailing spaces are ignored,
// and no other whitespace is treated as a separator.
func SplitIntoWords(text string) []string {
	words := make([]string, 0, strings.Count(text, " ")+1)
	for len(text) > 0 {
		i := strings.IndexByte(text, ' ')
		if i < 0 {
			words = append(words, text)
			break
		}
		if i > 0 {
			words = append(words, text[:i])
		}
		text = text[i+1:]
	}
	return words
}

// IsValidWord reports whether word is free of control characters.
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < ' ' {
			return false
		}
	}
	return true
}

// ValidateText returns an ErrInvalidText error when text contains a control
// character.
func ValidateText(text string) error {
	for i := 0; i < len(text); i++ {
		if text[i] < ' ' {
			return apperrors.Newf(apperrors.ErrInvalidText,
				"control character 0x%02x at byte %d", text[i], i)
		}
	}
	return nil
}

// UniqueNonEmpty collects the distinct non-empty strings of words.
func UniqueNonEmpty(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
