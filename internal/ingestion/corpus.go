package ingestion

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DocumentAdder is satisfied by *indexer.Engine.
type DocumentAdder interface {
	SetStopWords(text string) error
	AddDocument(id int, text string, status index.DocumentStatus, ratings []int) error
}

// LoadCorpus reads a YAML corpus file.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "parsing corpus file %s: %v", path, err)
	}
	return &c, nil
}

// ReadClassic reads the console format: a stop-word line, a document count
// line, then per document a text line and a ratings line "N r1 ... rN".
// Documents get ids 0..count-1 and status ACTUAL. Every non-empty line after
// the documents is returned as a query.
func ReadClassic(r io.Reader) (*Corpus, []string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("reading %s: %w", what, err)
			}
			return "", apperrors.Newf(apperrors.ErrInvalidArgument, "line %d: missing %s", line+1, what)
		}
		line++
		return strings.TrimSuffix(sc.Text(), "\r"), nil
	}

	stop, err := next("stop words")
	if err != nil {
		return nil, nil, err
	}
	countLine, err := next("document count")
	if err != nil {
		return nil, nil, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil || count < 0 {
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidArgument, "line %d: bad document count %q", line, countLine)
	}

	c := &Corpus{StopWords: stop, Documents: make([]CorpusDocument, 0, count)}
	for id := 0; id < count; id++ {
		text, err := next("document text")
		if err != nil {
			return nil, nil, err
		}
		ratingsLine, err := next("ratings")
		if err != nil {
			return nil, nil, err
		}
		ratings, err := parseRatings(ratingsLine)
		if err != nil {
			return nil, nil, apperrors.Newf(apperrors.ErrInvalidArgument, "line %d: %v", line, err)
		}
		c.Documents = append(c.Documents, CorpusDocument{ID: id, Text: text, Ratings: ratings})
	}

	var queries []string
	for sc.Scan() {
		if q := strings.TrimSuffix(sc.Text(), "\r"); strings.TrimSpace(q) != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading queries: %w", err)
	}
	return c, queries, nil
}

func parseRatings(s string) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("missing ratings count")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad ratings count %q", fields[0])
	}
	if len(fields)-1 != n {
		return nil, fmt.Errorf("expected %d ratings, got %d", n, len(fields)-1)
	}
	ratings := make([]int, n)
	for i, f := range fields[1:] {
		if ratings[i], err = strconv.Atoi(f); err != nil {
			return nil, fmt.Errorf("bad rating %q", f)
		}
	}
	return ratings, nil
}

// Apply adds the corpus stop words, then indexes every document in order.
// It stops at the first failure; documents before it stay indexed.
func (c *Corpus) Apply(e DocumentAdder) error {
	if err := e.SetStopWords(c.StopWords); err != nil {
		return fmt.Errorf("corpus stop words: %w", err)
	}
	for _, d := range c.Documents {
		status, err := index.ParseStatus(d.Status)
		if err != nil {
			return fmt.Errorf("document %d: %w", d.ID, err)
		}
		if err := e.AddDocument(d.ID, d.Text, status, d.Ratings); err != nil {
			return fmt.Errorf("document %d: %w", d.ID, err)
		}
	}
	return nil
}
