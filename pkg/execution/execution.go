// Package execution selects between running an operation on the caller's
// goroutine and fanning it out over a bounded pool of goroutines. Every
// parallel variant in the engine goes through ForEach so the degree of
// parallelism is decided in one place.
package execution

import (
	"fmt"
	"runtime"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Policy is the caller-chosen execution mode of a single operation.
type Policy int

const (
	Sequential Policy = iota
	Parallel
)

func (p Policy) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts "sequential"/"seq" and "parallel"/"par".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "seq":
		return Sequential, nil
	case "parallel", "par":
		return Parallel, nil
	default:
		return Sequential, apperrors.Newf(apperrors.ErrInvalidArgument, "unknown execution policy %q", s)
	}
}

// Workers normalises a configured worker count: non-positive values mean
// GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ForEach calls fn for every index in [0, n). Under Sequential the calls run
// in order on the caller's goroutine and stop at the first error. Under
// Parallel at most workers calls run at once and every call runs; the error
// of the lowest failing index is returned, which is the error Sequential
// would have stopped at.
func ForEach(policy Policy, workers int, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if policy != Parallel || n == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(Workers(workers))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
