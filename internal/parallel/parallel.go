package parallel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of a parallel check.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Detail  string
	Elapsed time.Duration
}

// Check is a named function run concurrently with the others. Detail
// is free-form text shown next to the check's status.
type Check struct {
	Name string
	Fn   func() (string, error)
}

// Run executes checks concurrently with the given limit and returns
// results in the order the checks were submitted. A failing check
// never cancels the others; failures are collected, not propagated.
func Run(checks []Check, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 4
	}

	results := make([]Result, len(checks))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)

	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			start := time.Now()
			detail, err := check.Fn()
			elapsed := time.Since(start)

			mu.Lock()
			results[i] = Result{
				Name:    check.Name,
				OK:      err == nil,
				Err:     err,
				Detail:  detail,
				Elapsed: elapsed,
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}
