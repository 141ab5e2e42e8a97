// Package testutil provides helpers for exercising stores and services under
// concurrent load in tests.
package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "onboard-gateway/pkg/domain-errors"
)

// ConcurrentResult buckets the outcomes of a concurrent run by error class so
// tests can assert on how contention resolved.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
}

// RunConcurrent runs fn from the given number of goroutines at once and
// classifies each outcome as success, conflict, not-found, or other error.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, conflicts, notFounds atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			switch err := fn(idx); {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: notFounds.Load(),
	}
}
