package probe

import "sync"

// runAll dispatches fn concurrently for every target and waits for all of
// them to settle before returning. The result slice maps 1:1 onto targets:
// a slow target never delays the slot of a fast one, and a failing target
// fills its slot with a failed result instead of aborting the batch.
func runAll[T, R any](targets []T, fn func(T) R) []R {
	results := make([]R, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target T) {
			defer wg.Done()
			results[i] = fn(target)
		}(i, target)
	}
	wg.Wait()

	return results
}
