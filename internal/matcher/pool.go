package matcher

import (
	"context"
	"sync"
)

// forEachIndexed runs fn for every index in [0, n) on a bounded worker pool.
// Each index is handled exactly once and fn writes only to its own slot, so
// no result locking is needed. Dispatch stops when the context is cancelled;
// in-flight work finishes first.
func forEachIndexed(ctx context.Context, workers, n int, fn func(i int)) {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	// Small batches are not worth the goroutine overhead.
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}
		return
	}

	indexCh := make(chan int, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			close(indexCh)
			wg.Wait()
			return
		}
	}
	close(indexCh)
	wg.Wait()
}
