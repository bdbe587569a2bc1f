package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// EnvOverride names the environment variable that fixes the worker count.
const EnvOverride = "SCAN_WORKERS"

// Count returns the number of workers for a task type. It respects container
// CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// limit caps the result; 0 means no cap. SCAN_WORKERS overrides the
// calculation but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForEach calls fn for every index in [0, n) using at most workers
// goroutines. Indexes not yet started when ctx is canceled are skipped and
// ctx.Err() is returned. fn must be safe for concurrent use; results are
// usually written to a slice slot owned by the index.
func ForEach(ctx context.Context, workers, n int, fn func(i int)) error {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return err
}
