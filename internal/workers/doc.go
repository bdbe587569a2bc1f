/*
Package workers sizes and runs the worker pools used while scanning the
music library.

Worker counts are derived from GOMAXPROCS rather than runtime.NumCPU, so a
container limited to two CPUs on a large host does not spawn dozens of tag
readers:

	n := workers.ForIO(16) // 2 per CPU, at most 16

The SCAN_WORKERS environment variable overrides the calculation:

	SCAN_WORKERS=4 jukebox --path ~/Music

ForEach fans a fixed number of jobs out to a pool and waits for them:

	results := make([]Track, len(paths))
	err := workers.ForEach(ctx, workers.ForIO(16), len(paths), func(i int) {
		results[i] = readTrack(paths[i])
	})
*/
package workers
