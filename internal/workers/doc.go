/*
Package workers sizes and runs bounded worker pools for batch thumbnail
generation.

Worker counts are derived from runtime.GOMAXPROCS(0), which follows container
CPU limits, rather than runtime.NumCPU(), which reports host CPUs:

	n := workers.ForMixed(8)
	err := workers.ForEach(ctx, n, files, func(ctx context.Context, f string) error {
	    _, err := factory.Thumbnail(ctx, uri(f), mime(f), mtime(f))
	    return err
	})

THUMBNAILER_WORKERS overrides the computed count (still capped by limit).
*/
package workers
