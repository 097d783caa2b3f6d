package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CheckAll checks every manifest concurrently, at most jobs at a time.
// Each package owns its engines so checks never share state. Results keep
// the order of paths; the first load error cancels the remaining checks.
func CheckAll(ctx context.Context, paths []string, jobs int, opts Options) ([]*Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := CheckProject(gctx, path, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
