package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every index in [0, n) on at most limit goroutines and
// returns the results in index order. The first error cancels the context
// passed to the remaining calls and is returned once all of them finished.
func Map[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(limit))

	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
