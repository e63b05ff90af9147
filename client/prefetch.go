package client

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Prefetch warms the cache for paths with at most limit concurrent GETs.
// The first failure cancels the remaining fetches and is returned.
func (c *Client) Prefetch(ctx context.Context, limit int, paths ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, p := range paths {
		g.Go(func() error {
			return c.Get(gctx, p, nil)
		})
	}
	return g.Wait()
}
