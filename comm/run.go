package comm

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run calls fn once per communicator, each on its own goroutine, and waits
// for all of them. The context passed to fn is canceled as soon as any
// call fails, which unblocks ranks waiting on a failed peer. Run returns
// the first error.
func Run(ctx context.Context, comms []Communicator, fn func(ctx context.Context, c Communicator) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range comms {
		c := c
		g.Go(func() error {
			return fn(ctx, c)
		})
	}
	return g.Wait()
}
