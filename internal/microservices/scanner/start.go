package scanner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Start runs one reader per device and returns when all of them stop.
func Start(ctx context.Context, devices []Device, sink Sink) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, dev := range devices {
		r := NewReader(dev, sink)
		g.Go(func() error { return r.Run(ctx) })
	}
	return g.Wait()
}
