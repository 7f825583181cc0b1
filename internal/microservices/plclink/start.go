package plclink

import (
	"context"
)

// Start binds the PLC port and serves until ctx is cancelled. It returns
// immediately with an error if the port cannot be bound.
func Start(ctx context.Context, cfg Config, h Handler) error {
	srv, err := Listen(cfg, h)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
