// Package server owns the process lifecycle: the HTTP listener, the
// optional gRPC health server, and graceful shutdown on cancellation.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/orderly/pkg/grpc"
	"github.com/shashiranjanraj/orderly/pkg/logger"
)

// Options configures Run.
type Options struct {
	Addr    string
	Handler http.Handler
	// GRPC is served alongside HTTP when non-nil.
	GRPC            *grpc.Server
	ShutdownTimeout time.Duration
	// Ready, when set, receives the bound HTTP address once listening.
	Ready func(addr net.Addr)
}

// Run serves until ctx is cancelled or a server fails, then shuts every
// server down and returns the first error.
func Run(ctx context.Context, opts Options) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}

	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           opts.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http: listening", "addr", lis.Addr().String())
		if opts.Ready != nil {
			opts.Ready(lis.Addr())
		}
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("http: shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if opts.GRPC != nil {
		g.Go(func() error { return opts.GRPC.Serve(gctx) })
	}

	return g.Wait()
}
