package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	aramcrm "github.com/infohyun/aramcrm-sub001"
	"github.com/infohyun/aramcrm-sub001/internal/presentation/tui"
	httpAdapter "github.com/infohyun/aramcrm-sub001/pkg/adapters/http"
)

// Handler builds the HTTP API for the runtime.
func (rt *Runtime) Handler() http.Handler {
	opts := []httpAdapter.Option{
		httpAdapter.WithStreams(rt.Streams),
		httpAdapter.WithLogger(rt.Logger),
	}
	if rt.Metrics != nil {
		opts = append(opts, httpAdapter.WithMetrics(rt.Metrics.Middleware, rt.Metrics.Handler()))
	}
	return httpAdapter.NewHandler(rt.Service, opts...)
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, rt *Runtime, out io.Writer) error {
	cfg := rt.Config.Server
	if cfg.Banner && out != nil {
		tui.PrintBanner(out, aramcrm.Version)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           rt.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		rt.Logger.Info("Starting HTTP server", "addr", srv.Addr, "store", rt.Config.Store.Driver)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		rt.Logger.Info("Start shutdown", "cause", context.Cause(ctx))

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Warn("Graceful shutdown did not complete", "timeout", cfg.ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		rt.Logger.Info("HTTP server stopped gracefully")
		return nil
	}
}
