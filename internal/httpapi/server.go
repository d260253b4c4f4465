package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"library-lending/internal/logging"
)

// ShutdownFunc is called during graceful shutdown to release resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs handler on addr until ctx is cancelled, then shuts the server
// down, giving in-flight requests up to timeout to finish.
func Serve(ctx context.Context, handler http.Handler, addr string, timeout time.Duration, log logging.Logger, onShutdown ShutdownFunc) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serve(ctx, &http.Server{Handler: handler}, ln, timeout, log, onShutdown)
}

func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration, log logging.Logger, onShutdown ShutdownFunc) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down http server", "timeout", timeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(context.Background(), "http server stopped")
	return nil
}
