// Package adminservice wires config, storage and the HTTP API into a
// runnable service. main() is expected to call Run and exit with the
// returned error, if any.
package adminservice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliolab/folio-backend/internal/api"
	"github.com/foliolab/folio-backend/internal/config"
	"github.com/foliolab/folio-backend/internal/events"
	"github.com/foliolab/folio-backend/internal/factory"
	"github.com/foliolab/folio-backend/internal/health"
	"github.com/foliolab/folio-backend/internal/logger"
	"github.com/foliolab/folio-backend/internal/store"
)

// Run starts the folio admin service and blocks until the context is
// cancelled by SIGINT/SIGTERM or the HTTP server fails.
func Run() error {
	ctx, stop := newServerContext()
	defer stop()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("folio-admin")

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// The bus is for embedding consumers (Subscribe); this binary attaches
	// none, so publishes beyond the buffer are dropped.
	bus := events.NewBus(cfg.EventBuffer)

	serviceHealth := startHealthCheckers(ctx, cfg, st, log)

	router := api.NewRouter(log, st, bus)

	srv := newHTTPServer(cfg.HTTPPort, router)

	if err := waitUntilHealthy(ctx, cfg, serviceHealth); err != nil {
		return err
	}

	return serveHTTP(ctx, srv, log)
}

func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
}

func startHealthCheckers(ctx context.Context, cfg *config.Config, st store.Store, log zerolog.Logger) *health.ServiceHealthChecker {
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second

	storeChecker := store.NewHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	serviceChecker := health.NewServiceHealthChecker(log, storeChecker)
	go serviceChecker.Start(ctx, interval)

	api.BindServiceHealth(serviceChecker.IsHealthy)
	return serviceChecker
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startupHealthTimeout gives the checkers at least two full probe cycles
// before startup is abandoned, with a floor of 60 seconds.
func startupHealthTimeout(healthIntervalSeconds int) time.Duration {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		timeout = 60
	}
	return time.Duration(timeout) * time.Second
}

// waitUntilHealthy blocks until the service health checker reports
// healthy, so the server never accepts traffic against a dead store.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, h *health.ServiceHealthChecker) error {
	timeout := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if h.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: store not healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func serveHTTP(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
