package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/device"
	"userconsole/internal/guard"
	"userconsole/internal/platform/config"
	"userconsole/internal/platform/health"
	"userconsole/internal/platform/logger"
	"userconsole/internal/platform/metrics"
	"userconsole/internal/platform/redis"
	"userconsole/internal/platform/tracer"
	"userconsole/internal/session"
	httptransport "userconsole/internal/transport/http"
	"userconsole/pkg/platform/circuit"
	"userconsole/pkg/platform/middleware/metadata"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("server stopped")
}

// run wires the console and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing user console",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"backend_url", cfg.Backend.URL,
		"session_backend", cfg.Session.Backend,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	checks := health.New(cfg.Environment)

	breaker := circuit.New("backend",
		circuit.WithFailureThreshold(cfg.Backend.BreakerThreshold),
		circuit.WithCooldown(cfg.Backend.BreakerCooldown),
	)
	checks.RegisterCheck("backend", func(context.Context) error {
		if breaker.State() == circuit.StateOpen {
			return errors.New("circuit open")
		}
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)

	var sessions session.Backend
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rdb, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close() //nolint:errcheck // process is exiting
		sessions = session.NewRedisBackend(rdb.Client, cfg.Session.TTL)
		checks.RegisterCheck("redis", rdb.Health)
		g.Go(func() error {
			return rdb.RunPoolStats(gctx, cfg.Redis.StatsInterval, log)
		})
	default:
		sessions = session.NewMemoryBackend()
	}

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	deps := httptransport.Deps{
		Sessions: sessions,
		Client: client.Config{
			BaseURL:   cfg.Backend.URL,
			Timeout:   cfg.Backend.Timeout,
			Tracer:    tracer.NewOTel(),
			Metrics:   m,
			Breaker:   breaker,
			Logger:    log,
			UserAgent: "userconsole",
		},
		Guard:   guard.New(m, log),
		Flights: console.NewFlights(),
		Metrics: m,
		Health:  checks,
		Metadata: metadata.NewMiddleware(&metadata.Config{
			TrustedProxies: proxies,
			DeviceLabel:    device.Label,
		}),
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       log,
		CookieSecure: cfg.CookieSecure,
		Timeout:      cfg.RequestTimeout,
	}
	handler, err := httptransport.NewHandler(deps)
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httptransport.NewRouter(handler, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
