package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"telegram-alerts-go/alert"

	"github.com/Harbinger55555/KV-StorageSys/internal/backend"
	"github.com/Harbinger55555/KV-StorageSys/internal/cache"
	"github.com/Harbinger55555/KV-StorageSys/internal/config"
	"github.com/Harbinger55555/KV-StorageSys/internal/httpserver"
	"github.com/Harbinger55555/KV-StorageSys/internal/logger"
	"github.com/Harbinger55555/KV-StorageSys/internal/metrics"
	"github.com/Harbinger55555/KV-StorageSys/internal/proxy"
	"github.com/Harbinger55555/KV-StorageSys/internal/server"
)

const metricsShutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the YAML config file; defaults apply when empty")
	debug := flag.Bool("debug", false, "log with the human-readable development encoder")
	flag.Parse()

	if _, err := logger.Init(*debug); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			zap.S().Fatalw(alert.Prefix("config load failed"), "path", *configPath, "error", err)
		}
		cfg = loaded
	}

	metrics.Register()

	store := cache.New()
	client := backend.NewClient(cfg.Backend)

	dispatcher, err := proxy.NewDispatcher(store, client, cfg)
	if err != nil {
		zap.S().Fatalw(alert.Prefix("dispatcher init failed"), "error", err)
	}
	tcpServer := server.New(cfg.ListenPort, dispatcher)

	zap.S().Infow("starting proxy",
		"listenPort", cfg.ListenPort,
		"backend", cfg.Backend.Addr(),
		"cacheMaxAge", cfg.Cache.MaxAge.Std(),
		"metricsPort", cfg.MetricsPort,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tcpServer.Serve(ctx)
	})
	g.Go(func() error {
		return serveMetrics(ctx, cfg.MetricsPort, httpserver.NewRouter(store))
	})

	if err := g.Wait(); err != nil {
		zap.S().Fatalw(alert.Prefix("proxy terminated"), "error", err)
	}
	zap.S().Infow("proxy stopped")
}

// serveMetrics runs the metrics HTTP server until ctx is canceled, then
// shuts it down gracefully.
func serveMetrics(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("metrics server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
