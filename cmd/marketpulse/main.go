// Command marketpulse is the composition root: it wires the ingest feed,
// tick bus, window store, analytics scheduler, snapshot store, and
// broadcaster into one running pipeline, and shuts them down in the
// documented order on signal (spec §5). Grounded on the teacher's
// cmd-style main.go: a zerolog console writer, godotenv-backed
// configuration, and a loud failure on missing required config.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/khanbekov/market-pulse/internal/abc"
	"github.com/khanbekov/market-pulse/internal/analytics"
	"github.com/khanbekov/market-pulse/internal/broadcast"
	"github.com/khanbekov/market-pulse/internal/bus"
	"github.com/khanbekov/market-pulse/internal/config"
	"github.com/khanbekov/market-pulse/internal/exchange"
	"github.com/khanbekov/market-pulse/internal/ingest"
	"github.com/khanbekov/market-pulse/internal/model"
	"github.com/khanbekov/market-pulse/internal/snapshot"
	"github.com/khanbekov/market-pulse/internal/window"
)

func main() {
	logger := newLogger()
	cfg := config.Load(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickBus := bus.New()
	windows := window.New()
	store := newSnapshotStore(cfg, logger)

	tickBus.Subscribe(ingest.Channel, func(tick model.Tick) {
		windows.Append(tick.Symbol, tick)
	})

	feed := ingest.New(
		ingest.DefaultConfig(cfg.BinanceURL, cfg.BinanceSymbols),
		exchange.NewCombinedStreamDecoder(),
		tickBus,
		logger.With().Str("component", "ingest").Logger(),
	)

	registry := broadcast.NewRegistry()
	broadcastServer := broadcast.NewServer(registry, store, logger.With().Str("component", "broadcast").Logger())
	broadcastScheduler := broadcast.NewScheduler(broadcastServer, registry, cfg.BroadcastInterval, logger.With().Str("component", "broadcast-scheduler").Logger())

	analyzer := abc.NewRandomlySeeded().WithMonteCarloParams(cfg.MonteCarloSimulations, cfg.MonteCarloHorizonDays)
	analyticsScheduler := analytics.NewScheduler(
		analytics.Config{
			Symbols:             cfg.AnalyticsSymbols,
			Interval:            cfg.AnalyticsSnapshotInterval,
			ArimaHorizonPeriods: cfg.ArimaHorizonPeriods,
		},
		windows, analyzer, store,
		logger.With().Str("component", "analytics").Logger(),
	)

	analyticsScheduler.Start(ctx)
	broadcastScheduler.Start(ctx)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: broadcastServer.Handler()}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("broadcast server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("broadcast server stopped")
		}
	}()

	go startHealthServer(cfg.HealthAddr, logger)

	feedErrCh := make(chan error, 1)
	go func() { feedErrCh <- feed.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-feedErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("ingest feed exited")
		}
	}

	shutdown(logger, analyticsScheduler, broadcastScheduler, httpServer, store)
}

// shutdown tears the pipeline down in the order spec §5 documents: the
// exchange connection is already closing as ctx cancellation propagates into
// Feed.Run's deferred disconnect; the schedulers stop next; the broadcast
// HTTP server (and with it every subscriber session) closes; the
// snapshot-store client is flushed/closed last.
func shutdown(logger zerolog.Logger, analyticsScheduler *analytics.Scheduler, broadcastScheduler *broadcast.Scheduler, httpServer *http.Server, store snapshot.Store) {
	analyticsScheduler.Stop()
	broadcastScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("broadcast server shutdown failed")
	}

	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn().Err(err).Msg("snapshot store close failed")
		}
	}
	logger.Info().Msg("shutdown complete")
}

func newSnapshotStore(cfg config.Config, logger zerolog.Logger) snapshot.Store {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("snapshot store: in-memory (REDIS_ADDR unset)")
		return snapshot.NewMemStore()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logger.Info().Str("addr", cfg.RedisAddr).Msg("snapshot store: redis")
	return snapshot.NewRedisStore(client)
}

func newLogger() zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.StampMicro}
	return zerolog.New(writer).With().Timestamp().Logger()
}

// startHealthServer runs a minimal fasthttp server exposing /healthz,
// giving the teacher's fasthttp dependency a server-side home alongside its
// client-side use against the exchange REST surface.
func startHealthServer(addr string, logger zerolog.Logger) {
	handler := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/healthz" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString(`{"status":"ok"}`)
	}
	logger.Info().Str("addr", addr).Msg("health server listening")
	if err := fasthttp.ListenAndServe(addr, handler); err != nil {
		logger.Error().Err(err).Msg("health server stopped")
	}
}
