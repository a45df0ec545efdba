package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/efreitasn/matchengine/internal/config"
	"github.com/efreitasn/matchengine/internal/engine"
	"github.com/efreitasn/matchengine/internal/feed"
	"github.com/efreitasn/matchengine/internal/handler"
	"github.com/efreitasn/matchengine/internal/service"
	"github.com/efreitasn/matchengine/internal/sink"
	"github.com/efreitasn/matchengine/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil {
			os.Exit(1)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// A missing .env is fine; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Trade storage.
	tradeStore, closeStore, err := openTradeStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open trade store",
			slog.String("backend", cfg.TradeStore),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("trade store ready", slog.String("backend", cfg.TradeStore))

	// Publishers fed by the sink after each stored batch.
	var (
		publishers []sink.Publisher
		closers    []io.Closer
		hub        *feed.Hub
	)
	if len(cfg.KafkaBrokers) > 0 {
		kp := feed.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, kp)
		closers = append(closers, kp)
		logger.Info("kafka publisher enabled", slog.String("topic", cfg.KafkaTopic))
	}
	if cfg.TradeWebhookURL != "" {
		publishers = append(publishers, feed.NewWebhookPublisher(cfg.TradeWebhookURL, cfg.WebhookTimeout))
		logger.Info("webhook publisher enabled")
	}
	if cfg.WSEnabled {
		hub = feed.NewHub(logger)
		publishers = append(publishers, hub)
	}

	// Write-behind trade sink.
	tradeSink := sink.New(tradeStore, logger, sink.Config{
		MaxBatch:     cfg.SinkMaxBatch,
		RetryLimit:   cfg.SinkRetryLimit,
		RetryBackoff: cfg.SinkRetryBackoff,
		WriteTimeout: cfg.SinkWriteTimeout,
	}, publishers...)
	tradeSink.Start()

	// Engine.
	exchange := engine.NewExchange(tradeSink, logger)
	compactor := engine.NewCompactor(cfg.CompactionInterval, exchange, logger)
	compactor.Start(ctx)

	// Services.
	orderSvc := service.NewOrderService(exchange)
	marketSvc := service.NewMarketService(exchange)

	// Router.
	var tradeStream http.Handler
	if hub != nil {
		tradeStream = hub
	}
	router := handler.NewRouter(orderSvc, marketSvc, tradeStream, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop accepting requests, stop the compactor, drain
	// queued trades, then release publishers and storage.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	if err := exchange.Shutdown(shutdownCtx); err != nil {
		logger.Error("trade sink drain incomplete", slog.String("error", err.Error()))
	}
	stats := tradeSink.Stats()
	logger.Info("trade sink stopped",
		slog.Int64("written", stats.Written),
		slog.Int64("dropped", stats.Dropped),
		slog.Int64("compacted", compactor.Pruned()),
	)

	if hub != nil {
		hub.Close()
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("publisher close error", slog.String("error", err.Error()))
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("trade store close error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// openTradeStore builds the configured trade storage backend and returns
// a function that releases it.
func openTradeStore(ctx context.Context, cfg *config.Config) (sink.Store, func() error, error) {
	switch cfg.TradeStore {
	case config.StorePebble:
		s, err := store.OpenPebbleTradeStore(cfg.PebbleDir, nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := store.OpenPostgresTradeStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return store.NewMemoryTradeStore(), func() error { return nil }, nil
	}
}
