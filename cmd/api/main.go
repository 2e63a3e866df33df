package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/dejobratic/orderdesk/internal/config"
	"github.com/dejobratic/orderdesk/internal/database"
	"github.com/dejobratic/orderdesk/internal/feed"
	idemmemory "github.com/dejobratic/orderdesk/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/orderdesk/internal/idempotency/postgres"
	"github.com/dejobratic/orderdesk/internal/kafka"
	"github.com/dejobratic/orderdesk/internal/orders/adapters"
	httpadapter "github.com/dejobratic/orderdesk/internal/orders/adapters/http"
	ordersmemory "github.com/dejobratic/orderdesk/internal/orders/adapters/memory"
	orderspostgres "github.com/dejobratic/orderdesk/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/orderdesk/internal/orders/app"
	"github.com/dejobratic/orderdesk/internal/orders/app/commands"
	ordersmetrics "github.com/dejobratic/orderdesk/internal/orders/metrics"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"github.com/dejobratic/orderdesk/internal/telemetry"
)

const meterName = "github.com/dejobratic/orderdesk"

// expiringStore is an idempotency store that can drop stale keys.
type expiringStore interface {
	ports.IdempotencyStore
	DeleteExpired(ctx context.Context) (int64, error)
}

func main() {
	if err := run(); err != nil {
		slog.Error("orderdesk api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(level).With("service", cfg.Service.Name)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	meter := otel.Meter(meterName)
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return err
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return err
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return err
	}

	var (
		stores    ordersapp.Stores
		idemStore expiringStore
		ready     = func(context.Context) error { return nil }
	)

	switch cfg.Database.Driver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		db := ordersmemory.NewDatabase()
		stores = ordersapp.Stores{
			Customers: ordersmemory.NewCustomerRepository(db),
			Orders:    ordersmemory.NewOrderRepository(db),
			Tx:        ordersmemory.NewTransactor(db),
		}
		idemStore = idemmemory.NewStore(cfg.Idempotency.TTL)

	default:
		pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		tx := orderspostgres.NewTransactor(pool)
		stores = ordersapp.Stores{
			Customers: orderspostgres.NewCustomerRepository(pool),
			Orders:    orderspostgres.NewOrderRepository(pool),
			Tx:        tx,
			Snapshots: tx,
		}
		idemStore = idempostgres.NewStore(pool, cfg.Idempotency.TTL)
		ready = func(ctx context.Context) error { return database.CheckHealth(ctx, pool) }
	}

	stores.Customers = adapters.NewObservableCustomerStore(stores.Customers, dbMetrics)
	stores.Orders = adapters.NewObservableOrderStore(stores.Orders, dbMetrics)

	var events ports.EventBus = kafka.NewNoopEventBus(logger)
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
			Imported:  cfg.Kafka.ImportedTopic,
			Cancelled: cfg.Kafka.CancelledTopic,
		}, logger)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("kafka producer close failed", "error", err)
			}
		}()
		events = producer
	}
	events = adapters.NewObservableEventBus(events, kafkaMetrics)

	service := ordersapp.NewService(
		stores,
		events,
		idemStore,
		feedSource(cfg.Import),
		commands.CancelPolicy{AllowRepeat: cfg.Orders.CancelAllowRepeat},
		logger,
		orderMetrics,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET "+cfg.HTTP.MetricsPath, tel.MetricsHandler())

	httpadapter.NewHandler(service, logger).Register(mux)

	var handler http.Handler = mux
	handler = httpadapter.WithMetrics(handler, httpMetrics)
	handler = httpadapter.WithLogging(handler, logger)
	handler = httpadapter.WithRequestID(handler)
	handler = httpadapter.WithRecovery(handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go sweepIdempotencyKeys(ctx, idemStore, cfg.Idempotency.SweepInterval, logger)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "storage", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed successfully", "version", version)
	}

	return pool, nil
}

func feedSource(cfg config.ImportConfig) ports.FeedSource {
	if cfg.FeedURL != "" {
		return feed.NewHTTPSource(cfg.FeedURL, cfg.FetchTimeout)
	}
	if cfg.FeedPath != "" {
		return feed.NewFileSource(cfg.FeedPath)
	}
	return nil
}

func sweepIdempotencyKeys(ctx context.Context, store expiringStore, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "idempotency sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.DebugContext(ctx, "idempotency keys expired", "removed", removed)
			}
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
