package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/config"
	delivery "github.com/davidfdzmorilla/webdev-ecommerce/internal/delivery/http"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/eventbus"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging/kafka"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging/redis"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/messaging/watermill"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/metrics"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository/gormstore"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository/memory"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository/postgres"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/saga"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/service"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("Failed to close resource", "error", err)
			}
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// --- Storage ---
	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		closers = append(closers, db)
	}

	// --- Event bus ---
	bus, inbox, broker, err := openBus(ctx, cfg, log, metrics.NewBusMetrics(reg), db)
	if err != nil {
		return err
	}
	if broker != nil {
		// The bus drops its subscriptions before the broker connection goes.
		closers = append(closers, broker, bus.(io.Closer))
	}

	// --- Sagas ---
	if err := saga.Register(bus, saga.Deps{
		Inventory: store.Inventory,
		Orders:    store.Orders,
		Events:    store.Events,
		Inbox:     inbox,
		Log:       log,
	}); err != nil {
		return fmt.Errorf("failed to register sagas: %w", err)
	}

	// --- Services ---
	flusher := outbox.NewFlusher(store.Events, bus, log)
	opts := []service.Option{service.WithCartTTL(cfg.CartTTL)}
	handler := delivery.NewHandler(
		service.NewCatalogService(store.Products, store.Categories, store.Inventory, flusher, log),
		service.NewCartService(store.Carts, store.Products, flusher, log, opts...),
		service.NewOrderService(store.Orders, store.Carts, store.Users, flusher, log, opts...),
		service.NewPaymentService(store.Payments, store.Orders, flusher, log, opts...),
		service.NewIdentityService(store.Users, flusher, log),
	)

	if cfg.OutboxRelayInterval > 0 {
		relay := outbox.NewRelay(store.Events, bus, log)
		go relay.Run(ctx, cfg.OutboxRelayInterval)
		log.Info("Outbox relay started", "interval", cfg.OutboxRelayInterval.String())
	}

	// --- HTTP API ---
	router := delivery.NewRouter(delivery.RouterConfig{
		Handler:     handler,
		Log:         log,
		Metrics:     metrics.NewServerMetrics(reg),
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOrigins,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.Store, "bus", cfg.Bus)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openStore returns the repositories and, for Postgres, the database handle
// that also backs the outbox and the saga inbox.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Store, *sql.DB, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("Using in-memory store, state is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := postgres.InitDB(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return repository.Store{}, nil, fmt.Errorf("failed to init database: %w", err)
	}
	gdb, err := gormstore.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return repository.Store{}, nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gormstore.NewStore(gdb, postgres.NewEventStore(db)), db, nil
}

// openBus returns the configured bus. broker is nil for the in-process bus.
func openBus(ctx context.Context, cfg *config.Config, log *logger.Logger, obs eventbus.Observer, db *sql.DB) (bus eventbus.Bus, inbox saga.Inbox, broker messaging.Broker, err error) {
	busOpts := []eventbus.Option{
		eventbus.WithObserver(obs),
		eventbus.WithChannelPrefix(cfg.EventChannelPrefix),
		eventbus.WithHandlerConcurrency(cfg.HandlerConcurrency),
	}

	if db != nil {
		inbox = postgres.NewInbox(db)
	}

	switch cfg.Bus {
	case config.BusInProcess:
		return eventbus.NewInProcessBus(log, busOpts...), inbox, nil, nil
	case config.BusRedis:
		rb, err := redis.Dial(ctx, log, cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		if inbox == nil {
			inbox = redis.NewInbox(rb.Client(), cfg.InboxTTL)
		}
		broker = rb
	case config.BusKafka:
		broker = kafka.NewBroker(log, cfg.KafkaBrokers, cfg.KafkaGroupID)
	case config.BusGoChannel:
		broker = watermill.NewGoChannel(log)
	case config.BusWatermillKafka:
		wb, err := watermill.NewKafka(log, cfg.KafkaBrokers, cfg.KafkaGroupID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to kafka: %w", err)
		}
		broker = wb
	default:
		return nil, nil, nil, fmt.Errorf("unknown bus %q", cfg.Bus)
	}
	return eventbus.NewBrokerBus(log, broker, busOpts...), inbox, broker, nil
}
