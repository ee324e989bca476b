package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/amqpx"
	"github.com/ariefcatur/go-saga-orders/internal/catalog"
	"github.com/ariefcatur/go-saga-orders/internal/chat"
	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/observability"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/ariefcatur/go-saga-orders/internal/sqlite"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load("order-service")
	log := logx.New(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatal("tracing setup", zap.Error(err))
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("order store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	svc := orders.NewService(store, catalog.NewClient(cfg.CatalogURL, cfg.ReserveTimeout), log)
	svc.ReserveTimeout = cfg.ReserveTimeout
	svc.NotifyTimeout = cfg.NotifyTimeout
	svc.Producer = cfg.ServiceName

	if cfg.RedisAddr != "" {
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, status cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			svc.Cache = &orders.RedisStatusCache{Redis: rdb}
		}
	}

	// Broker publishers: Kafka carries domain events when configured, RabbitMQ otherwise.
	var (
		prod    *kafkax.Producer
		amqpPub *amqpx.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start()
		svc.Events = prod
	}
	if cfg.AMQPURL != "" {
		conn, ch, err := amqpx.SetupConn(ctx, cfg.AMQPURL, log)
		if err != nil {
			log.Warn("rabbitmq unavailable", zap.Error(err))
		} else {
			defer conn.Close()
			defer ch.Close()
			amqpPub = amqpx.NewPublisher(ch)
			if svc.Events == nil {
				svc.Events = amqpPub
			}
		}
	}

	switch cfg.NotifyTransport {
	case config.NotifyHTTP:
		svc.Notifier = chat.NewClient(cfg.ChatURL, cfg.NotifyTimeout)
	case config.NotifyKafka:
		if prod == nil {
			log.Fatal("NOTIFY_TRANSPORT=kafka needs KAFKA_BROKERS")
		}
		svc.Notifier = &orders.EventNotifier{Publisher: prod, Producer: cfg.ServiceName}
	case config.NotifyAMQP:
		if amqpPub == nil {
			log.Fatal("NOTIFY_TRANSPORT=amqp needs a reachable AMQP_URL")
		}
		svc.Notifier = &orders.EventNotifier{Publisher: amqpPub, Producer: cfg.ServiceName}
	case config.NotifyNone:
	default:
		log.Fatal("unknown NOTIFY_TRANSPORT", zap.String("value", cfg.NotifyTransport))
	}

	router := httpx.NewRouter(log)
	router.Route("/api/v1", (&httpx.OrdersHandler{Svc: svc, Log: log}).Register)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.Traced(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("catalog", cfg.CatalogURL),
			zap.String("notify", cfg.NotifyTransport),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()      // no more publishes; loop flushes the queue
		prod.WaitClosed() // then closes the writer
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Error("tracing shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (orders.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(ctx, db, orders.SQLiteSchema); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &orders.SQLiteRepo{DB: db}, func() { db.Close() }, nil
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool, orders.PostgresSchema); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return &orders.Repo{DB: pool}, pool.Close, nil
	}
}
