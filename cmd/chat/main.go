package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/amqpx"
	"github.com/ariefcatur/go-saga-orders/internal/chat"
	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/events"
	"github.com/ariefcatur/go-saga-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/observability"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const consumerGroup = "chat-relay"

func main() {
	_ = godotenv.Load()

	cfg := config.Load("chat-service")
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "redis:6379"
	}
	log := logx.New(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatal("tracing setup", zap.Error(err))
	}

	rdb, err := redisx.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer rdb.Close()

	relay := chat.NewRelay(&chat.RedisStore{Redis: rdb}, log)

	var consumers sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, consumerGroup, events.TopicChatNotifications, cfg.ChatWorkers, log)
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			log.Info("kafka consumer started", zap.String("topic", events.TopicChatNotifications), zap.Int("workers", cfg.ChatWorkers))
			if err := cons.Start(ctx, kafkax.EnvelopeHandler(relay.HandleEnvelope)); err != nil {
				log.Error("kafka consumer exit", zap.Error(err))
			}
		}()
	}
	if cfg.AMQPURL != "" {
		conn, ch, err := amqpx.SetupConn(ctx, cfg.AMQPURL, log)
		if err != nil {
			log.Warn("rabbitmq unavailable, broker notifications disabled", zap.Error(err))
		} else {
			defer conn.Close()
			defer ch.Close()
			if err := amqpx.Subscribe(ctx, ch, events.TopicChatNotifications, []string{events.TopicChatNotifications}, relay.HandleEnvelope, log); err != nil {
				log.Fatal("rabbitmq subscribe", zap.Error(err))
			}
		}
	}

	router := httpx.NewRouter(log)
	router.Route("/api/v1", (&httpx.ChatHandler{Relay: relay, Log: log}).Register)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.Traced(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
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
	consumers.Wait()
	if err := shutdownTracing(ctx2); err != nil {
		log.Error("tracing shutdown", zap.Error(err))
	}
}
