package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/events"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/repository"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/server"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/service"
)

func main() {
	cfg := config.Load()

	if err := logging.Setup(cfg.Logging); err != nil {
		panic(err)
	}
	defer logging.Sync()

	logger := logging.NewLoggerV2("taproom-admin")
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", logging.Fields{"error": err.Error()})
	}
	if cfg.Session.UsesDefaultSecret() {
		logger.Warn("SESSION_SECRET is not set, flash cookies are signed with the placeholder secret")
	}
	logging.Infof("Starting taproom-admin on port %d against %s", cfg.Server.Port, cfg.API.BaseURL)

	m := metrics.New()
	client := clients.NewHTTPTaproomClient(cfg.API, logger, m)

	var rdb *redis.Client
	if cfg.Features.EnableStockCaching || cfg.Features.EnableRedisGuard {
		rdb = repository.NewRedisClient(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable at startup", logging.Fields{"error": err.Error()})
		}
		cancel()
	}

	var stockCache repository.StockCache
	if cfg.Features.EnableStockCaching {
		stockCache = repository.NewRedisStockCache(rdb, cfg.Redis.TTL)
	}

	var payGuard repository.PayGuard = repository.NewMemoryPayGuard(cfg.UI.PayGuardTTL)
	if cfg.Features.EnableRedisGuard {
		payGuard = repository.NewRedisPayGuard(rdb, cfg.UI.PayGuardTTL)
	}

	source := instanceID()
	var publisher events.Publisher = events.NoopPublisher{}
	var consumer *events.KafkaConsumer
	if cfg.Features.EnableEvents {
		kp := events.NewKafkaPublisher(cfg.Kafka, source, logger)
		defer kp.Close()
		publisher = kp

		if stockCache != nil {
			consumer = events.NewKafkaConsumer(cfg.Kafka, stockCache, source, logger)
		}
	}

	orderService := service.NewOrderService(client, stockCache, publisher)
	paymentService := service.NewPaymentService(client, payGuard, publisher, m)
	stockService := service.NewStockService(client, stockCache, publisher, m)

	h := handlers.NewHandlers(orderService, paymentService, stockService, client, cfg)

	srv := server.New(h, m, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":           cfg.Server.Port,
			"api_base_url":   cfg.API.BaseURL,
			"stock_caching":  cfg.Features.EnableStockCaching,
			"events":         cfg.Features.EnableEvents,
			"redis_payguard": cfg.Features.EnableRedisGuard,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	if consumer != nil {
		go func() {
			if err := consumer.Start(context.Background()); err != nil {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

// instanceID names this process on the event bus so it can skip its own
// stock events.
func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "taproom-admin@" + host
	}
	return "taproom-admin@" + uuid.NewString()
}
