package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/BookShareService/internal/api"
	"github.com/honeynil/BookShareService/internal/config"
	"github.com/honeynil/BookShareService/internal/handler"
	"github.com/honeynil/BookShareService/internal/infrastructure/auth"
	"github.com/honeynil/BookShareService/internal/infrastructure/esewa"
	"github.com/honeynil/BookShareService/internal/infrastructure/kafka"
	"github.com/honeynil/BookShareService/internal/infrastructure/ratelimit"
	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/infrastructure/search"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/observability"
	core "github.com/honeynil/BookShareService/internal/repository/postgres"
	service "github.com/honeynil/BookShareService/internal/services"
	"github.com/honeynil/BookShareService/internal/validation"
	_ "github.com/lib/pq"
)

const (
	serviceName   = "bookshare-service"
	consumerGroup = "bookshare-notifications"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Логи, метрики, трейсы
	shutdownTracing, metricsHandler, err := observability.Setup(ctx, serviceName, cfg.LogLevel, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up observability: %v", err)
	}
	defer shutdownTracing(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping Postgres: %v", err)
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	index, err := search.NewSearchIndex(search.Options{Path: cfg.SearchIndexPath})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	bookRepo := core.NewPostgresBookRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)
	paymentRepo := core.NewPostgresPaymentRepository(db)
	userRepo := core.NewPostgresUserRepository(db)
	notificationRepo := core.NewPostgresNotificationRepository(db)
	messageRepo := core.NewPostgresMessageRepository(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	sessions := auth.NewSessionStore(redisClient)
	validator := validation.New()
	gateway := esewa.NewClient(esewa.Config{
		MerchantCode: cfg.MerchantCode,
		FormURL:      cfg.PaymentFormURL,
		VerifyURL:    cfg.PaymentVerifyURL,
		SuccessURL:   cfg.PaymentSuccessURL(),
		FailureURL:   cfg.PaymentFailureURL(),
		Timeout:      cfg.PaymentTimeout,
	})

	userSvc := service.NewUserService(userRepo, tokens, sessions, validator)
	bookSvc := service.NewBookService(bookRepo, redisClient, index, validator)
	transactionSvc := service.NewTransactionService(transactionRepo, bookRepo, redisClient, producer, validator, service.TransactionOptions{
		RejectOverlappingRentals: cfg.RejectOverlappingRentals,
	})
	paymentSvc := service.NewPaymentService(paymentRepo, bookRepo, redisClient, gateway, producer, validator)
	notificationSvc := service.NewNotificationService(notificationRepo, messageRepo, redisClient)
	messageSvc := service.NewMessageService(messageRepo, userRepo, notificationSvc, redisClient, validator)

	if _, err := bookSvc.RebuildIndex(ctx); err != nil {
		slog.Error("failed to build search index", "error", err)
	}

	// Kafka-консьюмеры превращают доменные события в уведомления
	for _, topic := range []string{models.TopicTransactions, models.TopicPayments} {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, topic, consumerGroup, notificationSvc)
		defer consumer.Close()
		go consumer.Consume(ctx)
	}

	authLimiter := ratelimit.New(cfg.AuthRateLimit, 5)
	go sweepLimiter(ctx, authLimiter)

	h := handler.NewHandler(userSvc, bookSvc, transactionSvc, paymentSvc, notificationSvc, messageSvc, cfg.AppURL)
	router := api.SetupRouter(api.RouterDeps{
		Handler:     h,
		Tokens:      tokens,
		Sessions:    sessions,
		AuthLimiter: authLimiter,
		Metrics:     metricsHandler,
		Health: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		},
		CORSOrigins: cfg.CORSOrigins,
		DevTools:    cfg.DevToolsEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		return
	}
	slog.Info("server stopped")
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.KeyedRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				slog.Debug("rate limiter swept", "removed", n)
			}
		}
	}
}
