package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-settlement/internal/api/handlers"
	"auction-settlement/internal/config"
	"auction-settlement/internal/infrastructure/email"
	"auction-settlement/internal/infrastructure/mysql"
	"auction-settlement/internal/infrastructure/payment"
	"auction-settlement/internal/infrastructure/redis"
	"auction-settlement/internal/services"
	"auction-settlement/pkg/clock"
	"auction-settlement/pkg/logger"
	"auction-settlement/pkg/metrics"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	bootLog := logger.New()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithConfig(cfg.Log.Level).With("service", "settlement-service", "instance_id", cfg.Instance.ID)
	log.Info("Starting Settlement Service")

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := mysql.Open(ctx, cfg.MySQL)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)
	log.Info("Connected to MySQL")

	// Repositories
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	receiptRepo := mysql.NewMySQLReceiptRepository(db)
	schedulerRepo := mysql.NewMySQLSchedulerRepository(db)

	// Outbound collaborators
	paymentClient, err := payment.NewClient(cfg.Payment.BaseURL, payment.WithTimeout(cfg.Payment.Timeout))
	if err != nil {
		log.Error("Failed to create payment client", "error", err)
		os.Exit(1)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		log.Error("Failed to load email templates", "error", err)
		os.Exit(1)
	}
	sender, err := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
	})
	if err != nil {
		log.Error("Failed to create SMTP sender", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	clk := clock.NewSystem()
	defer clk.Stop()

	dispatcher := services.NewNotificationDispatcher(
		auctionRepo,
		receiptRepo,
		paymentClient,
		sender,
		renderer,
		cfg.Email.From,
		cfg.Payment.WebhookURL,
		settlementMetrics,
		log,
	)
	settlement := services.NewSettlementService(
		auctionRepo,
		bidRepo,
		dispatcher,
		redis.NewRedisSettlementGuard(rdb, cfg.Instance.ID, cfg.Redis.GuardTTL),
		redis.NewEventPublisher(rdb),
		cfg.Settlement.MaxConcurrency,
		clk,
		log,
	)
	scheduler := services.NewSettlementScheduler(clk, schedulerRepo, settlement.Settle, settlementMetrics, log)

	armed, err := services.NewBootstrapper(auctionRepo, scheduler, clk, log).Bootstrap(ctx)
	if err != nil {
		if armed == 0 {
			log.Error("Failed to bootstrap settlements", "error", err)
			os.Exit(1)
		}
		log.Warn("Some settlements could not be armed", "armed", armed, "error", err)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			log.Debug("Request received",
				"method", req.Method,
				"path", req.URL.Path,
				"remote_addr", c.RealIP())
			return next(c)
		}
	})

	handlers.NewAdminHandler(auctionRepo, scheduler, schedulerRepo, clk, log).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting settlement admin server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down settlement service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	scheduler.Stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := rdb.Close(); err != nil {
		log.Error("Failed to close Redis connection", "error", err)
	}

	log.Info("Settlement service stopped")
}
