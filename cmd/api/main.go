package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/config"
	"github.com/Wenjie0329/email-pitch-tool/internal/handler"
	"github.com/Wenjie0329/email-pitch-tool/internal/logger"
	"github.com/Wenjie0329/email-pitch-tool/internal/queue"
	"github.com/Wenjie0329/email-pitch-tool/internal/queue/sqs"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository/sqlstore"
	"github.com/Wenjie0329/email-pitch-tool/internal/service"
)

// @title Email Tracker API
// @version 2.0
// @description Open and click tracking with a pull-and-acknowledge sync API
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	if cfg.Service.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("address", cfg.Addr()),
		zap.String("database_driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize event store
	repo, err := sqlstore.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open event store", zap.Error(err))
	}
	defer func(repo *sqlstore.Repository) {
		if err := repo.Close(); err != nil {
			log.Error("Failed to close event store", zap.Error(err))
		}
	}(repo)

	if err := repo.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Initialize SQS publisher when a queue is configured
	var publisher queue.EventPublisher
	if cfg.SQS.QueueURL != "" {
		sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
		if err != nil {
			log.Fatal("Failed to create SQS client", zap.Error(err))
		}
		publisher = sqsClient
	}

	// Initialize services
	trackingService := service.NewTrackingService(repo, publisher, log)
	syncService := service.NewSyncService(repo, cfg.Sync, log)
	statsService := service.NewStatsService(repo, log)

	// Initialize handler
	h := handler.NewHandler(trackingService, syncService, statsService, handler.Options{
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
	}, log)
	defer h.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server stopped", zap.Error(err))
		}
		return
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		return
	}

	log.Info("API server stopped")
}
