package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"stock_ingestion_backend/bootstrap"
	"stock_ingestion_backend/config"
	"stock_ingestion_backend/controllers"
	"stock_ingestion_backend/logger"
	"stock_ingestion_backend/middleware"
	"stock_ingestion_backend/routes"
	"stock_ingestion_backend/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	log := logger.Init(cfg.Environment)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	log.Info("Stock ingestion backend starting", "environment", cfg.Environment, "port", cfg.Port)

	svc, err := bootstrap.Open(cfg, log)
	if err != nil {
		log.Error("Storage initialization failed", "error", err)
		os.Exit(1)
	}
	log.Info("Database migrations completed successfully")

	// Start background scheduler
	var jobScheduler *scheduler.Scheduler
	var schedule controllers.ScheduleSource
	if cfg.SchedulerEnabled {
		jobScheduler = scheduler.NewScheduler(svc.Engine, svc.Store,
			scheduler.WithMarketCloseSpec(cfg.MarketCloseCron),
			scheduler.WithLivenessSpec(cfg.LivenessCron),
			scheduler.WithLogger(log.With("component", "scheduler")),
		)
		if err := jobScheduler.Start(); err != nil {
			log.Error("Scheduler failed to start", "error", err)
			os.Exit(1)
		}
		schedule = jobScheduler
	} else {
		log.Warn("Scheduler disabled by configuration")
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(cfg.APIRateLimit, time.Minute)
	go limiter.StartCleanup(ctx, 10*time.Minute)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger())
	routes.SetupRoutes(router, svc.Store, schedule, limiter)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	gracefulShutdown(log, server, jobScheduler, svc)
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(log *slog.Logger, server *http.Server, jobScheduler *scheduler.Scheduler, svc *bootstrap.Services) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-quit
	log.Info("Shutting down gracefully", "signal", sig.String())

	// Stop scheduler first
	if jobScheduler != nil {
		jobScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	bootstrap.Close(svc.DB)
	log.Info("Server shutdown completed")
}
