package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetops-rental-core/internal/config"
	"github.com/fleetops-rental-core/internal/data/mongo"
	"github.com/fleetops-rental-core/internal/data/postgres"
	"github.com/fleetops-rental-core/internal/logger"
	"github.com/fleetops-rental-core/internal/operations_api"
	"github.com/fleetops-rental-core/internal/operations_api/service"
	"github.com/fleetops-rental-core/internal/platform/messaging/producers"
	"github.com/fleetops-rental-core/internal/platform/persistence"
	"github.com/fleetops-rental-core/internal/platform/rails"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("operations_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for settlement commands
	settlementProducer, err := producers.NewSettlementCommandProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement command producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	partnerRepo := postgres.NewPartnerRepository(log, postgresDB)
	accountRepo := postgres.NewLedgerAccountRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	eventRepo := mongo.NewLedgerEventRepository(log, mongoDB.Database())
	historyRepo := mongo.NewCommissionHistoryRepository(log, mongoDB.Database())

	// External rails; dev implementations until provider adapters land
	paymentRail := &rails.DevPaymentRail{Logger: log}
	payoutRail := &rails.DevPayoutRail{Logger: log}
	documentStore := &rails.DevDocumentStore{}
	fleetMembership := &rails.DevFleetMembership{FleetSize: 1}
	notifier := &rails.DevNotificationDispatcher{Logger: log}

	// Initialize services
	bookingService := service.NewBookingService(log, bookingRepo, partnerRepo, settlementProducer, paymentRail, documentStore, notifier, &cfg.Operations)
	partnerService := service.NewPartnerService(log, postgresDB, partnerRepo, accountRepo, historyRepo, eventRepo, fleetMembership)
	settlementService := service.NewSettlementService(log, postgresDB, accountRepo, eventRepo, outboxRepo, payoutRail, settlementProducer, redisClient, cfg.Redis.CacheTTL)

	// Initialize REST server
	server := operations_api.NewServer(log, cfg, bookingService, partnerService, settlementService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = settlementProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
