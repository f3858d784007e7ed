package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"parlor/application"
	"parlor/config"
	"parlor/database"
	"parlor/infrastructure"
	"parlor/infrastructure/observability"
	"parlor/repository"
)

// Run initializes and starts the game room engine
func Run(ctx context.Context) error {
	log.Println("Starting parlor engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnectionWithLimits(ctx, cfg.DatabaseURL, cfg.DBMinConns, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// The migration seeds a default cap; the configured value wins.
	if err := repository.NewSupplyRepository(db).ApplyCap(ctx, cfg.GemSupplyCap); err != nil {
		return fmt.Errorf("failed to apply gem supply cap: %w", err)
	}

	// Initialize metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize NATS
	log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	subjectMapper := infrastructure.NewEventSubjectMapper()
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, subjectMapper)
	if err := eventPublisher.EnsureRoomEventStream(); err != nil {
		return fmt.Errorf("failed to ensure room event stream: %w", err)
	}

	// Initialize unit of work factory with transactional event publishing
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	infrastructure.RegisterMetricsHandlers(uowFactory, metrics)

	// Initialize the orchestrator
	registry := application.NewRegistry(cfg.RoomCodeLength)
	orchestrator := application.NewOrchestrator(uowFactory, registry, cfg)

	// Initialize presence tracking, optionally mirrored into Redis
	var presenceStore application.PresenceStore
	if cfg.RedisAddr != "" {
		log.Printf("Connecting to Redis at %s...", cfg.RedisAddr)
		redisClient, err := infrastructure.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		presenceStore = infrastructure.NewRedisPresenceStore(redisClient)
	}

	tracker := application.NewPresenceTracker(orchestrator, presenceStore, eventPublisher, cfg.DisconnectGrace)
	presenceListener := infrastructure.NewPresenceListener(tracker)
	if err := presenceListener.Start(natsClient); err != nil {
		return fmt.Errorf("failed to start presence listener: %w", err)
	}

	// Initialize the retention worker
	retention := application.NewRetentionWorker(uowFactory, cfg.RetentionSchedule, cfg.RoomRetentionAge)
	if err := retention.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention worker: %w", err)
	}

	// Wait for context cancellation
	log.Printf("Engine is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down engine...")

	retention.Stop()
	tracker.Stop()
	orchestrator.Stop()

	if err := natsClient.Close(); err != nil {
		log.Printf("Error closing NATS client: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
