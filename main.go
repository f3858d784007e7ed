package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"parlor/cmd"
	"parlor/config"
	"parlor/database"
	"parlor/domain/entities"
	"parlor/domain/services"
	"parlor/infrastructure"
	"parlor/repository"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine in containerized deployments where the
	// environment is injected directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	}

	// Check for grant subcommands
	if len(os.Args) > 1 && os.Args[1] == "grant" {
		if err := handleGrant(); err != nil {
			log.Fatal("Grant error:", err)
		}
		return
	}

	// Normal engine operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: parlor migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// handleGrant credits a user outside the normal game flow, for operators
// topping up accounts from the command line
func handleGrant() error {
	if len(os.Args) < 5 {
		return fmt.Errorf("usage: parlor grant user-id currency amount")
	}

	userID, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	currency := entities.Currency(os.Args[3])
	if !currency.Valid() {
		return fmt.Errorf("unknown currency %q", os.Args[3])
	}
	amount, err := strconv.ParseInt(os.Args[4], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	ctx := context.Background()
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Admin grants bypass NATS so events never fan out to clients
	uowFactory := repository.NewUnitOfWorkFactory(db)
	uow := uowFactory.CreateWithPublisher(infrastructure.NewNoopEventPublisher())
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	svc := services.NewLedgerService(
		uow.AccountRepository(),
		uow.LedgerRepository(),
		uow.SupplyRepository(),
		uow.EventBus(),
		cfg.CommissionRate,
	)

	reason := entities.ReasonAdminGrant
	if currency.Capped() {
		reason = entities.ReasonEmission
	}

	entry, err := svc.Credit(ctx, userID, currency, amount, reason, "")
	if err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	log.Printf("Granted %d %s to user %d (entry %d)", amount, currency, userID, entry.ID)
	return nil
}
