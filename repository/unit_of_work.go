package repository

import (
	"context"
	"fmt"

	"parlor/application"
	"parlor/database"
	"parlor/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the application.UnitOfWork interface
type unitOfWork struct {
	db  *database.DB
	tx  pgx.Tx
	ctx context.Context

	publisher interfaces.EventPublisher

	accountRepo interfaces.AccountRepository
	ledgerRepo  interfaces.LedgerRepository
	supplyRepo  interfaces.SupplyRepository
	roomRepo    interfaces.RoomRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a new UnitOfWork whose EventBus is the
// given publisher. The caller decides whether that publisher buffers
// until commit.
func (f *unitOfWorkFactory) CreateWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: publisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = NewAccountRepositoryScoped(tx)
	u.ledgerRepo = NewLedgerRepositoryScoped(tx)
	u.supplyRepo = NewSupplyRepositoryScoped(tx)
	u.roomRepo = NewRoomRepositoryScoped(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	u.tx = nil
	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// LedgerRepository returns the ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() interfaces.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// SupplyRepository returns the supply repository for this unit of work
func (u *unitOfWork) SupplyRepository() interfaces.SupplyRepository {
	if u.supplyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.supplyRepo
}

// RoomRepository returns the room repository for this unit of work
func (u *unitOfWork) RoomRepository() interfaces.RoomRepository {
	if u.roomRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roomRepo
}

// EventBus returns the publisher bound to this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.publisher == nil {
		panic("event publisher not configured")
	}
	return u.publisher
}
