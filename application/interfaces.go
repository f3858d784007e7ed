package application

import (
	"context"

	"parlor/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() interfaces.AccountRepository
	LedgerRepository() interfaces.LedgerRepository
	SupplyRepository() interfaces.SupplyRepository
	RoomRepository() interfaces.RoomRepository

	// EventBus returns the transactional publisher: events buffer in
	// the unit of work and reach the wire only after a commit
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
