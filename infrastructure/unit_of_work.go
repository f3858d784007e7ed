package infrastructure

import (
	"context"

	"parlor/application"
	"parlor/domain/interfaces"
)

// unitOfWork wraps the repository UnitOfWork and adds event publishing on
// commit
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes events on success
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		return err
	}

	// The database transaction already committed, so event publishing is
	// best-effort from here on
	if u.transactionalPublisher != nil {
		_ = u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return u.inner.Rollback()
}

// Repository getters delegate to the inner UnitOfWork
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	return u.inner.AccountRepository()
}

func (u *unitOfWork) LedgerRepository() interfaces.LedgerRepository {
	return u.inner.LedgerRepository()
}

func (u *unitOfWork) SupplyRepository() interfaces.SupplyRepository {
	return u.inner.SupplyRepository()
}

func (u *unitOfWork) RoomRepository() interfaces.RoomRepository {
	return u.inner.RoomRepository()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("transactional publisher not configured")
	}
	return u.transactionalPublisher
}
