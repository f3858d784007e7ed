package infrastructure

import (
	"context"

	"parlor/application"
	"parlor/database"
	"parlor/domain/events"
	"parlor/domain/interfaces"
	"parlor/repository"
)

// UnitOfWorkFactory implements the application.UnitOfWorkFactory interface.
// It creates UnitOfWork instances that handle both database transactions and
// event publishing.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	repoFactory := repository.NewUnitOfWorkFactory(db)
	return &UnitOfWorkFactory{
		repoFactory:    repoFactory,
		eventPublisher: eventPublisher,
	}
}

// RegisterLocalHandler registers a handler that will be invoked locally for
// events published within this process
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	if natsPublisher, ok := f.eventPublisher.(*NATSEventPublisher); ok {
		natsPublisher.RegisterLocalHandler(eventType, handler)
	}
}

// Create creates a new UnitOfWork with a transactional event publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	// Each unit of work buffers its own events so concurrent transactions
	// do not interleave their flushes
	transactionalPublisher := NewNATSTransactionalPublisher(f.eventPublisher)

	repoUow := f.repoFactory.CreateWithPublisher(transactionalPublisher)

	return &unitOfWork{
		inner:                  repoUow,
		transactionalPublisher: transactionalPublisher,
	}
}
