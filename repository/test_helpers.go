package repository

import (
	"sync"

	"parlor/application"
	"parlor/database"
	"parlor/domain/events"
	"parlor/domain/interfaces"
)

// NewTestUnitOfWorkFactory creates a unit of work factory for tests
func NewTestUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return NewUnitOfWorkFactory(db)
}

// CreateTestUnitOfWork creates a unit of work backed by a recording
// publisher so tests can assert on emitted events
func CreateTestUnitOfWork(db *database.DB, publisher interfaces.EventPublisher) application.UnitOfWork {
	return NewTestUnitOfWorkFactory(db).CreateWithPublisher(publisher)
}

// RecordingPublisher collects events in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// ByType returns the recorded events of one type, in order
func (p *RecordingPublisher) ByType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.Events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}
