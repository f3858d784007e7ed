package infrastructure

import (
	"parlor/domain/events"
)

// NoopEventPublisher is an event publisher that does nothing.
// Useful for admin commands and scripts where events should not fan out.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
