package infrastructure

import (
	"fmt"

	"parlor/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects.
// Room-scoped events carry the room code as the second subject token so
// clients can subscribe to a single room with "rooms.<code>.>".
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if code := event.RoomCode(); code != "" {
		return fmt.Sprintf("rooms.%s.%s", code, roomEventToken(event.Type()))
	}

	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "accounts.balance_changed"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// roomEventToken returns the trailing subject token for room-scoped events
func roomEventToken(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeRoomStateChange:
		return "state_changed"
	case events.EventTypePlayerJoined:
		return "player_joined"
	case events.EventTypeMoveApplied:
		return "move_applied"
	case events.EventTypeRoomSettled:
		return "settled"
	case events.EventTypeRoomRefunded:
		return "refunded"
	case events.EventTypeHostTransferred:
		return "host_transferred"
	case events.EventTypeRematchStarted:
		return "rematch_started"
	case events.EventTypePresenceChange:
		return "presence_changed"
	case events.EventTypeBalanceChange:
		return "balance_changed"
	default:
		return string(eventType)
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "accounts.balance_changed":
		return events.EventTypeBalanceChange
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns the subject space this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"rooms.>",
		"accounts.>",
	}
}
