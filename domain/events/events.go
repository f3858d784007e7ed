package events

import "parlor/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange   EventType = "balance_change"
	EventTypeRoomStateChange EventType = "room_state_change"
	EventTypePlayerJoined    EventType = "player_joined"
	EventTypeMoveApplied     EventType = "move_applied"
	EventTypeRoomSettled     EventType = "room_settled"
	EventTypeRoomRefunded    EventType = "room_refunded"
	EventTypeHostTransferred EventType = "host_transferred"
	EventTypeRematchStarted  EventType = "rematch_started"
	EventTypePresenceChange  EventType = "presence_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	// RoomCode scopes the broadcast; empty for account-only events
	RoomCode() string
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID     int64             `json:"user_id"`
	Currency   entities.Currency `json:"currency"`
	OldBalance int64             `json:"old_balance"`
	NewBalance int64             `json:"new_balance"`
	Amount     int64             `json:"amount"`
	Reason     entities.Reason   `json:"reason"`
	Room       string            `json:"room_code,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType  { return EventTypeBalanceChange }
func (e BalanceChangeEvent) RoomCode() string { return e.Room }

// RoomStateChangeEvent represents a room status transition
type RoomStateChangeEvent struct {
	Room     string              `json:"room_code"`
	OldState entities.RoomStatus `json:"old_state"`
	NewState entities.RoomStatus `json:"new_state"`
}

func (e RoomStateChangeEvent) Type() EventType  { return EventTypeRoomStateChange }
func (e RoomStateChangeEvent) RoomCode() string { return e.Room }

// PlayerJoinedEvent fires when the guest seat is filled
type PlayerJoinedEvent struct {
	Room    string `json:"room_code"`
	UserID  int64  `json:"user_id"`
	Pot     int64  `json:"pot"`
}

func (e PlayerJoinedEvent) Type() EventType  { return EventTypePlayerJoined }
func (e PlayerJoinedEvent) RoomCode() string { return e.Room }

// MoveAppliedEvent fires after a legal move advances the game
type MoveAppliedEvent struct {
	Room       string `json:"room_code"`
	UserID     int64  `json:"user_id"`
	Cell       int    `json:"cell"`
	MoveNo     int    `json:"move_no"`
	NextTurnID int64  `json:"next_turn_id"`
}

func (e MoveAppliedEvent) Type() EventType  { return EventTypeMoveApplied }
func (e MoveAppliedEvent) RoomCode() string { return e.Room }

// RoomSettledEvent fires when a pot is distributed to winners
type RoomSettledEvent struct {
	Room     string          `json:"room_code"`
	WinnerID *int64          `json:"winner_id,omitempty"` // nil on a draw
	Pot      int64           `json:"pot"`
	Payouts  map[int64]int64 `json:"payouts"`
	Forfeit  bool            `json:"forfeit"`
}

func (e RoomSettledEvent) Type() EventType  { return EventTypeRoomSettled }
func (e RoomSettledEvent) RoomCode() string { return e.Room }

// RoomRefundedEvent fires when escrows are returned on cancellation
type RoomRefundedEvent struct {
	Room    string          `json:"room_code"`
	Refunds map[int64]int64 `json:"refunds"`
}

func (e RoomRefundedEvent) Type() EventType  { return EventTypeRoomRefunded }
func (e RoomRefundedEvent) RoomCode() string { return e.Room }

// HostTransferredEvent fires when the guest is promoted after host
// abandonment
type HostTransferredEvent struct {
	Room      string `json:"room_code"`
	NewHostID int64  `json:"new_host_id"`
	OldHostID int64  `json:"old_host_id"`
}

func (e HostTransferredEvent) Type() EventType  { return EventTypeHostTransferred }
func (e HostTransferredEvent) RoomCode() string { return e.Room }

// RematchStartedEvent fires when both players re-stake the same room
type RematchStartedEvent struct {
	Room         string `json:"room_code"`
	RematchCount int    `json:"rematch_count"`
	FirstTurnID  int64  `json:"first_turn_id"`
}

func (e RematchStartedEvent) Type() EventType  { return EventTypeRematchStarted }
func (e RematchStartedEvent) RoomCode() string { return e.Room }

// PresenceChangeEvent fires on connect/disconnect/reconnect of a seat
type PresenceChangeEvent struct {
	Room      string `json:"room_code"`
	UserID    int64  `json:"user_id"`
	Connected bool   `json:"connected"`
}

func (e PresenceChangeEvent) Type() EventType  { return EventTypePresenceChange }
func (e PresenceChangeEvent) RoomCode() string { return e.Room }
