package interfaces

import (
	"context"
	"time"

	"parlor/domain/entities"
)

// LedgerService owns all balance mutation. Both operations capture
// before/after balances and append exactly one ledger entry; debit
// fails with ErrInsufficientFunds without side effects when the
// balance does not cover the amount.
type LedgerService interface {
	// Debit removes amount from the user's balance in currency
	Debit(ctx context.Context, userID int64, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error)

	// Credit adds amount to the user's balance in currency. Emission
	// of the capped currency checks the supply cap atomically and
	// fails with ErrSupplyExhausted when it would be exceeded.
	Credit(ctx context.Context, userID int64, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error)

	// Transfer moves coins between two accounts in one atomic unit,
	// deducting the configured commission from the transferred amount
	Transfer(ctx context.Context, fromID, toID int64, amount int64) (commission int64, err error)

	// History returns the most recent ledger entries for a user
	History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error)

	// RoomHistory returns all ledger entries correlated with a room
	RoomHistory(ctx context.Context, code string) ([]*entities.LedgerEntry, error)
}

// EscrowService moves money between spendable balances and a room's
// pot. Settle and Refund are idempotent per room: the pot-distributed
// flag is checked and set in the same atomic unit as the distribution.
type EscrowService interface {
	// Escrow debits the user's stake and adds it to the room's pot
	Escrow(ctx context.Context, room *entities.Room, seat entities.Seat, userID int64, amount int64) error

	// Settle credits each share of the distribution and zeroes the pot.
	// Shares must sum to exactly the pot total.
	Settle(ctx context.Context, room *entities.Room, distribution []entities.PotShare) error

	// Refund returns to each seat exactly what it escrowed
	Refund(ctx context.Context, room *entities.Room) error

	// RankedDistribution splits pot across ranked recipients using the
	// configured prize percentages; any remainder goes to the first
	RankedDistribution(pot int64, ranked []int64) []entities.PotShare
}

// RoomService is the room state machine. Implementations expect the
// caller to hold the registry's per-room lock and to run each call
// inside a unit of work; a returned error means nothing committed.
type RoomService interface {
	// Create escrows the host's stake and inserts the room in waiting
	Create(ctx context.Context, code string, hostID int64, currency entities.Currency, stake int64, visibility entities.RoomVisibility) (*entities.Room, error)

	// Join escrows the guest's stake and fills the open seat. Any
	// other non-terminal room the guest occupies is cancelled and
	// refunded first.
	Join(ctx context.Context, code string, guestID int64) (*entities.Room, error)

	// MarkReady sets the caller's readiness flag
	MarkReady(ctx context.Context, code string, userID int64) (*entities.Room, error)

	// Start begins play; host only, both seats must be ready
	Start(ctx context.Context, code string, userID int64, now time.Time) (*entities.Room, error)

	// SubmitMove applies a move, or treats it as forfeiture when the
	// move deadline has already elapsed
	SubmitMove(ctx context.Context, code string, userID int64, cell int, now time.Time) (*entities.MoveResult, error)

	// RequestRematch records a rematch request; when both seats have
	// requested, re-escrows both stakes and restarts the same room
	RequestRematch(ctx context.Context, code string, userID int64, now time.Time) (*entities.RematchResult, error)

	// Leave marks a seat as gone after the game finished; when both
	// have left the room is archived immediately
	Leave(ctx context.Context, code string, userID int64) (*entities.Room, error)

	// Cancel refunds all escrows and moves the room to cancelled
	Cancel(ctx context.Context, code string) (*entities.Room, error)

	// HandleAbandonment resolves an expired disconnect grace period
	// for the given user: cancel+refund or host transfer per the
	// abandonment rules. A terminal room is a no-op.
	HandleAbandonment(ctx context.Context, code string, userID int64, peerConnected bool) (*entities.Room, error)

	// HandleMoveDeadline forfeits the game against the seat on turn
	// when its deadline has passed. A terminal room or a deadline that
	// was reset in the meantime is a no-op.
	HandleMoveDeadline(ctx context.Context, code string, now time.Time) (*entities.Room, error)
}
