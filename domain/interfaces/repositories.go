package interfaces

import (
	"context"
	"errors"
	"time"

	"parlor/domain/entities"
	"parlor/domain/events"
)

// ErrDuplicateCode is returned by RoomRepository.Create when the
// generated code collides with an existing room. The registry retries
// generation a bounded number of times on this error.
var ErrDuplicateCode = errors.New("room code already exists")

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByUserID retrieves an account, nil when it does not exist
	GetByUserID(ctx context.Context, userID int64) (*entities.Account, error)

	// GetForUpdate retrieves an account holding an exclusive row lock
	// for the remainder of the enclosing transaction
	GetForUpdate(ctx context.Context, userID int64) (*entities.Account, error)

	// Create creates a new account with an initial coin balance
	Create(ctx context.Context, userID int64, initialCoins int64) (*entities.Account, error)

	// SaveBalances persists the account's balances and lifetime totals
	SaveBalances(ctx context.Context, account *entities.Account) error

	// RecordMatchResult increments the account's win/loss/draw counters
	RecordMatchResult(ctx context.Context, userID int64, outcome entities.MatchOutcome) error
}

// LedgerRepository defines the interface for the append-only ledger
type LedgerRepository interface {
	// Record appends a new ledger entry; the entry is never mutated after
	Record(ctx context.Context, entry *entities.LedgerEntry) error

	// GetByUser returns the most recent entries for an account
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error)

	// GetByRoomCode returns all entries correlated with a room,
	// oldest first, for reconstructing its financial history
	GetByRoomCode(ctx context.Context, code string) ([]*entities.LedgerEntry, error)
}

// SupplyRepository defines the interface for the capped-currency
// supply ledger (a singleton row)
type SupplyRepository interface {
	// GetForUpdate retrieves the supply ledger under an exclusive lock
	GetForUpdate(ctx context.Context) (*entities.GemSupply, error)

	// Save persists the supply counters
	Save(ctx context.Context, supply *entities.GemSupply) error

	// ApplyCap sets the configured emission cap. Lowering the cap
	// below what has already been emitted is rejected.
	ApplyCap(ctx context.Context, cap int64) error
}

// RoomRepository defines the interface for room data access
type RoomRepository interface {
	// Create inserts a new room; returns ErrDuplicateCode on collision
	Create(ctx context.Context, room *entities.Room) error

	// GetByCode retrieves a room, nil when it does not exist
	GetByCode(ctx context.Context, code string) (*entities.Room, error)

	// GetByCodeForUpdate retrieves a room holding an exclusive row lock
	GetByCodeForUpdate(ctx context.Context, code string) (*entities.Room, error)

	// Update persists the room's current state
	Update(ctx context.Context, room *entities.Room) error

	// GetActiveByUser returns non-terminal rooms the user occupies
	GetActiveByUser(ctx context.Context, userID int64) ([]*entities.Room, error)

	// ListOpenPublic returns public rooms with an open guest seat
	ListOpenPublic(ctx context.Context, limit int) ([]*entities.Room, error)

	// RecordMove appends one move to the room's move log
	RecordMove(ctx context.Context, roomID int64, moveNo int, userID int64, cell int) error

	// ClearMoves deletes the room's move log (rematch reuses move numbers)
	ClearMoves(ctx context.Context, roomID int64) error

	// ArchiveFinishedOlderThan moves finished/cancelled rooms whose
	// terminal timestamp is before cutoff into archived
	ArchiveFinishedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeArchivedOlderThan deletes archived rooms older than cutoff.
	// Only rooms already in a terminal state are ever touched.
	PurgeArchivedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}
