package repository

import (
	"context"
	"fmt"

	"parlor/database"
	"parlor/domain/entities"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// NewLedgerRepositoryScoped creates a ledger repository bound to a transaction
func NewLedgerRepositoryScoped(tx Queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record appends a new ledger entry
func (r *LedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (
			user_id, currency, amount, balance_before, balance_after,
			reason, room_code, correlation_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		entry.UserID, entry.Currency, entry.Amount,
		entry.BalanceBefore, entry.BalanceAfter,
		entry.Reason, entry.RoomCode, entry.CorrelationID, entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry for %d: %w", entry.UserID, err)
	}
	return nil
}

const ledgerColumns = `
	id, user_id, currency, amount, balance_before, balance_after,
	reason, room_code, correlation_id, metadata, created_at`

func scanLedgerRows(rows pgx.Rows) ([]*entities.LedgerEntry, error) {
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var e entities.LedgerEntry
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Currency, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter,
			&e.Reason, &e.RoomCode, &e.CorrelationID, &e.Metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// GetByUser returns the most recent entries for an account
func (r *LedgerRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for %d: %w", userID, err)
	}
	return scanLedgerRows(rows)
}

// GetByRoomCode returns all entries correlated with a room, oldest first
func (r *LedgerRepository) GetByRoomCode(ctx context.Context, code string) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE room_code = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for room %s: %w", code, err)
	}
	return scanLedgerRows(rows)
}
