package repository

import (
	"context"
	"fmt"

	"parlor/database"
	"parlor/domain/entities"
)

// SupplyRepository implements the SupplyRepository interface over the
// singleton gem_supply row
type SupplyRepository struct {
	q Queryable
}

// NewSupplyRepository creates a new supply repository
func NewSupplyRepository(db *database.DB) *SupplyRepository {
	return &SupplyRepository{q: db.Pool}
}

// NewSupplyRepositoryScoped creates a supply repository bound to a transaction
func NewSupplyRepositoryScoped(tx Queryable) *SupplyRepository {
	return &SupplyRepository{q: tx}
}

// GetForUpdate retrieves the supply ledger under an exclusive lock.
// The row is seeded by the initial migration, so it always exists.
func (r *SupplyRepository) GetForUpdate(ctx context.Context) (*entities.GemSupply, error) {
	query := `
		SELECT emitted, burned, reserved, cap, updated_at
		FROM gem_supply
		WHERE id = 1
		FOR UPDATE`

	var s entities.GemSupply
	err := r.q.QueryRow(ctx, query).Scan(&s.Emitted, &s.Burned, &s.Reserved, &s.Cap, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to lock gem supply: %w", err)
	}
	return &s, nil
}

// Save persists the supply counters
func (r *SupplyRepository) Save(ctx context.Context, supply *entities.GemSupply) error {
	query := `
		UPDATE gem_supply
		SET emitted = $1, burned = $2, reserved = $3, updated_at = NOW()
		WHERE id = 1`

	_, err := r.q.Exec(ctx, query, supply.Emitted, supply.Burned, supply.Reserved)
	if err != nil {
		return fmt.Errorf("failed to save gem supply: %w", err)
	}
	return nil
}

// ApplyCap sets the emission cap from configuration. The guard keeps
// the cap from dropping below what is already in circulation.
func (r *SupplyRepository) ApplyCap(ctx context.Context, cap int64) error {
	query := `
		UPDATE gem_supply
		SET cap = $1, updated_at = NOW()
		WHERE id = 1 AND emitted <= $1`

	tag, err := r.q.Exec(ctx, query, cap)
	if err != nil {
		return fmt.Errorf("failed to apply gem supply cap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gem supply cap %d is below the emitted total", cap)
	}
	return nil
}
