package repository

import (
	"context"
	"fmt"

	"parlor/database"
	"parlor/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// NewAccountRepositoryScoped creates an account repository bound to a transaction
func NewAccountRepositoryScoped(tx Queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `
	user_id, coins, gems,
	coins_earned, coins_spent, gems_earned, gems_spent,
	games_won, games_lost, games_drawn,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var a entities.Account
	err := row.Scan(
		&a.UserID, &a.Coins, &a.Gems,
		&a.CoinsEarned, &a.CoinsSpent, &a.GemsEarned, &a.GemsSpent,
		&a.GamesWon, &a.GamesLost, &a.GamesDrawn,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByUserID retrieves an account, nil when it does not exist
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", userID, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account holding an exclusive row lock
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}
	return account, nil
}

// Create creates a new account with an initial coin balance
func (r *AccountRepository) Create(ctx context.Context, userID int64, initialCoins int64) (*entities.Account, error) {
	query := `
		INSERT INTO accounts (user_id, coins)
		VALUES ($1, $2)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, initialCoins))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", userID, err)
	}
	return account, nil
}

// SaveBalances persists the account's balances and lifetime totals
func (r *AccountRepository) SaveBalances(ctx context.Context, account *entities.Account) error {
	query := `
		UPDATE accounts
		SET coins = $2, gems = $3,
		    coins_earned = $4, coins_spent = $5,
		    gems_earned = $6, gems_spent = $7,
		    updated_at = NOW()
		WHERE user_id = $1`

	tag, err := r.q.Exec(ctx, query,
		account.UserID, account.Coins, account.Gems,
		account.CoinsEarned, account.CoinsSpent,
		account.GemsEarned, account.GemsSpent,
	)
	if err != nil {
		return fmt.Errorf("failed to save balances for %d: %w", account.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", account.UserID)
	}
	return nil
}

// RecordMatchResult increments the account's win/loss/draw counters
func (r *AccountRepository) RecordMatchResult(ctx context.Context, userID int64, outcome entities.MatchOutcome) error {
	var column string
	switch outcome {
	case entities.OutcomeWin:
		column = "games_won"
	case entities.OutcomeLoss:
		column = "games_lost"
	case entities.OutcomeDraw:
		column = "games_drawn"
	default:
		return fmt.Errorf("unknown match outcome %q", outcome)
	}

	query := fmt.Sprintf(`UPDATE accounts SET %s = %s + 1, updated_at = NOW() WHERE user_id = $1`, column, column)
	tag, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to record %s for %d: %w", outcome, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}
	return nil
}
