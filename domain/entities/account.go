package entities

import "time"

// Account holds one user's balances in both currencies along with
// lifetime totals and match statistics. Balances are mutated only by
// the Ledger; every mutation is paired with exactly one LedgerEntry.
type Account struct {
	UserID      int64     `db:"user_id"`
	Coins       int64     `db:"coins"`
	Gems        int64     `db:"gems"`
	CoinsEarned int64     `db:"coins_earned"`
	CoinsSpent  int64     `db:"coins_spent"`
	GemsEarned  int64     `db:"gems_earned"`
	GemsSpent   int64     `db:"gems_spent"`
	GamesWon    int       `db:"games_won"`
	GamesLost   int       `db:"games_lost"`
	GamesDrawn  int       `db:"games_drawn"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Balance returns the available balance in the given currency
func (a *Account) Balance(currency Currency) int64 {
	if currency == CurrencyGems {
		return a.Gems
	}
	return a.Coins
}

// SetBalance assigns the balance in the given currency
func (a *Account) SetBalance(currency Currency, amount int64) {
	if currency == CurrencyGems {
		a.Gems = amount
		return
	}
	a.Coins = amount
}

// CanAfford checks if the account has sufficient balance for an amount
func (a *Account) CanAfford(currency Currency, amount int64) bool {
	return a.Balance(currency) >= amount
}

// AddLifetimeEarned accumulates the lifetime-earned counter for a currency
func (a *Account) AddLifetimeEarned(currency Currency, amount int64) {
	if currency == CurrencyGems {
		a.GemsEarned += amount
		return
	}
	a.CoinsEarned += amount
}

// AddLifetimeSpent accumulates the lifetime-spent counter for a currency
func (a *Account) AddLifetimeSpent(currency Currency, amount int64) {
	if currency == CurrencyGems {
		a.GemsSpent += amount
		return
	}
	a.CoinsSpent += amount
}
