package entities

import "fmt"

// Currency selects which of an account's two balances an operation
// touches. It is a closed tagged union: repositories switch on it to
// pick strongly-typed columns, never to build SQL text.
type Currency string

const (
	// CurrencyCoins is the primary, freely-issued currency.
	CurrencyCoins Currency = "coins"
	// CurrencyGems is the secondary currency with a hard emission cap.
	CurrencyGems Currency = "gems"
)

// Valid reports whether the currency is one of the known variants
func (c Currency) Valid() bool {
	return c == CurrencyCoins || c == CurrencyGems
}

// Capped reports whether emissions of this currency are bounded by the
// supply ledger
func (c Currency) Capped() bool {
	return c == CurrencyGems
}

// String returns the string representation of the currency
func (c Currency) String() string {
	return string(c)
}

// ParseCurrency converts an external string into a Currency
func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown currency %q", s)
	}
	return c, nil
}
