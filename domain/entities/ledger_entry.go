package entities

import (
	"errors"
	"time"
)

// Reason is the typed reason code attached to every ledger entry
type Reason string

// All reason codes supported by the ledger
const (
	ReasonBet        Reason = "bet"
	ReasonPayout     Reason = "payout"
	ReasonRefund     Reason = "refund"
	ReasonTransfer   Reason = "transfer"
	ReasonCommission Reason = "commission"
	ReasonAdminGrant Reason = "admin_grant"
	ReasonEmission   Reason = "emission"
)

// Valid reports whether the reason is one of the known codes
func (r Reason) Valid() bool {
	switch r {
	case ReasonBet, ReasonPayout, ReasonRefund, ReasonTransfer,
		ReasonCommission, ReasonAdminGrant, ReasonEmission:
		return true
	}
	return false
}

// IsEmission reports whether the reason creates new capped currency
func (r Reason) IsEmission() bool {
	return r == ReasonEmission
}

// String returns the string representation of the reason
func (r Reason) String() string {
	return string(r)
}

// LedgerEntry is the immutable record of one balance mutation.
// Created once, never updated or deleted.
type LedgerEntry struct {
	ID            int64          `db:"id"`
	UserID        int64          `db:"user_id"`
	Currency      Currency       `db:"currency"`
	Amount        int64          `db:"amount"` // signed: positive credit, negative debit
	BalanceBefore int64          `db:"balance_before"`
	BalanceAfter  int64          `db:"balance_after"`
	Reason        Reason         `db:"reason"`
	RoomCode      *string        `db:"room_code"`
	CorrelationID *string        `db:"correlation_id"`
	Metadata      map[string]any `db:"metadata"`
	CreatedAt     time.Time      `db:"created_at"`
}

// IsCredit returns true if the entry increased the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount > 0
}

// IsDebit returns true if the entry decreased the balance
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount < 0
}

// Validate performs basic consistency checks on the entry
func (e *LedgerEntry) Validate() error {
	if e.Amount == 0 {
		return errors.New("ledger amount cannot be zero")
	}
	if !e.Currency.Valid() {
		return errors.New("ledger currency is unknown")
	}
	if !e.Reason.Valid() {
		return errors.New("ledger reason is unknown")
	}
	if e.BalanceAfter != e.BalanceBefore+e.Amount {
		return errors.New("ledger balance calculation is inconsistent")
	}
	if e.BalanceAfter < 0 {
		return errors.New("ledger entry would leave a negative balance")
	}
	return nil
}
