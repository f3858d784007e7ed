package services

import (
	"context"
	"fmt"
	"math"

	"parlor/domain/entities"
	"parlor/domain/events"
	"parlor/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	accountRepo    interfaces.AccountRepository
	ledgerRepo     interfaces.LedgerRepository
	supplyRepo     interfaces.SupplyRepository
	eventPublisher interfaces.EventPublisher
	commissionRate float64
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	accountRepo interfaces.AccountRepository,
	ledgerRepo interfaces.LedgerRepository,
	supplyRepo interfaces.SupplyRepository,
	eventPublisher interfaces.EventPublisher,
	commissionRate float64,
) interfaces.LedgerService {
	return &ledgerService{
		accountRepo:    accountRepo,
		ledgerRepo:     ledgerRepo,
		supplyRepo:     supplyRepo,
		eventPublisher: eventPublisher,
		commissionRate: commissionRate,
	}
}

// lockAccount fetches the account under an exclusive row lock,
// creating it with a zero balance on first sight
func (s *ledgerService) lockAccount(ctx context.Context, userID int64) (*entities.Account, error) {
	account, err := s.accountRepo.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}
	if account == nil {
		// The insert happens inside our transaction, so the fresh row
		// is already exclusively ours.
		account, err = s.accountRepo.Create(ctx, userID, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create account %d: %w", userID, err)
		}
	}
	return account, nil
}

// apply mutates a locked account's balance and appends the matching
// ledger entry. amount is signed.
func (s *ledgerService) apply(ctx context.Context, account *entities.Account, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error) {
	before := account.Balance(currency)
	after := before + amount

	entry := &entities.LedgerEntry{
		UserID:        account.UserID,
		Currency:      currency,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reason:        reason,
	}
	if roomCode != "" {
		entry.RoomCode = &roomCode
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("ledger entry validation failed: %w", err)
	}

	account.SetBalance(currency, after)
	if amount > 0 {
		account.AddLifetimeEarned(currency, amount)
	} else {
		account.AddLifetimeSpent(currency, -amount)
	}

	if err := s.accountRepo.SaveBalances(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save balances: %w", err)
	}
	if err := s.ledgerRepo.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	if err := s.eventPublisher.Publish(events.BalanceChangeEvent{
		UserID:     account.UserID,
		Currency:   currency,
		OldBalance: before,
		NewBalance: after,
		Amount:     amount,
		Reason:     reason,
		Room:       roomCode,
	}); err != nil {
		log.WithError(err).WithField("user_id", account.UserID).Error("Failed to publish balance change event")
	}

	return entry, nil
}

// Debit removes amount from the user's balance in currency
func (s *ledgerService) Debit(ctx context.Context, userID int64, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("unknown currency %q", currency)
	}

	account, err := s.lockAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.CanAfford(currency, amount) {
		return nil, entities.ErrInsufficientFunds
	}

	return s.apply(ctx, account, currency, -amount, reason, roomCode)
}

// Credit adds amount to the user's balance in currency
func (s *ledgerService) Credit(ctx context.Context, userID int64, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("unknown currency %q", currency)
	}

	// Emission of the capped currency consumes supply; the supply row
	// lock serializes concurrent emissions so the cap check holds.
	if reason.IsEmission() && currency.Capped() {
		supply, err := s.supplyRepo.GetForUpdate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to lock supply: %w", err)
		}
		if !supply.CanEmit(amount) {
			return nil, entities.ErrSupplyExhausted
		}
		supply.Emitted += amount
		if err := s.supplyRepo.Save(ctx, supply); err != nil {
			return nil, fmt.Errorf("failed to save supply: %w", err)
		}
	}

	account, err := s.lockAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, account, currency, amount, reason, roomCode)
}

// Transfer moves coins between two accounts, taking commission out of
// the transferred amount. Accounts are locked in ascending id order so
// two crossing transfers cannot deadlock.
func (s *ledgerService) Transfer(ctx context.Context, fromID, toID int64, amount int64) (int64, error) {
	if fromID == toID {
		return 0, fmt.Errorf("cannot transfer to yourself")
	}
	if amount <= 0 {
		return 0, fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	var from, to *entities.Account
	var err error
	if fromID < toID {
		from, err = s.lockAccount(ctx, fromID)
		if err == nil {
			to, err = s.lockAccount(ctx, toID)
		}
	} else {
		to, err = s.lockAccount(ctx, toID)
		if err == nil {
			from, err = s.lockAccount(ctx, fromID)
		}
	}
	if err != nil {
		return 0, err
	}

	if !from.CanAfford(entities.CurrencyCoins, amount) {
		return 0, entities.ErrInsufficientFunds
	}

	commission := int64(math.Floor(float64(amount) * s.commissionRate))
	received := amount - commission

	if _, err := s.apply(ctx, from, entities.CurrencyCoins, -received, entities.ReasonTransfer, ""); err != nil {
		return 0, err
	}
	if commission > 0 {
		// Commission is burned: debited from the sender with no
		// matching credit anywhere.
		if _, err := s.apply(ctx, from, entities.CurrencyCoins, -commission, entities.ReasonCommission, ""); err != nil {
			return 0, err
		}
	}
	if _, err := s.apply(ctx, to, entities.CurrencyCoins, received, entities.ReasonTransfer, ""); err != nil {
		return 0, err
	}

	return commission, nil
}

// History returns the most recent ledger entries for a user
func (s *ledgerService) History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.ledgerRepo.GetByUser(ctx, userID, limit)
}

// RoomHistory returns all ledger entries correlated with a room
func (s *ledgerService) RoomHistory(ctx context.Context, code string) ([]*entities.LedgerEntry, error) {
	return s.ledgerRepo.GetByRoomCode(ctx, code)
}
