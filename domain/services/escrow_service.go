package services

import (
	"context"
	"fmt"

	"parlor/domain/entities"
	"parlor/domain/interfaces"
)

type escrowService struct {
	ledger     interfaces.LedgerService
	prizeSplit []int64
}

// NewEscrowService creates a new escrow service. prizeSplit holds the
// ranked payout percentages, e.g. [70 20 10].
func NewEscrowService(ledger interfaces.LedgerService, prizeSplit []int64) interfaces.EscrowService {
	return &escrowService{
		ledger:     ledger,
		prizeSplit: prizeSplit,
	}
}

// Escrow debits the user's stake and adds it to the room's pot. The
// caller persists the room.
func (s *escrowService) Escrow(ctx context.Context, room *entities.Room, seat entities.Seat, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("escrow amount must be positive, got %d", amount)
	}
	if _, err := s.ledger.Debit(ctx, userID, room.Currency, amount, entities.ReasonBet, room.Code); err != nil {
		return err
	}
	room.AddEscrow(seat, amount)
	return nil
}

// Settle distributes the pot per the given shares, exactly once. A
// second call on the same room is a no-op.
func (s *escrowService) Settle(ctx context.Context, room *entities.Room, distribution []entities.PotShare) error {
	if room.PotDistributed {
		return nil
	}

	var total int64
	for _, share := range distribution {
		total += share.Amount
	}
	if total != room.Pot {
		return fmt.Errorf("distribution total %d does not match pot %d for room %s", total, room.Pot, room.Code)
	}

	for _, share := range distribution {
		if share.Amount == 0 {
			continue
		}
		if _, err := s.ledger.Credit(ctx, share.UserID, room.Currency, share.Amount, entities.ReasonPayout, room.Code); err != nil {
			return fmt.Errorf("failed to pay out %d to user %d: %w", share.Amount, share.UserID, err)
		}
	}

	room.PotDistributed = true
	room.ClearPot()
	return nil
}

// Refund returns to each seat exactly what it escrowed. Like Settle it
// runs at most once per room.
func (s *escrowService) Refund(ctx context.Context, room *entities.Room) error {
	if room.PotDistributed {
		return nil
	}

	if room.HostEscrow > 0 {
		if _, err := s.ledger.Credit(ctx, room.HostID, room.Currency, room.HostEscrow, entities.ReasonRefund, room.Code); err != nil {
			return fmt.Errorf("failed to refund host: %w", err)
		}
	}
	if room.GuestEscrow > 0 && room.GuestID != nil {
		if _, err := s.ledger.Credit(ctx, *room.GuestID, room.Currency, room.GuestEscrow, entities.ReasonRefund, room.Code); err != nil {
			return fmt.Errorf("failed to refund guest: %w", err)
		}
	}

	room.PotDistributed = true
	room.ClearPot()
	return nil
}

// RankedDistribution splits pot across ranked recipients using the
// configured percentages. Integer division leaves a remainder; it goes
// to the first recipient so the shares always sum to the pot.
func (s *escrowService) RankedDistribution(pot int64, ranked []int64) []entities.PotShare {
	if pot <= 0 || len(ranked) == 0 {
		return nil
	}

	var pctTotal int64
	for _, pct := range s.prizeSplit {
		pctTotal += pct
	}
	if pctTotal == 0 {
		return []entities.PotShare{{UserID: ranked[0], Amount: pot}}
	}

	n := len(ranked)
	if n > len(s.prizeSplit) {
		n = len(s.prizeSplit)
	}

	shares := make([]entities.PotShare, 0, n)
	var distributed int64
	for i := 0; i < n; i++ {
		amount := pot * s.prizeSplit[i] / pctTotal
		shares = append(shares, entities.PotShare{UserID: ranked[i], Amount: amount})
		distributed += amount
	}
	shares[0].Amount += pot - distributed
	return shares
}
