package testhelpers

import (
	"context"

	"parlor/domain/entities"

	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Debit(ctx context.Context, userID int64, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, currency, amount, reason, roomCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, userID int64, currency entities.Currency, amount int64, reason entities.Reason, roomCode string) (*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, currency, amount, reason, roomCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerService) Transfer(ctx context.Context, fromID, toID int64, amount int64) (int64, error) {
	args := m.Called(ctx, fromID, toID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerService) RoomHistory(ctx context.Context, code string) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// MockEscrowService is a mock implementation of EscrowService.
// Successful Escrow/Settle/Refund expectations mutate the room the way
// the real implementation does, so state machine tests see consistent
// pot bookkeeping.
type MockEscrowService struct {
	mock.Mock
}

func (m *MockEscrowService) Escrow(ctx context.Context, room *entities.Room, seat entities.Seat, userID int64, amount int64) error {
	args := m.Called(ctx, room, seat, userID, amount)
	if args.Error(0) == nil {
		room.AddEscrow(seat, amount)
	}
	return args.Error(0)
}

func (m *MockEscrowService) Settle(ctx context.Context, room *entities.Room, distribution []entities.PotShare) error {
	args := m.Called(ctx, room, distribution)
	if args.Error(0) == nil && !room.PotDistributed {
		room.PotDistributed = true
		room.ClearPot()
	}
	return args.Error(0)
}

func (m *MockEscrowService) Refund(ctx context.Context, room *entities.Room) error {
	args := m.Called(ctx, room)
	if args.Error(0) == nil && !room.PotDistributed {
		room.PotDistributed = true
		room.ClearPot()
	}
	return args.Error(0)
}

func (m *MockEscrowService) RankedDistribution(pot int64, ranked []int64) []entities.PotShare {
	args := m.Called(pot, ranked)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]entities.PotShare)
}
