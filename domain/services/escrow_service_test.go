package services

import (
	"context"
	"testing"
	"time"

	"parlor/domain/entities"

	"github.com/stretchr/testify/assert"
)

func newEscrowForTest(m *TestMocks) *escrowService {
	return NewEscrowService(m.Ledger, []int64{70, 20, 10}).(*escrowService)
}

func TestEscrowService_Escrow_GrowsPot(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := waitingRoom(time.Now())
	room.Pot = 0
	room.HostEscrow = 0

	mocks.Ledger.On("Debit", ctx, TestHostID, entities.CurrencyCoins, TestStake, entities.ReasonBet, TestRoomCode).
		Return(&entities.LedgerEntry{}, nil)

	err := service.Escrow(ctx, room, entities.SeatHost, TestHostID, TestStake)

	assert.NoError(t, err)
	assert.Equal(t, TestStake, room.Pot)
	assert.Equal(t, TestStake, room.HostEscrow)
	mocks.Ledger.AssertExpectations(t)
}

func TestEscrowService_Escrow_DebitFailureLeavesPotUntouched(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := waitingRoom(time.Now())
	mocks.Ledger.On("Debit", ctx, TestGuestID, entities.CurrencyCoins, TestStake, entities.ReasonBet, TestRoomCode).
		Return(nil, entities.ErrInsufficientFunds)

	err := service.Escrow(ctx, room, entities.SeatGuest, TestGuestID, TestStake)

	assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
	assert.Equal(t, TestStake, room.Pot)
	assert.Equal(t, int64(0), room.GuestEscrow)
}

func TestEscrowService_Settle_DistributesExactly(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := playingRoom(time.Now())

	mocks.Ledger.On("Credit", ctx, TestHostID, entities.CurrencyCoins, 2*TestStake, entities.ReasonPayout, TestRoomCode).
		Return(&entities.LedgerEntry{}, nil)

	err := service.Settle(ctx, room, []entities.PotShare{{UserID: TestHostID, Amount: 2 * TestStake}})

	assert.NoError(t, err)
	assert.True(t, room.PotDistributed)
	assert.Equal(t, int64(0), room.Pot)
	assert.Equal(t, int64(0), room.HostEscrow)
	assert.Equal(t, int64(0), room.GuestEscrow)
	mocks.Ledger.AssertExpectations(t)
}

func TestEscrowService_Settle_SecondCallIsNoop(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := playingRoom(time.Now())
	mocks.Ledger.On("Credit", ctx, TestHostID, entities.CurrencyCoins, 2*TestStake, entities.ReasonPayout, TestRoomCode).
		Return(&entities.LedgerEntry{}, nil).Once()

	shares := []entities.PotShare{{UserID: TestHostID, Amount: 2 * TestStake}}
	assert.NoError(t, service.Settle(ctx, room, shares))
	assert.NoError(t, service.Settle(ctx, room, shares))

	mocks.Ledger.AssertNumberOfCalls(t, "Credit", 1)
}

func TestEscrowService_Settle_MismatchedTotal(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := playingRoom(time.Now())

	err := service.Settle(ctx, room, []entities.PotShare{{UserID: TestHostID, Amount: TestStake}})

	assert.Error(t, err)
	assert.False(t, room.PotDistributed)
	mocks.Ledger.AssertNotCalled(t, "Credit")
}

func TestEscrowService_Refund_ReturnsPerSeatAmounts(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := playingRoom(time.Now())
	// Asymmetric escrows happen after a mid-game host transfer.
	room.HostEscrow = 300
	room.GuestEscrow = 700
	room.Pot = 1000

	mocks.Ledger.On("Credit", ctx, TestHostID, entities.CurrencyCoins, int64(300), entities.ReasonRefund, TestRoomCode).
		Return(&entities.LedgerEntry{}, nil)
	mocks.Ledger.On("Credit", ctx, TestGuestID, entities.CurrencyCoins, int64(700), entities.ReasonRefund, TestRoomCode).
		Return(&entities.LedgerEntry{}, nil)

	err := service.Refund(ctx, room)

	assert.NoError(t, err)
	assert.True(t, room.PotDistributed)
	assert.Equal(t, int64(0), room.Pot)
	mocks.Ledger.AssertExpectations(t)
}

func TestEscrowService_Refund_EmptySeatSkipped(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newEscrowForTest(mocks)

	room := waitingRoom(time.Now())
	mocks.Ledger.On("Credit", ctx, TestHostID, entities.CurrencyCoins, TestStake, entities.ReasonRefund, TestRoomCode).
		Return(&entities.LedgerEntry{}, nil)

	err := service.Refund(ctx, room)

	assert.NoError(t, err)
	mocks.Ledger.AssertNumberOfCalls(t, "Credit", 1)
}

func TestEscrowService_RankedDistribution(t *testing.T) {
	service := newEscrowForTest(NewTestMocks())

	tests := []struct {
		name   string
		pot    int64
		ranked []int64
		want   []entities.PotShare
	}{
		{
			name:   "three recipients clean split",
			pot:    1000,
			ranked: []int64{1, 2, 3},
			want: []entities.PotShare{
				{UserID: 1, Amount: 700},
				{UserID: 2, Amount: 200},
				{UserID: 3, Amount: 100},
			},
		},
		{
			name:   "remainder goes to first",
			pot:    101,
			ranked: []int64{1, 2, 3},
			// 70+20+10 = 100 distributed, 1 left over.
			want: []entities.PotShare{
				{UserID: 1, Amount: 71},
				{UserID: 2, Amount: 20},
				{UserID: 3, Amount: 10},
			},
		},
		{
			name:   "fewer recipients than prize tiers",
			pot:    1000,
			ranked: []int64{1, 2},
			want: []entities.PotShare{
				{UserID: 1, Amount: 800},
				{UserID: 2, Amount: 200},
			},
		},
		{
			name:   "single recipient takes all",
			pot:    999,
			ranked: []int64{7},
			want:   []entities.PotShare{{UserID: 7, Amount: 999}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.RankedDistribution(tt.pot, tt.ranked)
			assert.Equal(t, tt.want, got)

			var total int64
			for _, share := range got {
				total += share.Amount
			}
			assert.Equal(t, tt.pot, total, "shares must sum to the pot")
		})
	}
}

func TestEscrowService_RankedDistribution_Empty(t *testing.T) {
	service := newEscrowForTest(NewTestMocks())

	assert.Nil(t, service.RankedDistribution(0, []int64{1}))
	assert.Nil(t, service.RankedDistribution(100, nil))
}
