package services

import (
	"testing"
	"time"

	"parlor/domain/entities"
	"parlor/domain/testhelpers"
)

// Test constants for consistent test data
const (
	TestHostID    = int64(100)
	TestGuestID   = int64(200)
	TestOutsider  = int64(300)
	TestRoomID    = int64(1)
	TestRoomCode  = "ABCDEF"
	TestStake     = int64(500)
	TestMinStake  = int64(1)
	TestMaxStake  = int64(1000000)
	TestMoveLimit = 15 * time.Second
)

// TestMocks aggregates all mocks a service test needs
type TestMocks struct {
	AccountRepo    *testhelpers.MockAccountRepository
	LedgerRepo     *testhelpers.MockLedgerRepository
	SupplyRepo     *testhelpers.MockSupplyRepository
	RoomRepo       *testhelpers.MockRoomRepository
	Ledger         *testhelpers.MockLedgerService
	Escrow         *testhelpers.MockEscrowService
	EventPublisher *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		AccountRepo:    &testhelpers.MockAccountRepository{},
		LedgerRepo:     &testhelpers.MockLedgerRepository{},
		SupplyRepo:     &testhelpers.MockSupplyRepository{},
		RoomRepo:       &testhelpers.MockRoomRepository{},
		Ledger:         &testhelpers.MockLedgerService{},
		Escrow:         &testhelpers.MockEscrowService{},
		EventPublisher: &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AccountRepo.AssertExpectations(t)
	m.LedgerRepo.AssertExpectations(t)
	m.SupplyRepo.AssertExpectations(t)
	m.RoomRepo.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Escrow.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// newRoomService wires a room service over the mocks with test limits
func (m *TestMocks) newRoomService() *roomService {
	return NewRoomService(
		m.RoomRepo, m.AccountRepo, m.Ledger, m.Escrow, m.EventPublisher,
		TestMinStake, TestMaxStake, TestMoveLimit,
	).(*roomService)
}

// playingRoom builds a room mid-game with both stakes escrowed and the
// host on turn
func playingRoom(now time.Time) *entities.Room {
	guestID := TestGuestID
	turn := TestHostID
	deadline := now.Add(TestMoveLimit)
	return &entities.Room{
		ID:             TestRoomID,
		Code:           TestRoomCode,
		Status:         entities.RoomStatusPlaying,
		Visibility:     entities.RoomVisibilityPrivate,
		Currency:       entities.CurrencyCoins,
		Stake:          TestStake,
		Pot:            2 * TestStake,
		HostID:         TestHostID,
		GuestID:        &guestID,
		HostEscrow:     TestStake,
		GuestEscrow:    TestStake,
		HostReady:      true,
		GuestReady:     true,
		TurnUserID:     &turn,
		Board:          entities.NewBoard(),
		MoveDeadline:   &deadline,
		CreatedAt:      now.Add(-time.Minute),
		StartedAt:      &now,
		LastActivityAt: now,
	}
}

// waitingRoom builds a freshly created room with only the host seated
func waitingRoom(now time.Time) *entities.Room {
	return &entities.Room{
		ID:             TestRoomID,
		Code:           TestRoomCode,
		Status:         entities.RoomStatusWaiting,
		Visibility:     entities.RoomVisibilityPublic,
		Currency:       entities.CurrencyCoins,
		Stake:          TestStake,
		Pot:            TestStake,
		HostID:         TestHostID,
		HostEscrow:     TestStake,
		Board:          entities.NewBoard(),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// finishedRoom builds a settled room where the host won
func finishedRoom(now time.Time) *entities.Room {
	guestID := TestGuestID
	winner := TestHostID
	finished := now.Add(-time.Minute)
	return &entities.Room{
		ID:             TestRoomID,
		Code:           TestRoomCode,
		Status:         entities.RoomStatusFinished,
		Visibility:     entities.RoomVisibilityPrivate,
		Currency:       entities.CurrencyCoins,
		Stake:          TestStake,
		PotDistributed: true,
		HostID:         TestHostID,
		GuestID:        &guestID,
		WinnerID:       &winner,
		Board:          entities.NewBoard(),
		CreatedAt:      now.Add(-time.Hour),
		FinishedAt:     &finished,
		LastActivityAt: finished,
	}
}
