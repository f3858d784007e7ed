package application

import (
	"context"
	"testing"
	"time"

	"parlor/config"
	"parlor/domain/entities"
	"parlor/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newOrchestratorForTest() (*Orchestrator, *fakeUnitOfWork) {
	uow := newFakeUnitOfWork()
	cfg := config.NewTestConfig()
	return NewOrchestrator(&fakeUoWFactory{uow: uow}, NewRegistry(cfg.RoomCodeLength), cfg), uow
}

func TestOrchestrator_CreateRoom_Success(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	host := &entities.Account{UserID: 100, Coins: 1000}
	uow.accounts.On("GetForUpdate", mock.Anything, int64(100)).Return(host, nil)
	uow.accounts.On("SaveBalances", mock.Anything, host).Return(nil)
	uow.ledger.On("Record", mock.Anything, mock.Anything).Return(nil)
	uow.rooms.On("Create", mock.Anything, mock.Anything).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil)

	room, err := orch.CreateRoom(ctx, 100, entities.CurrencyCoins, 500, entities.RoomVisibilityPublic)

	assert.NoError(t, err)
	assert.Len(t, room.Code, 6)
	assert.Equal(t, entities.RoomStatusWaiting, room.Status)
	assert.Equal(t, int64(500), host.Coins, "stake escrowed out of the host's balance")
	assert.Equal(t, 1, uow.committed)
	assert.Equal(t, 0, uow.rolledBack)
}

func TestOrchestrator_CreateRoom_RetriesOnDuplicateCode(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	host := &entities.Account{UserID: 100, Coins: 10000}
	uow.accounts.On("GetForUpdate", mock.Anything, int64(100)).Return(host, nil)
	uow.accounts.On("SaveBalances", mock.Anything, host).Return(nil)
	uow.ledger.On("Record", mock.Anything, mock.Anything).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil)

	uow.rooms.On("Create", mock.Anything, mock.Anything).Return(interfaces.ErrDuplicateCode).Twice()
	uow.rooms.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	room, err := orch.CreateRoom(ctx, 100, entities.CurrencyCoins, 500, entities.RoomVisibilityPrivate)

	assert.NoError(t, err)
	assert.NotNil(t, room)
	// Two collisions rolled back, the third attempt committed.
	assert.Equal(t, 2, uow.rolledBack)
	assert.Equal(t, 1, uow.committed)
}

func TestOrchestrator_CreateRoom_GivesUpAfterBoundedAttempts(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	host := &entities.Account{UserID: 100, Coins: 10000}
	uow.accounts.On("GetForUpdate", mock.Anything, int64(100)).Return(host, nil)
	uow.accounts.On("SaveBalances", mock.Anything, host).Return(nil)
	uow.ledger.On("Record", mock.Anything, mock.Anything).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil)
	uow.rooms.On("Create", mock.Anything, mock.Anything).Return(interfaces.ErrDuplicateCode)

	_, err := orch.CreateRoom(ctx, 100, entities.CurrencyCoins, 500, entities.RoomVisibilityPrivate)

	assert.ErrorIs(t, err, entities.ErrCodeGenerationExhausted)
	assert.Equal(t, orch.cfg.RoomCodeAttempts, uow.rolledBack)
	assert.Equal(t, 0, uow.committed)
}

func TestOrchestrator_SubmitMove_DomainErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	hostID, guestID := int64(100), int64(200)
	turn := hostID
	deadline := time.Now().Add(time.Minute)
	room := &entities.Room{
		ID:           1,
		Code:         "ROOM01",
		Status:       entities.RoomStatusPlaying,
		Currency:     entities.CurrencyCoins,
		Stake:        500,
		Pot:          1000,
		HostID:       hostID,
		GuestID:      &guestID,
		HostEscrow:   500,
		GuestEscrow:  500,
		TurnUserID:   &turn,
		MoveDeadline: &deadline,
		Board:        entities.NewBoard(),
	}
	uow.rooms.On("GetByCodeForUpdate", mock.Anything, "ROOM01").Return(room, nil)

	_, err := orch.SubmitMove(ctx, "ROOM01", guestID, 0)

	assert.ErrorIs(t, err, entities.ErrNotYourTurn)
	assert.Equal(t, 1, uow.rolledBack)
	assert.Equal(t, 0, uow.committed)
}

func TestOrchestrator_Grant_GemsEmitFromSupply(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	supply := &entities.GemSupply{Emitted: 0, Cap: 1000}
	account := &entities.Account{UserID: 100}

	uow.supply.On("GetForUpdate", mock.Anything).Return(supply, nil)
	uow.supply.On("Save", mock.Anything, supply).Return(nil)
	uow.accounts.On("GetForUpdate", mock.Anything, int64(100)).Return(account, nil)
	uow.accounts.On("SaveBalances", mock.Anything, account).Return(nil)
	uow.ledger.On("Record", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
		return e.Reason == entities.ReasonEmission && e.Currency == entities.CurrencyGems
	})).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil)

	entry, err := orch.Grant(ctx, 100, entities.CurrencyGems, 250)

	assert.NoError(t, err)
	assert.Equal(t, int64(250), entry.Amount)
	assert.Equal(t, int64(250), supply.Emitted)
	assert.Equal(t, 1, uow.committed)
}

func TestOrchestrator_Grant_CoinsAreAdminGrant(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	account := &entities.Account{UserID: 100}
	uow.accounts.On("GetForUpdate", mock.Anything, int64(100)).Return(account, nil)
	uow.accounts.On("SaveBalances", mock.Anything, account).Return(nil)
	uow.ledger.On("Record", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
		return e.Reason == entities.ReasonAdminGrant
	})).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil)

	_, err := orch.Grant(ctx, 100, entities.CurrencyCoins, 1000)

	assert.NoError(t, err)
	// Coins are uncapped; no supply row involved.
	uow.supply.AssertNotCalled(t, "GetForUpdate", mock.Anything)
}

func TestOrchestrator_GetAccount_CreatesOnFirstSight(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()

	uow.accounts.On("GetByUserID", mock.Anything, int64(700)).Return(nil, nil)
	uow.accounts.On("Create", mock.Anything, int64(700), int64(0)).
		Return(&entities.Account{UserID: 700}, nil)

	account, err := orch.GetAccount(ctx, 700)

	assert.NoError(t, err)
	assert.Equal(t, int64(700), account.UserID)
	assert.Equal(t, 1, uow.committed)
}

func TestOrchestrator_StartGame_ArmsDeadlineTimer(t *testing.T) {
	ctx := context.Background()
	orch, uow := newOrchestratorForTest()
	defer orch.Stop()

	hostID, guestID := int64(100), int64(200)
	room := &entities.Room{
		ID:          1,
		Code:        "ROOM01",
		Status:      entities.RoomStatusReady,
		Currency:    entities.CurrencyCoins,
		Stake:       500,
		Pot:         1000,
		HostID:      hostID,
		GuestID:     &guestID,
		HostEscrow:  500,
		GuestEscrow: 500,
		HostReady:   true,
		GuestReady:  true,
		Board:       entities.NewBoard(),
	}
	uow.rooms.On("GetByCodeForUpdate", mock.Anything, "ROOM01").Return(room, nil)
	uow.rooms.On("Update", mock.Anything, room).Return(nil)
	uow.publisher.On("Publish", mock.Anything).Return(nil)

	got, err := orch.StartGame(ctx, "ROOM01", hostID)

	assert.NoError(t, err)
	assert.Equal(t, entities.RoomStatusPlaying, got.Status)

	orch.timerMu.Lock()
	_, armed := orch.timers["ROOM01"]
	orch.timerMu.Unlock()
	assert.True(t, armed, "move-deadline timer should be armed after start")
}
