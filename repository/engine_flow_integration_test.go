package repository

import (
	"context"
	"sync"
	"testing"

	"parlor/application"
	"parlor/config"
	"parlor/domain/entities"
	"parlor/domain/events"
	"parlor/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFactory adapts the repository factory to the application
// factory interface using an in-memory publisher
type recordingFactory struct {
	inner     *unitOfWorkFactory
	publisher *RecordingPublisher
}

func (f *recordingFactory) Create() application.UnitOfWork {
	return f.inner.CreateWithPublisher(f.publisher)
}

func setupEngine(t *testing.T) (*application.Orchestrator, *RecordingPublisher) {
	testDB := testutil.SetupTestDatabase(t)
	cfg := config.NewTestConfig()
	publisher := &RecordingPublisher{}
	factory := &recordingFactory{
		inner:     NewUnitOfWorkFactory(testDB.DB),
		publisher: publisher,
	}
	orch := application.NewOrchestrator(factory, application.NewRegistry(cfg.RoomCodeLength), cfg)
	t.Cleanup(orch.Stop)
	return orch, publisher
}

// Full life cycle against a real database: stake in, play to a win,
// pot out, with money conserved at every step.
func TestEngine_FullMatchFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, publisher := setupEngine(t)

	hostID, guestID := int64(100), int64(200)
	_, err := orch.Grant(ctx, hostID, entities.CurrencyCoins, 10000)
	require.NoError(t, err)
	_, err = orch.Grant(ctx, guestID, entities.CurrencyCoins, 10000)
	require.NoError(t, err)

	room, err := orch.CreateRoom(ctx, hostID, entities.CurrencyCoins, 500, entities.RoomVisibilityPublic)
	require.NoError(t, err)

	open, err := orch.ListOpenRooms(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = orch.JoinRoom(ctx, room.Code, guestID)
	require.NoError(t, err)
	_, err = orch.MarkReady(ctx, room.Code, hostID)
	require.NoError(t, err)
	ready, err := orch.MarkReady(ctx, room.Code, guestID)
	require.NoError(t, err)
	require.Equal(t, entities.RoomStatusReady, ready.Status)

	playing, err := orch.StartGame(ctx, room.Code, hostID)
	require.NoError(t, err)
	require.Equal(t, entities.RoomStatusPlaying, playing.Status)
	require.Equal(t, int64(1000), playing.Pot)

	// Host takes the top row.
	moves := []struct {
		user int64
		cell int
	}{
		{hostID, 0}, {guestID, 3}, {hostID, 1}, {guestID, 4}, {hostID, 2},
	}
	var result *entities.MoveResult
	for _, m := range moves {
		result, err = orch.SubmitMove(ctx, room.Code, m.user, m.cell)
		require.NoError(t, err)
	}
	require.True(t, result.Finished)
	require.Equal(t, hostID, *result.WinnerID)

	hostAccount, err := orch.GetAccount(ctx, hostID)
	require.NoError(t, err)
	guestAccount, err := orch.GetAccount(ctx, guestID)
	require.NoError(t, err)

	assert.Equal(t, int64(10500), hostAccount.Coins)
	assert.Equal(t, int64(9500), guestAccount.Coins)
	assert.Equal(t, int64(20000), hostAccount.Coins+guestAccount.Coins, "total coins conserved")
	assert.Equal(t, 1, hostAccount.GamesWon)
	assert.Equal(t, 1, guestAccount.GamesLost)

	// Every coin that entered the room left it again.
	entries, err := orch.RoomLedger(ctx, room.Code)
	require.NoError(t, err)
	var net int64
	for _, e := range entries {
		net += e.Amount
	}
	assert.Equal(t, int64(0), net)

	settled := publisher.ByType(events.EventTypeRoomSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, int64(1000), settled[0].(events.RoomSettledEvent).Pot)
}

func TestEngine_RematchThenCancelRefunds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, _ := setupEngine(t)

	hostID, guestID := int64(100), int64(200)
	_, err := orch.Grant(ctx, hostID, entities.CurrencyCoins, 10000)
	require.NoError(t, err)
	_, err = orch.Grant(ctx, guestID, entities.CurrencyCoins, 10000)
	require.NoError(t, err)

	room, err := orch.CreateRoom(ctx, hostID, entities.CurrencyCoins, 500, entities.RoomVisibilityPrivate)
	require.NoError(t, err)
	_, err = orch.JoinRoom(ctx, room.Code, guestID)
	require.NoError(t, err)
	_, err = orch.MarkReady(ctx, room.Code, hostID)
	require.NoError(t, err)
	_, err = orch.MarkReady(ctx, room.Code, guestID)
	require.NoError(t, err)
	_, err = orch.StartGame(ctx, room.Code, hostID)
	require.NoError(t, err)

	for _, m := range []struct {
		user int64
		cell int
	}{{hostID, 0}, {guestID, 3}, {hostID, 1}, {guestID, 4}, {hostID, 2}} {
		_, err = orch.SubmitMove(ctx, room.Code, m.user, m.cell)
		require.NoError(t, err)
	}

	first, err := orch.RequestRematch(ctx, room.Code, hostID)
	require.NoError(t, err)
	assert.False(t, first.Accepted)

	second, err := orch.RequestRematch(ctx, room.Code, guestID)
	require.NoError(t, err)
	require.True(t, second.Accepted)
	assert.Equal(t, entities.RoomStatusPlaying, second.Room.Status)
	assert.Equal(t, int64(1000), second.Room.Pot)
	// Odd rematch count hands the opening move to the guest.
	assert.Equal(t, guestID, *second.Room.TurnUserID)

	cancelled, err := orch.CancelRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, entities.RoomStatusCancelled, cancelled.Status)

	hostAccount, err := orch.GetAccount(ctx, hostID)
	require.NoError(t, err)
	guestAccount, err := orch.GetAccount(ctx, guestID)
	require.NoError(t, err)
	// First game moved 500 to the host; the cancelled rematch returned
	// both fresh stakes untouched.
	assert.Equal(t, int64(10500), hostAccount.Coins)
	assert.Equal(t, int64(9500), guestAccount.Coins)
}

func TestEngine_InsufficientFundsLeavesNoTrace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, _ := setupEngine(t)

	hostID := int64(100)
	_, err := orch.Grant(ctx, hostID, entities.CurrencyCoins, 100)
	require.NoError(t, err)

	_, err = orch.CreateRoom(ctx, hostID, entities.CurrencyCoins, 500, entities.RoomVisibilityPublic)
	require.ErrorIs(t, err, entities.ErrInsufficientFunds)

	account, err := orch.GetAccount(ctx, hostID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.Coins)

	history, err := orch.History(ctx, hostID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1, "only the original grant is on the ledger")
	assert.Equal(t, entities.ReasonAdminGrant, history[0].Reason)
}

func TestEngine_TransferWithCommission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, _ := setupEngine(t)

	_, err := orch.Grant(ctx, 100, entities.CurrencyCoins, 1000)
	require.NoError(t, err)

	commission, err := orch.Transfer(ctx, 100, 200, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(10), commission)

	from, err := orch.GetAccount(ctx, 100)
	require.NoError(t, err)
	to, err := orch.GetAccount(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(800), from.Coins)
	assert.Equal(t, int64(190), to.Coins)
}

func TestEngine_GemEmissionRespectsCap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, _ := setupEngine(t)

	// The migration seeds the cap at 100 million.
	_, err := orch.Grant(ctx, 100, entities.CurrencyGems, 99_999_999)
	require.NoError(t, err)

	_, err = orch.Grant(ctx, 200, entities.CurrencyGems, 2)
	require.ErrorIs(t, err, entities.ErrSupplyExhausted)

	_, err = orch.Grant(ctx, 200, entities.CurrencyGems, 1)
	require.NoError(t, err)
}

// One open seat, several players racing for it: exactly one join may
// land, and every losing player's coins stay untouched.
func TestEngine_ConcurrentJoinsSingleSeat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, _ := setupEngine(t)

	hostID := int64(100)
	_, err := orch.Grant(ctx, hostID, entities.CurrencyCoins, 10000)
	require.NoError(t, err)

	joiners := []int64{201, 202, 203, 204}
	for _, id := range joiners {
		_, err := orch.Grant(ctx, id, entities.CurrencyCoins, 10000)
		require.NoError(t, err)
	}

	room, err := orch.CreateRoom(ctx, hostID, entities.CurrencyCoins, 500, entities.RoomVisibilityPublic)
	require.NoError(t, err)

	results := make(chan error, len(joiners))
	var wg sync.WaitGroup
	for _, id := range joiners {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := orch.JoinRoom(ctx, room.Code, userID)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, entities.ErrRoomFull)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, len(joiners)-1, rejected)

	final, err := orch.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	require.NotNil(t, final.GuestID)
	assert.Equal(t, int64(1000), final.Pot)

	// Exactly one joiner paid a stake; everyone else kept theirs.
	var total int64
	for _, id := range joiners {
		account, err := orch.GetAccount(ctx, id)
		require.NoError(t, err)
		if id == *final.GuestID {
			assert.Equal(t, int64(9500), account.Coins)
		} else {
			assert.Equal(t, int64(10000), account.Coins)
		}
		total += account.Coins
	}
	hostAccount, err := orch.GetAccount(ctx, hostID)
	require.NoError(t, err)
	total += hostAccount.Coins
	escrowed := final.Pot
	assert.Equal(t, int64(50000), total+escrowed, "total coins conserved")
}
