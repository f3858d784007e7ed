package repository

import (
	"context"
	"testing"
	"time"

	"parlor/domain/entities"
	"parlor/domain/interfaces"
	"parlor/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(code string, hostID int64) *entities.Room {
	return &entities.Room{
		Code:           code,
		Status:         entities.RoomStatusWaiting,
		Visibility:     entities.RoomVisibilityPublic,
		Currency:       entities.CurrencyCoins,
		Stake:          500,
		Pot:            500,
		HostID:         hostID,
		HostEscrow:     500,
		Board:          entities.NewBoard(),
		LastActivityAt: time.Now(),
	}
}

func TestRoomRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	rooms := NewRoomRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 100, 1000)
	require.NoError(t, err)

	room := newTestRoom("ROOM01", 100)
	require.NoError(t, rooms.Create(ctx, room))
	assert.NotZero(t, room.ID)

	t.Run("found", func(t *testing.T) {
		got, err := rooms.GetByCode(ctx, "ROOM01")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, room.ID, got.ID)
		assert.Equal(t, entities.RoomStatusWaiting, got.Status)
		assert.Equal(t, int64(500), got.Pot)
		assert.Equal(t, entities.NewBoard(), got.Board)
	})

	t.Run("not found", func(t *testing.T) {
		got, err := rooms.GetByCode(ctx, "NOSUCH")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate code", func(t *testing.T) {
		err := rooms.Create(ctx, newTestRoom("ROOM01", 100))
		assert.ErrorIs(t, err, interfaces.ErrDuplicateCode)
	})
}

func TestRoomRepository_Update_RoundTripsGameState(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	rooms := NewRoomRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 100, 1000)
	require.NoError(t, err)
	_, err = accounts.Create(ctx, 200, 1000)
	require.NoError(t, err)

	room := newTestRoom("ROOM01", 100)
	require.NoError(t, rooms.Create(ctx, room))

	guestID := int64(200)
	turn := int64(100)
	now := time.Now().UTC().Truncate(time.Microsecond)
	deadline := now.Add(15 * time.Second)

	room.Status = entities.RoomStatusPlaying
	room.GuestID = &guestID
	room.GuestEscrow = 500
	room.Pot = 1000
	room.HostReady = true
	room.GuestReady = true
	room.TurnUserID = &turn
	room.MoveDeadline = &deadline
	room.StartedAt = &now
	room.Board.Cells[4] = entities.MarkHost
	require.NoError(t, rooms.Update(ctx, room))

	got, err := rooms.GetByCode(ctx, "ROOM01")
	require.NoError(t, err)
	assert.Equal(t, entities.RoomStatusPlaying, got.Status)
	assert.Equal(t, guestID, *got.GuestID)
	assert.Equal(t, int64(1000), got.Pot)
	assert.Equal(t, turn, *got.TurnUserID)
	assert.Equal(t, entities.MarkHost, got.Board.Cells[4])
	assert.WithinDuration(t, deadline, *got.MoveDeadline, time.Millisecond)
}

func TestRoomRepository_GetActiveByUser(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	rooms := NewRoomRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 100, 1000)
	require.NoError(t, err)

	active := newTestRoom("ACTIVE", 100)
	require.NoError(t, rooms.Create(ctx, active))

	done := newTestRoom("DONE01", 100)
	require.NoError(t, rooms.Create(ctx, done))
	done.Status = entities.RoomStatusFinished
	require.NoError(t, rooms.Update(ctx, done))

	got, err := rooms.GetActiveByUser(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ACTIVE", got[0].Code)
}

func TestRoomRepository_ListOpenPublic(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	rooms := NewRoomRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 100, 1000)
	require.NoError(t, err)
	_, err = accounts.Create(ctx, 200, 1000)
	require.NoError(t, err)

	open := newTestRoom("OPEN01", 100)
	require.NoError(t, rooms.Create(ctx, open))

	private := newTestRoom("HIDDEN", 100)
	private.Visibility = entities.RoomVisibilityPrivate
	require.NoError(t, rooms.Create(ctx, private))

	full := newTestRoom("FULL01", 100)
	guestID := int64(200)
	full.GuestID = &guestID
	require.NoError(t, rooms.Create(ctx, full))

	got, err := rooms.ListOpenPublic(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OPEN01", got[0].Code)
}

func TestRoomRepository_Moves(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	rooms := NewRoomRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 100, 1000)
	require.NoError(t, err)

	room := newTestRoom("ROOM01", 100)
	require.NoError(t, rooms.Create(ctx, room))

	require.NoError(t, rooms.RecordMove(ctx, room.ID, 1, 100, 4))
	require.NoError(t, rooms.RecordMove(ctx, room.ID, 2, 200, 0))

	// Move numbers are unique per room.
	assert.Error(t, rooms.RecordMove(ctx, room.ID, 2, 100, 8))

	// After a rematch clears the log, the numbers are free again.
	require.NoError(t, rooms.ClearMoves(ctx, room.ID))
	require.NoError(t, rooms.RecordMove(ctx, room.ID, 1, 200, 8))
}

func TestRoomRepository_RetentionSweep(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	rooms := NewRoomRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 100, 1000)
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)

	settled := newTestRoom("OLD001", 100)
	require.NoError(t, rooms.Create(ctx, settled))
	settled.Status = entities.RoomStatusFinished
	settled.PotDistributed = true
	settled.Pot = 0
	settled.HostEscrow = 0
	settled.FinishedAt = &old
	require.NoError(t, rooms.Update(ctx, settled))

	// Terminal but still holding money: must never be archived.
	unsettled := newTestRoom("OLD002", 100)
	require.NoError(t, rooms.Create(ctx, unsettled))
	unsettled.Status = entities.RoomStatusFinished
	unsettled.FinishedAt = &old
	require.NoError(t, rooms.Update(ctx, unsettled))

	fresh := newTestRoom("FRESH1", 100)
	require.NoError(t, rooms.Create(ctx, fresh))

	archived, err := rooms.ArchiveFinishedOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)

	got, err := rooms.GetByCode(ctx, "OLD001")
	require.NoError(t, err)
	assert.Equal(t, entities.RoomStatusArchived, got.Status)

	skipped, err := rooms.GetByCode(ctx, "OLD002")
	require.NoError(t, err)
	assert.Equal(t, entities.RoomStatusFinished, skipped.Status)

	// Purge only reaps archived rooms past the cutoff; the archive pass
	// above refreshed last_activity_at, so nothing goes yet.
	purged, err := rooms.PurgeArchivedOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)

	purged, err = rooms.PurgeArchivedOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
