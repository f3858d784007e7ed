package repository

import (
	"context"
	"testing"

	"parlor/domain/entities"
	"parlor/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_GetByUserID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByUserID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("account found", func(t *testing.T) {
		created, err := repo.Create(ctx, 123456, 1000)
		require.NoError(t, err)

		account, err := repo.GetByUserID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, int64(123456), account.UserID)
		assert.Equal(t, int64(1000), account.Coins)
		assert.Equal(t, int64(0), account.Gems)
		assert.Equal(t, created.CreatedAt, account.CreatedAt)
	})
}

func TestAccountRepository_Create_Duplicate(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, 111, 500)
	require.NoError(t, err)

	_, err = repo.Create(ctx, 111, 500)
	assert.Error(t, err)
}

func TestAccountRepository_SaveBalances(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	account, err := repo.Create(ctx, 222, 1000)
	require.NoError(t, err)

	account.Coins = 750
	account.Gems = 30
	account.CoinsSpent = 250
	account.GemsEarned = 30
	require.NoError(t, repo.SaveBalances(ctx, account))

	got, err := repo.GetByUserID(ctx, 222)
	require.NoError(t, err)
	assert.Equal(t, int64(750), got.Coins)
	assert.Equal(t, int64(30), got.Gems)
	assert.Equal(t, int64(250), got.CoinsSpent)
	assert.Equal(t, int64(30), got.GemsEarned)

	t.Run("unknown account", func(t *testing.T) {
		missing := &entities.Account{UserID: 999999}
		assert.Error(t, repo.SaveBalances(ctx, missing))
	})
}

func TestAccountRepository_RecordMatchResult(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, 333, 0)
	require.NoError(t, err)

	require.NoError(t, repo.RecordMatchResult(ctx, 333, entities.OutcomeWin))
	require.NoError(t, repo.RecordMatchResult(ctx, 333, entities.OutcomeWin))
	require.NoError(t, repo.RecordMatchResult(ctx, 333, entities.OutcomeLoss))
	require.NoError(t, repo.RecordMatchResult(ctx, 333, entities.OutcomeDraw))

	account, err := repo.GetByUserID(ctx, 333)
	require.NoError(t, err)
	assert.Equal(t, 2, account.GamesWon)
	assert.Equal(t, 1, account.GamesLost)
	assert.Equal(t, 1, account.GamesDrawn)

	assert.Error(t, repo.RecordMatchResult(ctx, 333, entities.MatchOutcome("bogus")))
}
