package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestGameRepository_CreateOrUpdate(t *testing.T) {
	t.Run("Stores a live game without expiry", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a waiting game
		game := entity.NewGame("123", "x", "o", entity.DefaultTotalTime, testNow)

		// When: CreateOrUpdate is called
		err := gameRepo.CreateOrUpdate(ctx, game)

		// Then: the game is stored without a TTL
		require.NoError(t, err)

		ttl, err := st.Storage.TTL(ctx, gameKey(game.ID)).Result()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(-1), ttl)
	})

	t.Run("Finished games expire", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a resigned game
		game := entity.NewGame("123", "x", "o", entity.DefaultTotalTime, testNow)
		require.NoError(t, game.Resign("o", testNow))

		// When: it is saved
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

		// Then: the key carries a TTL
		ttl, err := st.Storage.TTL(ctx, gameKey(game.ID)).Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
		assert.LessOrEqual(t, ttl, FinishedGameTTL)
	})
}

func TestGameRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a game with a few moves
		game := entity.NewGame("123", "x", "o", entity.DefaultTotalTime, testNow)
		require.NoError(t, game.ApplyMove(4, 4, "x", testNow))
		require.NoError(t, game.ApplyMove(4, 0, "o", testNow.Add(time.Second)))

		err := gameRepo.CreateOrUpdate(ctx, game)
		require.NoError(t, err)

		// When: GetByID is called with existing ID
		retrievedGame, err := gameRepo.GetByID(ctx, game.ID)

		// Then: the boards, clocks and forced board survive the round trip
		require.NoError(t, err)
		assert.Equal(t, game.Boards, retrievedGame.Boards)
		assert.Equal(t, game.Turn, retrievedGame.Turn)
		assert.Equal(t, game.NextBoard(), retrievedGame.NextBoard())
		assert.Equal(t, game.TimeUsedO, retrievedGame.TimeUsedO)
		assert.True(t, game.LastMoveAt.Equal(retrievedGame.LastMoveAt))
		assert.Equal(t, game.Status, retrievedGame.Status)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// When: GetByID is called with non-existent ID
		retrievedGame, err := gameRepo.GetByID(ctx, "9999999")

		// Then: an ErrGameNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
		assert.Nil(t, retrievedGame)
	})
}

func TestGameRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)

	// Given: a stored game
	game := entity.NewGame("123", "x", "o", entity.DefaultTotalTime, testNow)
	require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

	// When: DeleteByID is called
	err := gameRepo.DeleteByID(ctx, game.ID)

	// Then: the game is gone
	require.NoError(t, err)
	_, err = gameRepo.GetByID(ctx, game.ID)
	require.ErrorIs(t, err, apperror.ErrGameNotFound)
}
