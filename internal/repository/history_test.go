package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistoryRepository(t *testing.T) *HistoryRepository {
	t.Helper()

	return NewHistoryRepository(suite.NewSQLite(t))
}

func finishedGame(t *testing.T, id, playerX, playerO string, completedAt time.Time) *entity.Game {
	t.Helper()

	game := entity.NewGame(id, playerX, playerO, entity.DefaultTotalTime, completedAt.Add(-time.Minute))
	require.NoError(t, game.Resign(playerO, completedAt))
	require.NoError(t, game.RecordRatingDeltas(16, -16))

	return game
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Counts recent games and players", func(t *testing.T) {
		// Given: games finished an hour, three days and ten days ago
		historyRepo := newHistoryRepository(t)

		require.NoError(t, historyRepo.Save(ctx, finishedGame(t, "g1", "a", "b", testNow.Add(-time.Hour))))
		require.NoError(t, historyRepo.Save(ctx, finishedGame(t, "g2", "a", "c", testNow.Add(-72*time.Hour))))
		require.NoError(t, historyRepo.Save(ctx, finishedGame(t, "g3", "d", "e", testNow.Add(-240*time.Hour))))

		// When: reading stats
		stats, err := historyRepo.Stats(ctx, testNow)

		// Then: one game today, three players this week
		require.NoError(t, err)
		assert.Equal(t, &GameStats{GamesLast24h: 1, PlayersLast7d: 3, GamesAllTime: 3}, stats)
	})

	t.Run("Saving twice keeps one row", func(t *testing.T) {
		historyRepo := newHistoryRepository(t)
		game := finishedGame(t, "g1", "a", "b", testNow)

		require.NoError(t, historyRepo.Save(ctx, game))
		require.NoError(t, historyRepo.Save(ctx, game))

		stats, err := historyRepo.Stats(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.GamesAllTime)
	})

	t.Run("Unfinished games are refused", func(t *testing.T) {
		historyRepo := newHistoryRepository(t)
		game := entity.NewGame("g1", "a", "b", entity.DefaultTotalTime, testNow)

		err := historyRepo.Save(ctx, game)

		require.ErrorIs(t, err, ErrGameNotCompleted)
	})

	t.Run("Games in progress count toward today", func(t *testing.T) {
		// Given: one game started an hour ago and one finished ten days ago
		historyRepo := newHistoryRepository(t)

		require.NoError(t, historyRepo.Start(ctx, entity.NewGame("live", "a", "b", entity.DefaultTotalTime, testNow.Add(-time.Hour))))
		require.NoError(t, historyRepo.Save(ctx, finishedGame(t, "old", "c", "d", testNow.Add(-240*time.Hour))))

		// When: reading stats
		stats, err := historyRepo.Stats(ctx, testNow)

		// Then: the unfinished game is counted
		require.NoError(t, err)
		assert.Equal(t, &GameStats{GamesLast24h: 1, PlayersLast7d: 2, GamesAllTime: 2}, stats)
	})

	t.Run("Saving a started game completes its row", func(t *testing.T) {
		historyRepo := newHistoryRepository(t)
		game := finishedGame(t, "g1", "a", "b", testNow)

		require.NoError(t, historyRepo.Start(ctx, game))
		require.NoError(t, historyRepo.Start(ctx, game))
		require.NoError(t, historyRepo.Save(ctx, game))

		var outcome string
		var ratingX, completedAt int64
		err := historyRepo.conn.QueryRowContext(ctx,
			`SELECT outcome, rating_x, completed_at FROM games WHERE id = ?`, "g1",
		).Scan(&outcome, &ratingX, &completedAt)

		require.NoError(t, err)
		assert.Equal(t, string(entity.OutcomeResigned), outcome)
		assert.EqualValues(t, 16, ratingX)
		assert.Equal(t, testNow.UnixMilli(), completedAt)
	})

	t.Run("Discard drops only unfinished games", func(t *testing.T) {
		historyRepo := newHistoryRepository(t)

		require.NoError(t, historyRepo.Start(ctx, entity.NewGame("abandoned", "a", "b", entity.DefaultTotalTime, testNow)))
		require.NoError(t, historyRepo.Save(ctx, finishedGame(t, "done", "c", "d", testNow)))

		require.NoError(t, historyRepo.Discard(ctx, "abandoned"))
		require.NoError(t, historyRepo.Discard(ctx, "done"))

		stats, err := historyRepo.Stats(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.GamesAllTime)
	})
}
