package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

var ErrGameNotCompleted = errors.New("game has no completion time")

// GameStats are the aggregates served by the stats endpoint.
type GameStats struct {
	GamesLast24h  int `json:"games_today"`
	PlayersLast7d int `json:"players_online"`
	GamesAllTime  int `json:"games_total"`
}

// HistoryRepository keeps one row per game, completed once the game finishes.
type HistoryRepository struct {
	conn *sql.DB
}

func NewHistoryRepository(conn *sql.DB) *HistoryRepository {
	return &HistoryRepository{
		conn: conn,
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func ratingDelta(delta *int) int {
	if delta == nil {
		return 0
	}
	return *delta
}

// Start records a game as in progress. Starting the same game twice is a no-op.
func (that *HistoryRepository) Start(ctx context.Context, game *entity.Game) error {
	query := `INSERT INTO games (id, player_x, player_o, outcome, created_at, completed_at)
		VALUES (?, ?, ?, '', ?, 0)
		ON CONFLICT(id) DO NOTHING`

	if _, err := that.conn.ExecContext(ctx, query,
		game.ID, game.PlayerX, game.PlayerO, toMillis(game.CreatedAt),
	); err != nil {
		return fmt.Errorf("can't start game: %w", err)
	}

	return nil
}

// Save records a finished game. Only the first completion of a game is kept.
func (that *HistoryRepository) Save(ctx context.Context, game *entity.Game) error {
	if game.CompletedAt == nil {
		return fmt.Errorf("%w: %s", ErrGameNotCompleted, game.ID)
	}

	query := `INSERT INTO games
		(id, player_x, player_o, winner, outcome, rating_x, rating_o, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			winner = excluded.winner,
			outcome = excluded.outcome,
			rating_x = excluded.rating_x,
			rating_o = excluded.rating_o,
			completed_at = excluded.completed_at
		WHERE games.completed_at = 0`

	_, err := that.conn.ExecContext(ctx, query,
		game.ID,
		game.PlayerX,
		game.PlayerO,
		string(game.Winner),
		string(game.Outcome),
		ratingDelta(game.RatingDeltaX),
		ratingDelta(game.RatingDeltaO),
		toMillis(game.CreatedAt),
		toMillis(*game.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	return nil
}

// Discard removes a game that was never played. Finished games are kept.
func (that *HistoryRepository) Discard(ctx context.Context, gameID string) error {
	if _, err := that.conn.ExecContext(ctx,
		`DELETE FROM games WHERE id = ? AND completed_at = 0`, gameID,
	); err != nil {
		return fmt.Errorf("can't discard game: %w", err)
	}

	return nil
}

// Stats counts games created in the last 24 hours, finished or not, and distinct players of the last 7 days.
func (that *HistoryRepository) Stats(ctx context.Context, now time.Time) (*GameStats, error) {
	var stats GameStats

	dayAgo := toMillis(now.Add(-24 * time.Hour))
	weekAgo := toMillis(now.Add(-7 * 24 * time.Hour))

	err := that.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM games WHERE created_at >= ?`, dayAgo,
	).Scan(&stats.GamesLast24h)
	if err != nil {
		return nil, fmt.Errorf("can't count recent games: %w", err)
	}

	err = that.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT player) FROM (
			SELECT player_x AS player FROM games WHERE created_at >= ?
			UNION
			SELECT player_o AS player FROM games WHERE created_at >= ?
		)`, weekAgo, weekAgo,
	).Scan(&stats.PlayersLast7d)
	if err != nil {
		return nil, fmt.Errorf("can't count active players: %w", err)
	}

	err = that.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&stats.GamesAllTime)
	if err != nil {
		return nil, fmt.Errorf("can't count games: %w", err)
	}

	return &stats, nil
}
