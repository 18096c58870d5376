package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/metrics"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/pkg"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

// outcomeNotifier follows a game through its life. RateGame runs before the
// finished game is stored and must be safe to repeat; GameFinished runs once after.
type outcomeNotifier interface {
	GameCreated(ctx context.Context, game *entity.Game) error
	RateGame(ctx context.Context, game *entity.Game) error
	GameFinished(ctx context.Context, game *entity.Game) error
	GameAbandoned(ctx context.Context, gameID string) error
}

// GameObserver is told about every committed change of a game.
type GameObserver interface {
	GameUpdated(game *entity.Game)
}

// liveGame holds the current state of one session. The game pointer is
// replaced on every commit, never mutated in place.
type liveGame struct {
	mu   sync.Mutex
	game *entity.Game
}

type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo
	notifier outcomeNotifier
	metrics  *metrics.Metrics

	totalTime time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	games     map[string]*liveGame
	observers []GameObserver
}

func NewGameManager(
	logger *slog.Logger,
	gameRepo gameRepo,
	notifier outcomeNotifier,
	totalTime time.Duration,
	m *metrics.Metrics,
) *GameManager {
	return &GameManager{
		logger:    logger.With("component", "game_manager"),
		gameRepo:  gameRepo,
		notifier:  notifier,
		metrics:   m,
		totalTime: totalTime,
		now:       time.Now,
		games:     make(map[string]*liveGame),
	}
}

func (that *GameManager) AddObserver(observer GameObserver) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.observers = append(that.observers, observer)
}

// CreateGame starts a session between two paired players with random marks.
func (that *GameManager) CreateGame(ctx context.Context, playerA, playerB string) (*entity.Game, error) {
	playerX, playerO := playerA, playerB
	if markA, _ := entity.GetRandomMarks(); markA == entity.PlayerO {
		playerX, playerO = playerB, playerA
	}

	game := entity.NewGame(pkg.GenerateGameID(), playerX, playerO, that.totalTime, that.now())

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.mu.Lock()
	that.games[game.ID] = &liveGame{game: game}
	that.mu.Unlock()

	if err := that.notifier.GameCreated(ctx, game); err != nil {
		that.logger.Error("failed to record game start", "game_id", game.ID, "error", err)
	}

	that.metrics.GameCreated()
	that.logger.Info("game created", "game_id", game.ID, "player_x", playerX, "player_o", playerO)

	return game, nil
}

// AbandonGame drops a session nobody will play.
func (that *GameManager) AbandonGame(ctx context.Context, gameID string) error {
	that.mu.Lock()
	delete(that.games, gameID)
	that.mu.Unlock()

	if err := that.gameRepo.DeleteByID(ctx, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	if err := that.notifier.GameAbandoned(ctx, gameID); err != nil {
		that.logger.Error("failed to discard game history", "game_id", gameID, "error", err)
	}

	that.logger.Info("game abandoned", "game_id", gameID)

	return nil
}

func (that *GameManager) GetGame(ctx context.Context, gameID string) (*entity.GameSnapshot, error) {
	live, err := that.lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	game := live.game
	live.mu.Unlock()

	return game.Snapshot(that.now()), nil
}

func (that *GameManager) MakeMove(ctx context.Context, gameID, playerID string, boardIndex, position int) (*entity.GameSnapshot, error) {
	snapshot, err := that.update(ctx, gameID, func(game *entity.Game, now time.Time) error {
		return game.ApplyMove(boardIndex, position, playerID, now)
	})

	that.metrics.Move(moveResult(err))

	return snapshot, err
}

func (that *GameManager) Resign(ctx context.Context, gameID, playerID string) (*entity.GameSnapshot, error) {
	return that.update(ctx, gameID, func(game *entity.Game, now time.Time) error {
		return game.Resign(playerID, now)
	})
}

func (that *GameManager) Ready(ctx context.Context, gameID, playerID string) (*entity.GameSnapshot, error) {
	return that.update(ctx, gameID, func(game *entity.Game, now time.Time) error {
		return game.Ready(playerID, now)
	})
}

// SweepTimeouts forfeits every live game whose side to move ran out of time.
func (that *GameManager) SweepTimeouts(ctx context.Context) int {
	that.mu.RLock()
	ids := make([]string, 0, len(that.games))
	for id := range that.games {
		ids = append(ids, id)
	}
	that.mu.RUnlock()

	forfeited := 0
	for _, id := range ids {
		_, err := that.update(ctx, id, func(game *entity.Game, now time.Time) error {
			if !game.ForfeitOnTimeout(now) {
				return errNothingToCommit
			}
			return nil
		})

		switch {
		case err == nil:
			forfeited++
		case errors.Is(err, errNothingToCommit), errors.Is(err, apperror.ErrGameNotFound):
		default:
			that.logger.Error("failed to sweep game", "game_id", id, "error", err)
		}
	}

	if forfeited > 0 {
		that.logger.Info("games forfeited on time", "count", forfeited)
	}

	return forfeited
}

var errNothingToCommit = errors.New("nothing to commit")

// update applies change to a copy of the game and commits it once it is stored.
// A finished game is settled only after the commit, so a failed save can be retried.
func (that *GameManager) update(
	ctx context.Context,
	gameID string,
	change func(game *entity.Game, now time.Time) error,
) (*entity.GameSnapshot, error) {
	live, err := that.lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	now := that.now()
	next := *live.game

	if err = change(&next, now); err != nil {
		return nil, err
	}

	if next.IsFinished() {
		if err = that.notifier.RateGame(ctx, &next); err != nil {
			that.logger.Error("failed to rate game", "game_id", gameID, "error", err)
		}
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	live.game = &next

	if next.IsFinished() {
		that.mu.Lock()
		delete(that.games, gameID)
		that.mu.Unlock()

		if err = that.notifier.GameFinished(ctx, &next); err != nil {
			that.logger.Error("failed to record game outcome", "game_id", gameID, "error", err)
		}

		that.metrics.GameFinished(string(next.Outcome))
		that.logger.Info("game finished", "game_id", gameID, "outcome", next.Outcome, "winner", next.Winner)
	}

	that.notify(&next)

	return next.Snapshot(now), nil
}

func (that *GameManager) notify(game *entity.Game) {
	that.mu.RLock()
	observers := that.observers
	that.mu.RUnlock()

	for _, observer := range observers {
		observer.GameUpdated(game)
	}
}

// lookup returns the live session, restoring it from storage when it is not in memory.
// Storage is read under the map lock so a restore cannot race with a game finishing.
// Finished games are served from storage and never become live again.
func (that *GameManager) lookup(ctx context.Context, gameID string) (*liveGame, error) {
	that.mu.RLock()
	live, ok := that.games[gameID]
	that.mu.RUnlock()

	if ok {
		return live, nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if live, ok = that.games[gameID]; ok {
		return live, nil
	}

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if game.IsFinished() {
		return &liveGame{game: game}, nil
	}

	live = &liveGame{game: game}
	that.games[gameID] = live

	that.logger.Info("game restored", "game_id", gameID)

	return live, nil
}

func moveResult(err error) string {
	for result, target := range map[string]error{
		"invalid_position": apperror.ErrInvalidPosition,
		"cell_occupied":    apperror.ErrCellOccupied,
		"board_completed":  apperror.ErrBoardCompleted,
		"wrong_board":      apperror.ErrWrongBoard,
		"not_your_turn":    apperror.ErrNotYourTurn,
		"game_finished":    apperror.ErrGameFinished,
		"game_not_found":   apperror.ErrGameNotFound,
	} {
		if errors.Is(err, target) {
			return result
		}
	}

	if err != nil {
		return "error"
	}

	return "ok"
}
