package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/rating"
)

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

type historyRepo interface {
	Start(ctx context.Context, game *entity.Game) error
	Save(ctx context.Context, game *entity.Game) error
	Discard(ctx context.Context, gameID string) error
}

var errGameNotRated = errors.New("game has no rating deltas")

// OutcomeNotifier rates finished games and settles them on the players' profiles and in history.
type OutcomeNotifier struct {
	logger      *slog.Logger
	playerRepo  playerRepo
	historyRepo historyRepo
	kFactor     int

	// serializes read-modify-write of player profiles across games.
	mu sync.Mutex
}

func NewOutcomeNotifier(logger *slog.Logger, playerRepo playerRepo, historyRepo historyRepo, kFactor int) *OutcomeNotifier {
	if kFactor <= 0 {
		kFactor = rating.DefaultKFactor
	}

	return &OutcomeNotifier{
		logger:      logger.With("component", "outcome_notifier"),
		playerRepo:  playerRepo,
		historyRepo: historyRepo,
		kFactor:     kFactor,
	}
}

// GameCreated records a new game as in progress.
func (that *OutcomeNotifier) GameCreated(ctx context.Context, game *entity.Game) error {
	if err := that.historyRepo.Start(ctx, game); err != nil {
		return fmt.Errorf("failed to start game history: %w", err)
	}

	return nil
}

// GameAbandoned forgets a game that never finished.
func (that *OutcomeNotifier) GameAbandoned(ctx context.Context, gameID string) error {
	if err := that.historyRepo.Discard(ctx, gameID); err != nil {
		return fmt.Errorf("failed to discard game history: %w", err)
	}

	return nil
}

// RateGame records rating changes on a finished game that is not yet stored.
// Players are only read, so rating the same result again has no side effects.
func (that *OutcomeNotifier) RateGame(ctx context.Context, game *entity.Game) error {
	if game.HasRatingDeltas() {
		return nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	playerX, playerO, err := that.players(ctx, game)
	if err != nil {
		return err
	}

	deltaX, deltaO := rating.Deltas(playerX.Rating, playerO.Rating, game.Score(entity.PlayerX), that.kFactor)

	if err = game.RecordRatingDeltas(deltaX, deltaO); err != nil {
		return fmt.Errorf("failed to record rating deltas: %w", err)
	}

	return nil
}

// GameFinished applies the recorded deltas to both players and writes the history row.
// It runs once per game, after the finished game is stored.
func (that *OutcomeNotifier) GameFinished(ctx context.Context, game *entity.Game) error {
	log := that.logger.With("method", "GameFinished", "game_id", game.ID)

	if !game.HasRatingDeltas() {
		that.saveHistory(ctx, game)
		return fmt.Errorf("%w: %s", errGameNotRated, game.ID)
	}

	deltaX, deltaO := *game.RatingDeltaX, *game.RatingDeltaO

	that.mu.Lock()
	defer that.mu.Unlock()

	playerX, playerO, err := that.players(ctx, game)
	if err != nil {
		return err
	}

	applyResult(playerX, deltaX, game.Score(entity.PlayerX))
	applyResult(playerO, deltaO, game.Score(entity.PlayerO))

	for _, player := range []*entity.Player{playerX, playerO} {
		if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
			return fmt.Errorf("failed to update player: %w", err)
		}
	}

	that.saveHistory(ctx, game)

	log.Info("ratings updated", "delta_x", deltaX, "delta_o", deltaO)

	return nil
}

func (that *OutcomeNotifier) players(ctx context.Context, game *entity.Game) (*entity.Player, *entity.Player, error) {
	playerX, err := that.playerRepo.GetByID(ctx, game.PlayerX)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get player X: %w", err)
	}

	playerO, err := that.playerRepo.GetByID(ctx, game.PlayerO)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get player O: %w", err)
	}

	return playerX, playerO, nil
}

func (that *OutcomeNotifier) saveHistory(ctx context.Context, game *entity.Game) {
	if err := that.historyRepo.Save(ctx, game); err != nil {
		that.logger.Error("failed to save game history", "game_id", game.ID, "error", err)
	}
}

func applyResult(player *entity.Player, delta int, score float64) {
	player.Rating += delta

	switch score {
	case rating.Win:
		player.Wins++
	case rating.Loss:
		player.Losses++
	default:
		player.Draws++
	}
}
