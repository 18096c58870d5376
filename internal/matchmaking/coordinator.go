package matchmaking

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
)

const DefaultTTL = 30 * time.Second

const (
	StatusWaiting           = "waiting"
	StatusWaitingAcceptance = "waiting_acceptance"
	StatusMatched           = "matched"
)

type playerRepo interface {
	GetByID(ctx context.Context, playerID string) (*entity.Player, error)
}

type gameCreator interface {
	CreateGame(ctx context.Context, playerA, playerB string) (*entity.Game, error)
	AbandonGame(ctx context.Context, gameID string) error
}

type PollResult struct {
	Status       string `json:"status"`
	OpponentName string `json:"opponent_name,omitempty"`
	GameID       string `json:"game_id,omitempty"`
}

type Stats struct {
	Waiting int `json:"waiting"`
	Pending int `json:"pending"`
}

type waitingEntry struct {
	name     string
	seq      uint64
	lastSeen time.Time
}

// pendingMatch is one side of a pairing. A confirmed row belongs to a player
// whose opponent already collected the game; its next poll collects it too.
type pendingMatch struct {
	gameID       string
	opponentID   string
	opponentName string
	accepted     bool
	confirmed    bool
	lastSeen     time.Time
}

// Coordinator pairs waiting players. Every operation runs under one lock.
type Coordinator struct {
	logger  *slog.Logger
	players playerRepo
	games   gameCreator
	metrics *metrics.Metrics

	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	seq     uint64
	waiting map[string]*waitingEntry
	pending map[string]*pendingMatch
}

func NewCoordinator(logger *slog.Logger, players playerRepo, games gameCreator, ttl time.Duration, m *metrics.Metrics) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Coordinator{
		logger:  logger.With("component", "matchmaking"),
		players: players,
		games:   games,
		metrics: m,
		ttl:     ttl,
		now:     time.Now,
		waiting: make(map[string]*waitingEntry),
		pending: make(map[string]*pendingMatch),
	}
}

// Enqueue adds the player to the waiting pool, dropping any stale pairing it still had.
func (that *Coordinator) Enqueue(ctx context.Context, playerID string) error {
	log := that.logger.With("method", "Enqueue", "player_id", playerID)

	player, err := that.players.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, apperror.ErrPlayerNotFound) {
			return fmt.Errorf("%w: %s", apperror.ErrUnknownPlayer, playerID)
		}
		return fmt.Errorf("failed to get player: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()
	defer that.reportQueue()

	now := that.now()
	that.evictExpired(ctx, now)

	if entry, ok := that.waiting[playerID]; ok {
		entry.lastSeen = now
		return nil
	}

	if _, ok := that.pending[playerID]; ok {
		log.Info("dropping stale pending match")
		that.dropPending(ctx, playerID)
	}

	that.seq++
	that.waiting[playerID] = &waitingEntry{
		name:     player.DisplayName(),
		seq:      that.seq,
		lastSeen: now,
	}

	log.Debug("player is waiting")

	return nil
}

// Poll refreshes the caller, accepts its pending match and pairs it when possible.
func (that *Coordinator) Poll(ctx context.Context, playerID string) (*PollResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()
	defer that.reportQueue()

	now := that.now()
	that.evictExpired(ctx, now)

	if match, ok := that.pending[playerID]; ok {
		return that.accept(playerID, match, now), nil
	}

	entry, ok := that.waiting[playerID]
	if !ok {
		return nil, apperror.ErrNotInQueue
	}
	entry.lastSeen = now

	opponentID, opponent := that.longestWaiting(playerID)
	if opponent == nil {
		return &PollResult{Status: StatusWaiting}, nil
	}

	game, err := that.games.CreateGame(ctx, playerID, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	delete(that.waiting, playerID)
	delete(that.waiting, opponentID)

	that.pending[playerID] = &pendingMatch{
		gameID:       game.ID,
		opponentID:   opponentID,
		opponentName: opponent.name,
		lastSeen:     now,
	}
	that.pending[opponentID] = &pendingMatch{
		gameID:       game.ID,
		opponentID:   playerID,
		opponentName: entry.name,
		lastSeen:     now,
	}

	that.logger.Info("players paired", "game_id", game.ID, "player_a", playerID, "player_b", opponentID)

	return &PollResult{Status: StatusWaitingAcceptance, OpponentName: opponent.name}, nil
}

func (that *Coordinator) accept(playerID string, match *pendingMatch, now time.Time) *PollResult {
	if match.confirmed {
		delete(that.pending, playerID)
		return &PollResult{Status: StatusMatched, OpponentName: match.opponentName, GameID: match.gameID}
	}

	match.accepted = true
	match.lastSeen = now

	opponent, ok := that.pending[match.opponentID]
	if !ok || !opponent.accepted {
		return &PollResult{Status: StatusWaitingAcceptance, OpponentName: match.opponentName}
	}

	delete(that.pending, playerID)
	opponent.confirmed = true

	that.logger.Info("match accepted", "game_id", match.gameID)

	return &PollResult{Status: StatusMatched, OpponentName: match.opponentName, GameID: match.gameID}
}

// longestWaiting picks the earliest enqueued player other than playerID.
func (that *Coordinator) longestWaiting(playerID string) (string, *waitingEntry) {
	var (
		bestID string
		best   *waitingEntry
	)

	for id, entry := range that.waiting {
		if id == playerID {
			continue
		}
		if best == nil || entry.seq < best.seq {
			bestID, best = id, entry
		}
	}

	return bestID, best
}

// Cancel removes the player from the queue. A pending match is cancelled for both sides.
func (that *Coordinator) Cancel(ctx context.Context, playerID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()
	defer that.reportQueue()

	that.evictExpired(ctx, that.now())

	_, wasWaiting := that.waiting[playerID]
	delete(that.waiting, playerID)

	_, wasPending := that.pending[playerID]
	if wasPending {
		that.dropPending(ctx, playerID)
	}

	if wasWaiting || wasPending {
		that.logger.Info("matchmaking cancelled", "player_id", playerID)
	}

	return wasWaiting || wasPending
}

func (that *Coordinator) Stats() Stats {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.evictExpired(context.Background(), that.now())

	return Stats{Waiting: len(that.waiting), Pending: len(that.pending)}
}

// dropPending removes the pending row of playerID and its partner. The game is
// abandoned unless the partner already collected it.
func (that *Coordinator) dropPending(ctx context.Context, playerID string) {
	match, ok := that.pending[playerID]
	if !ok {
		return
	}
	delete(that.pending, playerID)

	if match.confirmed {
		return
	}

	if partner, ok := that.pending[match.opponentID]; ok && partner.gameID == match.gameID {
		delete(that.pending, match.opponentID)
	}

	if err := that.games.AbandonGame(ctx, match.gameID); err != nil {
		that.logger.Error("failed to abandon game", "game_id", match.gameID, "error", err)
	}
}

func (that *Coordinator) evictExpired(ctx context.Context, now time.Time) {
	for id, entry := range that.waiting {
		if now.Sub(entry.lastSeen) >= that.ttl {
			delete(that.waiting, id)
		}
	}

	for id, match := range that.pending {
		if now.Sub(match.lastSeen) >= that.ttl {
			that.logger.Debug("pending match expired", "player_id", id, "game_id", match.gameID)
			that.dropPending(ctx, id)
		}
	}
}

func (that *Coordinator) reportQueue() {
	that.metrics.Queue(len(that.waiting), len(that.pending))
}
