package entity

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"
)

// Outcome describes how a finished game ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeWin      Outcome = "win"
	OutcomeDraw     Outcome = "draw"
	OutcomeResigned Outcome = "resigned"
	OutcomeTimedOut Outcome = "timeout"
)

const DefaultTotalTime = 360 * time.Second

var (
	ErrUnknownGameStatus      = errors.New("unknown game status")
	ErrRatingsAlreadyRecorded = errors.New("rating changes already recorded")
	ErrGameNotFinished        = errors.New("game is not finished")
)

// Game is a single Ultimate Tic-Tac-Toe session. Players are referenced by id only.
type Game struct {
	ID      string `json:"id"`
	PlayerX string `json:"player_x"`
	PlayerO string `json:"player_o"`

	Boards      [CellsPerBoard]Board `json:"boards"`
	Turn        Mark                 `json:"current_player"`
	ForcedBoard *int                 `json:"next_board"`

	Winner  Mark    `json:"winner"`
	Status  string  `json:"status"`
	Outcome Outcome `json:"outcome"`

	TotalTime  time.Duration `json:"total_time"`
	TimeUsedX  time.Duration `json:"time_used_x"`
	TimeUsedO  time.Duration `json:"time_used_o"`
	LastMoveAt time.Time     `json:"last_move_at"`

	RatingDeltaX *int `json:"rating_delta_x,omitempty"`
	RatingDeltaO *int `json:"rating_delta_o,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func NewGame(id, playerX, playerO string, totalTime time.Duration, now time.Time) *Game {
	if totalTime <= 0 {
		totalTime = DefaultTotalTime
	}

	return &Game{
		ID:         id,
		PlayerX:    playerX,
		PlayerO:    playerO,
		Turn:       PlayerX,
		Status:     StatusWaiting,
		TotalTime:  totalTime,
		LastMoveAt: now,
		CreatedAt:  now,
	}
}

// GetRandomMarks decides which of two paired players gets X.
func GetRandomMarks() (Mark, Mark) {
	if rand.Intn(2) == 0 { //nolint: gosec // it's ok
		return PlayerX, PlayerO
	}
	return PlayerO, PlayerX
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) ConfirmNotFinished() error {
	switch {
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsWaiting(), that.IsOngoing():
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

// MarkOf returns the mark bound to playerID.
func (that *Game) MarkOf(playerID string) (Mark, bool) {
	switch {
	case playerID == "":
		return EmptyCell, false
	case playerID == that.PlayerX:
		return PlayerX, true
	case playerID == that.PlayerO:
		return PlayerO, true
	default:
		return EmptyCell, false
	}
}

func (that *Game) PlayerID(mark Mark) string {
	if mark == PlayerX {
		return that.PlayerX
	}
	return that.PlayerO
}

func (that *Game) MetaBoard() MetaBoard {
	return NewMetaBoard(&that.Boards)
}

// NextBoard is the board the side to move must play in, nil for free choice.
func (that *Game) NextBoard() *int {
	if that.ForcedBoard == nil || that.IsFinished() {
		return nil
	}

	if !that.MetaBoard().IsBoardPlayable(*that.ForcedBoard) {
		return nil
	}

	next := *that.ForcedBoard
	return &next
}

func (that *Game) timeUsed(mark Mark) time.Duration {
	if mark == PlayerX {
		return that.TimeUsedX
	}
	return that.TimeUsedO
}

func (that *Game) setTimeUsed(mark Mark, used time.Duration) {
	if mark == PlayerX {
		that.TimeUsedX = used
	} else {
		that.TimeUsedO = used
	}
}

// pendingTimeUsed is the clock of the side to move as of now, without committing it.
func (that *Game) pendingTimeUsed(now time.Time) time.Duration {
	used := that.timeUsed(that.Turn)
	if !that.IsOngoing() {
		return used
	}

	if elapsed := now.Sub(that.LastMoveAt); elapsed > 0 {
		used += elapsed
	}

	return used
}

// TimeRemaining counts the running clock of the side to move.
func (that *Game) TimeRemaining(mark Mark, now time.Time) time.Duration {
	used := that.timeUsed(mark)
	if mark == that.Turn {
		used = that.pendingTimeUsed(now)
	}

	if remaining := that.TotalTime - used; remaining > 0 {
		return remaining
	}

	return 0
}

// Ready starts the clock. Only player X may signal it.
func (that *Game) Ready(playerID string, now time.Time) error {
	if err := that.ConfirmNotFinished(); err != nil {
		return err
	}

	if _, ok := that.MarkOf(playerID); !ok {
		return apperror.ErrNotAParticipant
	}

	if playerID != that.PlayerX {
		return apperror.ErrOnlyPlayerXReady
	}

	if that.IsWaiting() {
		that.Status = StatusOngoing
		that.LastMoveAt = now
	}

	return nil
}

// ApplyMove validates and plays a move for playerID. A mover whose clock ran
// out forfeits instead: the game is returned finished and the boards are untouched.
// Rejected moves leave the game unchanged.
func (that *Game) ApplyMove(boardIndex, position int, playerID string, now time.Time) error {
	if err := that.ConfirmNotFinished(); err != nil {
		return err
	}

	mark, ok := that.MarkOf(playerID)
	if !ok || mark != that.Turn {
		return apperror.ErrNotYourTurn
	}

	// the first move starts a game nobody marked ready
	lastMoveAt := that.LastMoveAt
	if that.IsWaiting() {
		lastMoveAt = now
	}

	used := that.timeUsed(mark)
	if elapsed := now.Sub(lastMoveAt); elapsed > 0 {
		used += elapsed
	}

	if used >= that.TotalTime {
		that.setTimeUsed(mark, used)
		that.LastMoveAt = now
		that.finish(mark.Opponent(), OutcomeTimedOut, now)
		return nil
	}

	if !isValidIndex(boardIndex) || !isValidIndex(position) {
		return fmt.Errorf("%w: board %d cell %d", apperror.ErrInvalidPosition, boardIndex, position)
	}

	if next := that.NextBoard(); next != nil && *next != boardIndex {
		return fmt.Errorf("%w: board %d", apperror.ErrWrongBoard, *next)
	}

	if !that.MetaBoard().IsBoardPlayable(boardIndex) {
		return fmt.Errorf("%w: board %d", apperror.ErrBoardCompleted, boardIndex)
	}

	if err := that.Boards[boardIndex].Set(position, mark); err != nil {
		return err
	}

	that.Status = StatusOngoing
	that.setTimeUsed(mark, used)
	that.LastMoveAt = now

	meta := that.MetaBoard()
	if winner := meta.Winner(); winner != ResultNone {
		that.finish(winner.Mark(), OutcomeWin, now)
		return nil
	}

	if meta.IsFull() {
		that.finish(EmptyCell, OutcomeDraw, now)
		return nil
	}

	if meta.IsBoardPlayable(position) {
		next := position
		that.ForcedBoard = &next
	} else {
		that.ForcedBoard = nil
	}

	that.Turn = mark.Opponent()

	return nil
}

// Resign ends the game in favour of the other participant.
func (that *Game) Resign(playerID string, now time.Time) error {
	mark, ok := that.MarkOf(playerID)
	if !ok {
		return apperror.ErrNotAParticipant
	}

	if err := that.ConfirmNotFinished(); err != nil {
		return err
	}

	that.finish(mark.Opponent(), OutcomeResigned, now)

	return nil
}

// ForfeitOnTimeout ends the game if the side to move has no time left.
func (that *Game) ForfeitOnTimeout(now time.Time) bool {
	if !that.IsOngoing() {
		return false
	}

	used := that.pendingTimeUsed(now)
	if used < that.TotalTime {
		return false
	}

	that.setTimeUsed(that.Turn, used)
	that.LastMoveAt = now
	that.finish(that.Turn.Opponent(), OutcomeTimedOut, now)

	return true
}

func (that *Game) finish(winner Mark, outcome Outcome, now time.Time) {
	that.Winner = winner
	that.Outcome = outcome
	that.Status = StatusFinished
	that.ForcedBoard = nil
	that.CompletedAt = &now
}

// Score is the rating result of a finished game for mark: 1 win, 0.5 draw, 0 loss.
func (that *Game) Score(mark Mark) float64 {
	switch that.Winner {
	case EmptyCell:
		return 0.5
	case mark:
		return 1
	default:
		return 0
	}
}

func (that *Game) HasRatingDeltas() bool {
	return that.RatingDeltaX != nil || that.RatingDeltaO != nil
}

// RecordRatingDeltas stores the rating changes of a finished game once.
func (that *Game) RecordRatingDeltas(deltaX, deltaO int) error {
	if !that.IsFinished() {
		return fmt.Errorf("%w: status %s", ErrGameNotFinished, that.Status)
	}

	if that.HasRatingDeltas() {
		return ErrRatingsAlreadyRecorded
	}

	that.RatingDeltaX = &deltaX
	that.RatingDeltaO = &deltaO

	return nil
}
