package entity

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPlayerX = "player-x"
	testPlayerO = "player-o"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestGame() *Game {
	return NewGame("game-1", testPlayerX, testPlayerO, DefaultTotalTime, testNow)
}

func ongoingGame() *Game {
	game := newTestGame()
	game.Status = StatusOngoing
	return game
}

func intPtr(i int) *int {
	return &i
}

func TestGameStatusMethods(t *testing.T) {
	t.Run("New game waits for the first move", func(t *testing.T) {
		// Given: a freshly created game
		game := newTestGame()

		// Then: X moves first with free choice
		assert.True(t, game.IsWaiting())
		assert.Equal(t, PlayerX, game.Turn)
		assert.Nil(t, game.NextBoard())
		assert.Equal(t, DefaultTotalTime, game.TotalTime)
	})

	t.Run("Non positive total time falls back to default", func(t *testing.T) {
		game := NewGame("game-1", testPlayerX, testPlayerO, 0, testNow)

		assert.Equal(t, DefaultTotalTime, game.TotalTime)
	})

	t.Run("ConfirmNotFinished reports finished and unknown status", func(t *testing.T) {
		assert.NoError(t, (&Game{Status: StatusOngoing}).ConfirmNotFinished())
		assert.ErrorIs(t, (&Game{Status: StatusFinished}).ConfirmNotFinished(), apperror.ErrGameFinished)
		assert.ErrorIs(t, (&Game{Status: "unknown"}).ConfirmNotFinished(), ErrUnknownGameStatus)
	})

	t.Run("MarkOf maps participants only", func(t *testing.T) {
		game := newTestGame()

		mark, ok := game.MarkOf(testPlayerO)
		assert.True(t, ok)
		assert.Equal(t, PlayerO, mark)

		_, ok = game.MarkOf("stranger")
		assert.False(t, ok)

		_, ok = game.MarkOf("")
		assert.False(t, ok)
	})
}

func TestGame_ApplyMove(t *testing.T) {
	t.Run("First move starts the game and forces the next board", func(t *testing.T) {
		// Given: a waiting game
		game := newTestGame()

		// When: X plays the center cell of the center board
		err := game.ApplyMove(4, 2, testPlayerX, testNow.Add(5*time.Second))

		// Then: the game is ongoing, O must answer in board 2
		require.NoError(t, err)
		assert.True(t, game.IsOngoing())
		assert.Equal(t, PlayerX, game.Boards[4][2])
		assert.Equal(t, PlayerO, game.Turn)
		require.NotNil(t, game.NextBoard())
		assert.Equal(t, 2, *game.NextBoard())
		assert.Zero(t, game.TimeUsedX)
	})

	t.Run("Rejects a move out of turn", func(t *testing.T) {
		game := newTestGame()

		err := game.ApplyMove(0, 0, testPlayerO, testNow)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		err = game.ApplyMove(0, 0, "stranger", testNow)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Rejects a move outside the forced board", func(t *testing.T) {
		// Given: an ongoing game forcing board 4
		game := ongoingGame()
		game.ForcedBoard = intPtr(4)
		before := *game

		// When: X plays in board 0
		err := game.ApplyMove(0, 0, testPlayerX, testNow.Add(time.Second))

		// Then: the move fails and nothing changed
		require.ErrorIs(t, err, apperror.ErrWrongBoard)
		assert.Equal(t, before, *game)
	})

	t.Run("Rejects invalid indices", func(t *testing.T) {
		game := ongoingGame()

		require.ErrorIs(t, game.ApplyMove(9, 0, testPlayerX, testNow), apperror.ErrInvalidPosition)
		require.ErrorIs(t, game.ApplyMove(0, -1, testPlayerX, testNow), apperror.ErrInvalidPosition)
	})

	t.Run("Rejects an occupied cell", func(t *testing.T) {
		game := ongoingGame()
		game.Boards[0][0] = PlayerO

		err := game.ApplyMove(0, 0, testPlayerX, testNow)

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, PlayerO, game.Boards[0][0])
	})

	t.Run("Rejects a move into a resolved board", func(t *testing.T) {
		game := ongoingGame()
		game.Boards[3] = wonBoard(PlayerO)

		err := game.ApplyMove(3, 5, testPlayerX, testNow)

		require.ErrorIs(t, err, apperror.ErrBoardCompleted)
	})

	t.Run("Sending to a resolved board gives free choice", func(t *testing.T) {
		// Given: board 3 is already won
		game := ongoingGame()
		game.Boards[3] = wonBoard(PlayerX)

		// When: X plays position 3 of board 0
		err := game.ApplyMove(0, 3, testPlayerX, testNow)

		// Then: O may play anywhere
		require.NoError(t, err)
		assert.Nil(t, game.NextBoard())
		assert.Nil(t, game.ForcedBoard)
	})

	t.Run("Winning the meta board finishes the game", func(t *testing.T) {
		// Given: X owns boards 0 and 1 and two cells of board 2
		game := ongoingGame()
		game.Boards[0] = wonBoard(PlayerX)
		game.Boards[1] = wonBoard(PlayerX)
		game.Boards[2] = Board{0: PlayerX, 1: PlayerX, 4: PlayerO}
		game.ForcedBoard = intPtr(2)

		// When: X completes board 2
		err := game.ApplyMove(2, 2, testPlayerX, testNow)

		// Then: X wins the match
		require.NoError(t, err)
		assert.True(t, game.IsFinished())
		assert.Equal(t, PlayerX, game.Winner)
		assert.Equal(t, OutcomeWin, game.Outcome)
		assert.Nil(t, game.NextBoard())
		assert.NotNil(t, game.CompletedAt)

		err = game.ApplyMove(5, 0, testPlayerO, testNow)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Resolving every board without a line is a draw", func(t *testing.T) {
		// Given: eight resolved boards and board 2 one cell short of a tie
		game := ongoingGame()
		for i := range game.Boards {
			game.Boards[i] = tiedBoard()
		}
		game.Boards[0] = wonBoard(PlayerX)
		game.Boards[4] = wonBoard(PlayerX)
		game.Boards[5] = wonBoard(PlayerX)
		game.Boards[1] = wonBoard(PlayerO)
		game.Boards[3] = wonBoard(PlayerO)
		game.Boards[8] = wonBoard(PlayerO)
		game.Boards[2][8] = EmptyCell
		game.Turn = PlayerO

		// When: O fills the last cell
		err := game.ApplyMove(2, 8, testPlayerO, testNow)

		// Then: the game is drawn
		require.NoError(t, err)
		assert.True(t, game.IsFinished())
		assert.Equal(t, EmptyCell, game.Winner)
		assert.Equal(t, OutcomeDraw, game.Outcome)
		assert.InDelta(t, 0.5, game.Score(PlayerX), 0)
	})

	t.Run("Charges the mover only on success", func(t *testing.T) {
		// Given: an ongoing game where X has been thinking for 10 seconds
		game := ongoingGame()
		now := testNow.Add(10 * time.Second)

		// When: X first fails, then plays
		require.Error(t, game.ApplyMove(0, 9, testPlayerX, now))
		assert.Zero(t, game.TimeUsedX)

		require.NoError(t, game.ApplyMove(0, 0, testPlayerX, now))

		// Then: the clock is charged once
		assert.Equal(t, 10*time.Second, game.TimeUsedX)
		assert.Equal(t, now, game.LastMoveAt)
		assert.Equal(t, DefaultTotalTime, game.TimeRemaining(PlayerO, now))
	})

	t.Run("Mover out of time forfeits", func(t *testing.T) {
		// Given: X has used up the whole budget
		game := ongoingGame()
		now := testNow.Add(DefaultTotalTime + time.Second)

		// When: X tries to move
		err := game.ApplyMove(0, 0, testPlayerX, now)

		// Then: O wins on time and the boards are untouched
		require.NoError(t, err)
		assert.True(t, game.IsFinished())
		assert.Equal(t, PlayerO, game.Winner)
		assert.Equal(t, OutcomeTimedOut, game.Outcome)
		assert.Equal(t, EmptyCell, game.Boards[0][0])
		assert.Zero(t, game.TimeRemaining(PlayerX, now))
	})
}

func TestGame_ForcedBoardInvariant(t *testing.T) {
	// Given: a seeded sequence of random legal moves
	random := rand.New(rand.NewSource(42)) //nolint: gosec // it's ok
	game := newTestGame()
	now := testNow

	for !game.IsFinished() {
		boardIndex, position := randomLegalMove(random, game)
		now = now.Add(time.Second)

		// When: the move is applied
		require.NoError(t, game.ApplyMove(boardIndex, position, game.PlayerID(game.Turn), now))

		// Then: a forced board is always playable
		if next := game.NextBoard(); next != nil {
			assert.True(t, game.MetaBoard().IsBoardPlayable(*next))
		}
	}

	assert.NotEqual(t, OutcomeNone, game.Outcome)
}

func TestGame_Replay(t *testing.T) {
	// Given: two games fed the same moves
	moves := [][2]int{{4, 4}, {4, 0}, {0, 4}, {4, 8}, {8, 4}, {4, 2}, {2, 4}}
	first, second := newTestGame(), newTestGame()

	// When: replaying the moves on both
	for i, move := range moves {
		now := testNow.Add(time.Duration(i+1) * time.Second)
		player := first.PlayerID(first.Turn)

		require.NoError(t, first.ApplyMove(move[0], move[1], player, now))
		require.NoError(t, second.ApplyMove(move[0], move[1], player, now))
	}

	// Then: the states are identical
	assert.Equal(t, first, second)
	assert.Equal(t, first.Snapshot(testNow), second.Snapshot(testNow))
}

func randomLegalMove(random *rand.Rand, game *Game) (int, int) {
	var candidates [][2]int

	meta := game.MetaBoard()
	for boardIndex := range game.Boards {
		if next := game.NextBoard(); next != nil && *next != boardIndex {
			continue
		}
		if !meta.IsBoardPlayable(boardIndex) {
			continue
		}
		for position, cell := range game.Boards[boardIndex] {
			if cell == EmptyCell {
				candidates = append(candidates, [2]int{boardIndex, position})
			}
		}
	}

	move := candidates[random.Intn(len(candidates))]
	return move[0], move[1]
}

func TestGame_Ready(t *testing.T) {
	t.Run("Only player X starts the clock", func(t *testing.T) {
		// Given: a waiting game
		game := newTestGame()
		later := testNow.Add(30 * time.Second)

		// When: O and a stranger try first
		require.ErrorIs(t, game.Ready(testPlayerO, later), apperror.ErrOnlyPlayerXReady)
		require.ErrorIs(t, game.Ready("stranger", later), apperror.ErrNotAParticipant)
		assert.True(t, game.IsWaiting())

		// Then: X can start the game
		require.NoError(t, game.Ready(testPlayerX, later))
		assert.True(t, game.IsOngoing())
		assert.Equal(t, later, game.LastMoveAt)
		assert.Equal(t, DefaultTotalTime-5*time.Second, game.TimeRemaining(PlayerX, later.Add(5*time.Second)))
	})

	t.Run("Ready on an ongoing game keeps the clock", func(t *testing.T) {
		game := ongoingGame()

		require.NoError(t, game.Ready(testPlayerX, testNow.Add(time.Minute)))
		assert.Equal(t, testNow, game.LastMoveAt)
	})
}

func TestGame_Resign(t *testing.T) {
	t.Run("Opponent wins on resignation", func(t *testing.T) {
		// Given: an ongoing game
		game := ongoingGame()

		// When: O resigns
		err := game.Resign(testPlayerO, testNow)

		// Then: X wins
		require.NoError(t, err)
		assert.True(t, game.IsFinished())
		assert.Equal(t, PlayerX, game.Winner)
		assert.Equal(t, OutcomeResigned, game.Outcome)
		assert.InDelta(t, 1.0, game.Score(PlayerX), 0)
		assert.InDelta(t, 0.0, game.Score(PlayerO), 0)
	})

	t.Run("Rejects strangers and finished games", func(t *testing.T) {
		game := ongoingGame()

		require.ErrorIs(t, game.Resign("stranger", testNow), apperror.ErrNotAParticipant)
		require.NoError(t, game.Resign(testPlayerX, testNow))
		require.ErrorIs(t, game.Resign(testPlayerO, testNow), apperror.ErrGameFinished)
		assert.Equal(t, PlayerO, game.Winner)
	})
}

func TestGame_ForfeitOnTimeout(t *testing.T) {
	t.Run("Does nothing while time remains", func(t *testing.T) {
		game := ongoingGame()

		assert.False(t, game.ForfeitOnTimeout(testNow.Add(time.Minute)))
		assert.True(t, game.IsOngoing())
	})

	t.Run("Waiting games never time out", func(t *testing.T) {
		game := newTestGame()

		assert.False(t, game.ForfeitOnTimeout(testNow.Add(time.Hour)))
	})

	t.Run("Side to move loses when the clock runs out", func(t *testing.T) {
		// Given: O to move with almost no time left
		game := ongoingGame()
		game.Turn = PlayerO
		game.TimeUsedO = DefaultTotalTime - time.Second

		// When: two seconds pass
		forfeited := game.ForfeitOnTimeout(testNow.Add(2 * time.Second))

		// Then: X wins on time
		assert.True(t, forfeited)
		assert.Equal(t, PlayerX, game.Winner)
		assert.Equal(t, OutcomeTimedOut, game.Outcome)
	})
}

func TestGame_RecordRatingDeltas(t *testing.T) {
	t.Run("Requires a finished game", func(t *testing.T) {
		game := ongoingGame()

		require.ErrorIs(t, game.RecordRatingDeltas(16, -16), ErrGameNotFinished)
		assert.False(t, game.HasRatingDeltas())
	})

	t.Run("Records once", func(t *testing.T) {
		game := ongoingGame()
		require.NoError(t, game.Resign(testPlayerX, testNow))

		require.NoError(t, game.RecordRatingDeltas(-16, 16))
		require.ErrorIs(t, game.RecordRatingDeltas(-1, 1), ErrRatingsAlreadyRecorded)

		snapshot := game.Snapshot(testNow)
		require.NotNil(t, snapshot.PlayerX.RatingDelta)
		assert.Equal(t, -16, *snapshot.PlayerX.RatingDelta)
		assert.Equal(t, 16, *snapshot.PlayerO.RatingDelta)
		assert.True(t, snapshot.GameOver)
	})
}

func TestGame_Snapshot(t *testing.T) {
	// Given: a game where X played once
	game := newTestGame()
	require.NoError(t, game.ApplyMove(0, 8, testPlayerX, testNow))

	// When: O has been thinking for a minute
	snapshot := game.Snapshot(testNow.Add(time.Minute))

	// Then: the view is derived from the game
	assert.Equal(t, PlayerO, snapshot.CurrentPlayer)
	require.NotNil(t, snapshot.NextBoard)
	assert.Equal(t, 8, *snapshot.NextBoard)
	assert.Equal(t, int64(360), snapshot.PlayerX.TimeRemaining)
	assert.Equal(t, int64(300), snapshot.PlayerO.TimeRemaining)
	assert.Equal(t, ResultNone, snapshot.MetaBoard[0])
	assert.False(t, snapshot.GameOver)
	assert.Nil(t, snapshot.PlayerX.RatingDelta)
}
