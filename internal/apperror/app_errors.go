package apperror

import "errors"

// move validation.
var (
	ErrInvalidPosition  = errors.New("invalid board or cell index")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrBoardCompleted   = errors.New("board already completed")
	ErrWrongBoard       = errors.New("must play in the indicated board")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrNotAParticipant  = errors.New("player is not a participant of this game")
	ErrOnlyPlayerXReady = errors.New("only player X can signal ready")
)

// matchmaking.
var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNotInQueue    = errors.New("player not in matchmaking")
)

// lookup and terminal state.
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrGameFinished   = errors.New("game is already finished")
)

// profiles.
var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidLevel    = errors.New("invalid player level")
	ErrInvalidProfile  = errors.New("invalid profile field")
)

// IsValidation reports whether err rejects a single request without touching any state.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidPosition, ErrCellOccupied, ErrBoardCompleted, ErrWrongBoard,
		ErrNotYourTurn, ErrNotAParticipant, ErrOnlyPlayerXReady,
		ErrUnknownPlayer, ErrNotInQueue, ErrGameFinished,
		ErrUsernameTaken, ErrInvalidUsername, ErrInvalidLevel, ErrInvalidProfile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
