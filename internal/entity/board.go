package entity

import (
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
)

// Mark is the content of a single cell.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

// Result is the resolved outcome of a board.
type Result string

const (
	ResultNone Result = ""
	ResultX    Result = "X"
	ResultO    Result = "O"
	ResultTie  Result = "-"
)

const CellsPerBoard = 9

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Opponent returns the other mark.
func (m Mark) Opponent() Mark {
	if m == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (m Mark) IsPlayer() bool {
	return m == PlayerX || m == PlayerO
}

func (m Mark) result() Result {
	switch m {
	case PlayerX:
		return ResultX
	case PlayerO:
		return ResultO
	default:
		return ResultNone
	}
}

// Mark returns the winning mark of a resolved result, or EmptyCell for none and tie.
func (r Result) Mark() Mark {
	switch r {
	case ResultX:
		return PlayerX
	case ResultO:
		return PlayerO
	default:
		return EmptyCell
	}
}

// Board is one 3x3 grid. The winner is always derived from the cells.
type Board [CellsPerBoard]Mark

func isValidIndex(i int) bool {
	return i >= 0 && i < CellsPerBoard
}

// Set places mark on an empty cell.
func (that *Board) Set(position int, mark Mark) error {
	if !isValidIndex(position) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidPosition, position)
	}

	if that[position] != EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, position)
	}

	that[position] = mark

	return nil
}

func (that *Board) Cell(position int) Mark {
	if !isValidIndex(position) {
		return EmptyCell
	}
	return that[position]
}

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func (that *Board) Winner() Result {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a.result()
		}
	}

	// the board stays open until every cell is filled
	if that.IsFull() {
		return ResultTie
	}

	return ResultNone
}
