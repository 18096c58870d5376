package entity

// MetaBoard is the grid of resolved sub-board outcomes. It is built from the
// boards on every read and is never stored.
type MetaBoard struct {
	cells [CellsPerBoard]Result
	full  [CellsPerBoard]bool
}

func NewMetaBoard(boards *[CellsPerBoard]Board) MetaBoard {
	var meta MetaBoard
	for i := range boards {
		meta.cells[i] = boards[i].Winner()
		meta.full[i] = boards[i].IsFull()
	}

	return meta
}

func (that MetaBoard) Cells() [CellsPerBoard]Result {
	return that.cells
}

func (that MetaBoard) Cell(i int) Result {
	if !isValidIndex(i) {
		return ResultNone
	}
	return that.cells[i]
}

// Winner checks the lines of the meta grid. Only won boards take part, a row of ties is not a win.
func (that MetaBoard) Winner() Result {
	for _, combo := range WinCombos {
		a, b, c := that.cells[combo[0]], that.cells[combo[1]], that.cells[combo[2]]
		if (a == ResultX || a == ResultO) && a == b && b == c {
			return a
		}
	}

	return ResultNone
}

func (that MetaBoard) IsBoardPlayable(i int) bool {
	if !isValidIndex(i) {
		return false
	}
	return that.cells[i] == ResultNone && !that.full[i]
}

func (that MetaBoard) IsFull() bool {
	for _, cell := range that.cells {
		if cell == ResultNone {
			return false
		}
	}

	return true
}
