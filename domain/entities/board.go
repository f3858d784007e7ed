package entities

// Mark identifies which seat owns a cell on the board
type Mark int

const (
	MarkNone  Mark = 0
	MarkHost  Mark = 1
	MarkGuest Mark = 2
)

// Board is the domain payload for the example game (tic-tac-toe). The
// engine treats it as the room's opaque game state: it only asks
// whether a move is legal and whether the position is terminal. Cells
// are indexed 0..8, row-major.
type Board struct {
	Cells [9]Mark `json:"cells"`
}

// NewBoard returns an empty board
func NewBoard() Board {
	return Board{}
}

// Apply places mark at cell. It fails with ErrInvalidMove when the
// cell is out of range or already occupied.
func (b *Board) Apply(cell int, mark Mark) error {
	if cell < 0 || cell >= len(b.Cells) {
		return ErrInvalidMove
	}
	if b.Cells[cell] != MarkNone {
		return ErrInvalidMove
	}
	b.Cells[cell] = mark
	return nil
}

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// Winner returns the mark holding a full line, or MarkNone
func (b *Board) Winner() Mark {
	for _, line := range winLines {
		m := b.Cells[line[0]]
		if m != MarkNone && m == b.Cells[line[1]] && m == b.Cells[line[2]] {
			return m
		}
	}
	return MarkNone
}

// IsFull reports whether no empty cell remains
func (b *Board) IsFull() bool {
	for _, c := range b.Cells {
		if c == MarkNone {
			return false
		}
	}
	return true
}

// IsTerminal reports whether the position ends the game (win or draw)
func (b *Board) IsTerminal() bool {
	return b.Winner() != MarkNone || b.IsFull()
}
