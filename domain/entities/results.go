package entities

// MatchOutcome records how a finished game counts toward a player's
// statistics
type MatchOutcome string

const (
	OutcomeWin  MatchOutcome = "win"
	OutcomeLoss MatchOutcome = "loss"
	OutcomeDraw MatchOutcome = "draw"
)

// PotShare is one recipient's cut of a settled pot
type PotShare struct {
	UserID int64
	Amount int64
}

// MoveResult describes what a move submission did to the room
type MoveResult struct {
	Room      *Room
	Applied   bool   // the move itself was placed on the board
	Forfeited bool   // the mover missed the deadline and lost instead
	Finished  bool   // the game reached a terminal position
	WinnerID  *int64 // nil while playing or on a draw
}

// RematchResult describes the outcome of a rematch request
type RematchResult struct {
	Room     *Room
	Accepted bool // false while waiting for the other player
}
