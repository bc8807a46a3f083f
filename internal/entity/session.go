package entity

// ScoreTally survives round resets; only a new session clears it.
type ScoreTally struct {
	HumanWins     int `json:"human_wins"`
	AutomatedWins int `json:"automated_wins"`
}

// Session is the persisted record of one player's tally.
type Session struct {
	ID    string     `json:"id"`
	Score ScoreTally `json:"score"`
}

// Snapshot holds the read-only observables of a round.
type Snapshot struct {
	SessionID      string     `json:"session_id,omitempty"`
	Board          Board      `json:"board"`
	HumanMoves     []int      `json:"human_moves"`
	AutomatedMoves []int      `json:"automated_moves"`
	FirstMover     FirstMover `json:"first_mover"`
	Outcome        Outcome    `json:"outcome"`
	Score          ScoreTally `json:"score"`
	HumansTurn     bool       `json:"humans_turn"`
}
