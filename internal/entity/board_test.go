package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	h = MarkHuman
	a = MarkAutomated
	e = MarkEmpty
)

func TestBoardFrom(t *testing.T) {
	t.Run("Builds the board from both move sequences", func(t *testing.T) {
		// Given: disjoint move sequences
		humanMoves := []int{4, 0}
		automatedMoves := []int{8}

		// When: building the board
		board := BoardFrom(humanMoves, automatedMoves)

		// Then: every move should occupy its cell with the right mark
		expected := Board{
			h, e, e,
			e, h, e,
			e, e, a,
		}
		assert.Equal(t, expected, board)
	})

	t.Run("Empty sequences give an empty board", func(t *testing.T) {
		// When: building the board without moves
		board := BoardFrom(nil, nil)

		// Then: the board should be empty
		assert.Equal(t, Board{}, board)
		assert.Len(t, board.EmptyCells(), CellCount)
	})

	t.Run("Panics on overlapping sequences", func(t *testing.T) {
		// Then: claiming a cell twice is a programmer error
		assert.Panics(t, func() {
			BoardFrom([]int{0, 4}, []int{4})
		})
	})

	t.Run("Panics on cell out of range", func(t *testing.T) {
		assert.Panics(t, func() {
			BoardFrom([]int{9}, nil)
		})
		assert.Panics(t, func() {
			BoardFrom(nil, []int{-1})
		})
	})
}

func TestBoard_Winner(t *testing.T) {
	tests := []struct {
		name     string
		board    Board
		expected Mark
	}{
		{
			name: "Top row human",
			board: Board{
				h, h, h,
				a, a, e,
				e, e, e,
			},
			expected: MarkHuman,
		},
		{
			name: "Middle column automated",
			board: Board{
				h, a, e,
				h, a, e,
				e, a, h,
			},
			expected: MarkAutomated,
		},
		{
			name: "Anti-diagonal automated",
			board: Board{
				h, h, a,
				e, a, e,
				a, e, h,
			},
			expected: MarkAutomated,
		},
		{
			name: "Full board without a line",
			board: Board{
				h, a, h,
				h, a, a,
				a, h, h,
			},
			expected: MarkEmpty,
		},
		{
			name: "Ongoing game",
			board: Board{
				h, a, e,
				e, h, e,
				e, e, a,
			},
			expected: MarkEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: looking for a winner
			winner := tt.board.Winner()

			// Then: the mark of the completed line should be returned
			assert.Equal(t, tt.expected, winner)
		})
	}
}

func TestBoard_IsFull(t *testing.T) {
	t.Run("Full board", func(t *testing.T) {
		board := Board{h, a, h, h, a, a, a, h, h}

		assert.True(t, board.IsFull())
		assert.True(t, board.IsTerminal())
		assert.Empty(t, board.EmptyCells())
	})

	t.Run("Board with one empty cell", func(t *testing.T) {
		board := Board{h, a, h, h, a, a, a, h, e}

		assert.False(t, board.IsFull())
		assert.False(t, board.IsTerminal())
		assert.Equal(t, []int{8}, board.EmptyCells())
	})
}

// Walks every board reachable through legal play and checks the
// board model against a brute-force look at the eight lines.
func TestBoard_ReachablePositions(t *testing.T) {
	var visited map[Board]bool

	var walk func(humanMoves, automatedMoves []int, next Mark)
	walk = func(humanMoves, automatedMoves []int, next Mark) {
		board := BoardFrom(humanMoves, automatedMoves)
		if visited[board] {
			return
		}
		visited[board] = true

		// Then: at most one mark owns a complete line
		complete := map[Mark]bool{}
		for _, combo := range WinCombos {
			m := board[combo[0]]
			if m != MarkEmpty && m == board[combo[1]] && m == board[combo[2]] {
				complete[m] = true
			}
		}
		require.LessOrEqual(t, len(complete), 1, "board %s", board)

		winner := board.Winner()
		if len(complete) == 0 {
			require.Equal(t, MarkEmpty, winner)
		} else {
			require.True(t, complete[winner], "board %s", board)
		}

		// Then: extracting the sequences and rebuilding gives the same board
		require.Equal(t, board, BoardFrom(board.Cells(MarkHuman), board.Cells(MarkAutomated)))

		if board.IsTerminal() {
			return
		}

		for _, cell := range board.EmptyCells() {
			if next == MarkHuman {
				walk(append(append([]int{}, humanMoves...), cell), automatedMoves, MarkAutomated)
			} else {
				walk(humanMoves, append(append([]int{}, automatedMoves...), cell), MarkHuman)
			}
		}
	}

	for _, first := range []Mark{MarkHuman, MarkAutomated} {
		visited = map[Board]bool{}

		walk(nil, nil, first)

		// 5478 distinct positions, including the empty board
		assert.Len(t, visited, 5478)
	}
}

func TestBoard_PlaceUndo(t *testing.T) {
	// Given: an empty board
	var board Board

	// When: placing and then undoing a move
	board.Place(4, MarkAutomated)
	assert.Equal(t, MarkAutomated, board[4])
	board.Undo(4)

	// Then: the board should be empty again
	assert.Equal(t, Board{}, board)
}

func TestBoard_String(t *testing.T) {
	board := BoardFrom([]int{0, 4}, []int{2})

	assert.Equal(t, "X.O/.X./...", board.String())
}

func TestSnapshot_JSON(t *testing.T) {
	// Given: a snapshot of an ongoing round
	snapshot := Snapshot{
		Board:          BoardFrom([]int{0}, []int{4}),
		HumanMoves:     []int{0},
		AutomatedMoves: []int{4},
		FirstMover:     FirstMoverHuman,
		Outcome:        OutcomeInProgress,
		Score:          ScoreTally{HumanWins: 1},
		HumansTurn:     true,
	}

	// When: encoding it
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	// Then: marks and enums should be readable strings
	assert.JSONEq(t, `{
		"board": ["X", "", "", "", "O", "", "", "", ""],
		"human_moves": [0],
		"automated_moves": [4],
		"first_mover": "human",
		"outcome": "in_progress",
		"score": {"human_wins": 1, "automated_wins": 0},
		"humans_turn": true
	}`, string(data))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snapshot, decoded)
}

func TestFirstMover_UnmarshalText(t *testing.T) {
	t.Run("Known values", func(t *testing.T) {
		var who FirstMover

		require.NoError(t, who.UnmarshalText([]byte("automated")))
		assert.Equal(t, FirstMoverAutomated, who)

		require.NoError(t, who.UnmarshalText([]byte("human")))
		assert.Equal(t, FirstMoverHuman, who)
	})

	t.Run("Unknown value", func(t *testing.T) {
		var who FirstMover

		err := who.UnmarshalText([]byte("robot"))

		assert.ErrorIs(t, err, ErrUnknownFirstMover)
	})
}
