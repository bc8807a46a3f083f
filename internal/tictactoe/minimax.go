package tictactoe

import (
	"math"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

const winScore = 10

// Strategy picks the automated player's next cell.
type Strategy interface {
	BestMove(board entity.Board) (cell int, ok bool)
}

// Minimax plays perfectly by searching the whole game tree.
type Minimax struct{}

func NewMinimax() *Minimax {
	return &Minimax{}
}

func (that *Minimax) BestMove(board entity.Board) (int, bool) {
	if board.IsTerminal() {
		return 0, false
	}

	_, cell := search(&board, 0, true)

	return cell, cell >= 0
}

// search returns the score of board and the cell that reaches it, -1 on terminal boards.
// Faster automated wins and slower human wins score higher.
func search(board *entity.Board, depth int, maximizing bool) (int, int) {
	switch board.Winner() {
	case entity.MarkAutomated:
		return winScore - depth, -1
	case entity.MarkHuman:
		return depth - winScore, -1
	}

	if board.IsFull() {
		return 0, -1
	}

	mark, bestScore := entity.MarkHuman, math.MaxInt
	if maximizing {
		mark, bestScore = entity.MarkAutomated, math.MinInt
	}

	bestCell := -1
	for cell := range board {
		if board[cell] != entity.MarkEmpty {
			continue
		}

		score := tryMove(board, cell, mark, depth, maximizing)

		// strict comparison keeps the lowest cell on ties
		if (maximizing && score > bestScore) || (!maximizing && score < bestScore) {
			bestScore, bestCell = score, cell
		}
	}

	return bestScore, bestCell
}

func tryMove(board *entity.Board, cell int, mark entity.Mark, depth int, maximizing bool) int {
	board.Place(cell, mark)
	defer board.Undo(cell)

	score, _ := search(board, depth+1, !maximizing)

	return score
}
