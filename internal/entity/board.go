package entity

import (
	"fmt"
	"strings"
)

const CellCount = 9

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

// Board is derived from the two move sequences and never stored on its own.
type Board [CellCount]Mark

// BoardFrom builds the board for the given move sequences.
// It panics if a cell is out of range or claimed by both players: callers own that invariant.
func BoardFrom(humanMoves, automatedMoves []int) Board {
	var board Board

	for _, cell := range humanMoves {
		board.mustClaim(cell, MarkHuman)
	}

	for _, cell := range automatedMoves {
		board.mustClaim(cell, MarkAutomated)
	}

	return board
}

func (that *Board) mustClaim(cell int, mark Mark) {
	if !IsValidCell(cell) {
		panic(fmt.Sprintf("board: cell %d out of range", cell))
	}

	if that[cell] != MarkEmpty {
		panic(fmt.Sprintf("board: cell %d claimed twice (%s, %s)", cell, that[cell], mark))
	}

	that[cell] = mark
}

func IsValidCell(cell int) bool {
	return cell >= 0 && cell < CellCount
}

// Winner returns the mark that completed a line, or MarkEmpty.
func (that Board) Winner() Mark {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != MarkEmpty && a == b && b == c {
			return a
		}
	}

	return MarkEmpty
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == MarkEmpty {
			return false
		}
	}

	return true
}

// IsTerminal reports whether the board has a winner or no empty cells left.
func (that Board) IsTerminal() bool {
	return that.Winner() != MarkEmpty || that.IsFull()
}

func (that Board) EmptyCells() []int {
	return that.Cells(MarkEmpty)
}

// Cells returns the indexes holding mark in ascending order.
func (that Board) Cells(mark Mark) []int {
	cells := make([]int, 0, CellCount)
	for i, cell := range that {
		if cell == mark {
			cells = append(cells, i)
		}
	}

	return cells
}

// Place and Undo bracket a provisional move during search.
func (that *Board) Place(cell int, mark Mark) {
	that[cell] = mark
}

func (that *Board) Undo(cell int) {
	that[cell] = MarkEmpty
}

func (that Board) String() string {
	var sb strings.Builder

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			mark := that[row*3+col].String()
			if mark == EmptyCell {
				mark = "."
			}
			sb.WriteString(mark)
		}

		if row < 2 {
			sb.WriteByte('/')
		}
	}

	return sb.String()
}
