package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMark       = errors.New("unknown mark")
	ErrUnknownFirstMover = errors.New("unknown first mover")
	ErrUnknownOutcome    = errors.New("unknown outcome")
)

// Mark is the occupant of a single cell.
type Mark uint8

const (
	MarkEmpty Mark = iota
	MarkHuman
	MarkAutomated
)

const (
	PlayerX   = "X"
	PlayerO   = "O"
	EmptyCell = ""
)

func (that Mark) String() string {
	switch that {
	case MarkHuman:
		return PlayerX
	case MarkAutomated:
		return PlayerO
	default:
		return EmptyCell
	}
}

func (that Mark) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Mark) UnmarshalText(text []byte) error {
	switch string(text) {
	case EmptyCell:
		*that = MarkEmpty
	case PlayerX:
		*that = MarkHuman
	case PlayerO:
		*that = MarkAutomated
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMark, text)
	}

	return nil
}

// FirstMover decides whose turn it is for the whole round.
type FirstMover uint8

const (
	FirstMoverUnset FirstMover = iota
	FirstMoverHuman
	FirstMoverAutomated
)

func (that FirstMover) String() string {
	switch that {
	case FirstMoverHuman:
		return "human"
	case FirstMoverAutomated:
		return "automated"
	default:
		return ""
	}
}

func (that FirstMover) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *FirstMover) UnmarshalText(text []byte) error {
	switch string(text) {
	case "":
		*that = FirstMoverUnset
	case "human":
		*that = FirstMoverHuman
	case "automated":
		*that = FirstMoverAutomated
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFirstMover, text)
	}

	return nil
}

// Outcome is terminal once it leaves OutcomeInProgress.
type Outcome uint8

const (
	OutcomeInProgress Outcome = iota
	OutcomeHumanWin
	OutcomeAutomatedWin
	OutcomeDraw
)

const (
	StatusOngoing      = "in_progress"
	StatusHumanWin     = "human_win"
	StatusAutomatedWin = "automated_win"
	StatusDraw         = "draw"
)

func (that Outcome) String() string {
	switch that {
	case OutcomeHumanWin:
		return StatusHumanWin
	case OutcomeAutomatedWin:
		return StatusAutomatedWin
	case OutcomeDraw:
		return StatusDraw
	default:
		return StatusOngoing
	}
}

func (that Outcome) IsFinished() bool {
	return that != OutcomeInProgress
}

func (that Outcome) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case StatusOngoing:
		*that = OutcomeInProgress
	case StatusHumanWin:
		*that = OutcomeHumanWin
	case StatusAutomatedWin:
		*that = OutcomeAutomatedWin
	case StatusDraw:
		*that = OutcomeDraw
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, text)
	}

	return nil
}
