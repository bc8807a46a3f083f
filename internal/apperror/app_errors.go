package apperror

import "errors"

var (
	ErrGameFinished       = errors.New("round is already finished")
	ErrGameIsNotStarted   = errors.New("first mover is not chosen")
	ErrFirstMoverIsChosen = errors.New("first mover is already chosen")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrCellOccupied       = errors.New("cell is already occupied")
	ErrInvalidCell        = errors.New("invalid cell index")
	ErrInvalidFirstMover  = errors.New("invalid first mover")
	ErrSessionNotFound    = errors.New("session not found")
)
