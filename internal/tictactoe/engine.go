package tictactoe

import (
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

// Engine holds one human-versus-automated session. The two move sequences are the
// only source of truth for the board.
//
// Every operation runs to completion under the engine lock, including the search, so
// observers never see a half-applied move or a half-cleared round.
type Engine struct {
	sessionID string
	logger    *slog.Logger
	strategy  Strategy
	rand      *rand.Rand

	mu             sync.Mutex
	humanMoves     []int
	automatedMoves []int
	firstMover     entity.FirstMover
	outcome        entity.Outcome
	score          entity.ScoreTally
	pending        []Event

	listenersMu    sync.Mutex
	listeners      map[int]Listener
	nextListenerID int
}

type Option func(*Engine)

// WithSessionID tags snapshots with the session the engine belongs to.
func WithSessionID(id string) Option {
	return func(engine *Engine) {
		engine.sessionID = id
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) {
		engine.logger = logger
	}
}

func WithStrategy(strategy Strategy) Option {
	return func(engine *Engine) {
		engine.strategy = strategy
	}
}

// WithRand sets the source used when the strategy fails to pick a cell.
func WithRand(rnd *rand.Rand) Option {
	return func(engine *Engine) {
		engine.rand = rnd
	}
}

// WithScore restores a tally kept from an earlier process.
func WithScore(score entity.ScoreTally) Option {
	return func(engine *Engine) {
		engine.score = score
	}
}

func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		strategy:  NewMinimax(),
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint: gosec // it's ok
		listeners: make(map[int]Listener),
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.logger = engine.logger.With("component", "engine")

	return engine
}

// ChooseFirstMover starts a round. It is ignored unless the first mover is unset.
func (that *Engine) ChooseFirstMover(who entity.FirstMover) {
	that.do(func() {
		log := that.logger.With("method", "ChooseFirstMover", "who", who.String())

		if who != entity.FirstMoverHuman && who != entity.FirstMoverAutomated {
			log.Debug("first mover rejected", "reason", apperror.ErrInvalidFirstMover)
			return
		}

		if that.firstMover != entity.FirstMoverUnset {
			log.Debug("first mover rejected", "reason", apperror.ErrFirstMoverIsChosen)
			return
		}

		previous := that.firstMover
		that.firstMover = who
		that.emit(EventFirstMoverChosen, entity.MarkEmpty, 0)

		that.onFirstMoverTransition(previous, who)
	})
}

// SubmitHumanMove applies the human move and, if the round goes on, the automated reply.
// Illegal moves leave the state untouched and report false.
func (that *Engine) SubmitHumanMove(cell int) bool {
	var accepted bool

	that.do(func() {
		if err := that.validateHumanMove(cell); err != nil {
			that.logger.Debug("human move rejected", "cell", cell, "reason", err)
			return
		}

		accepted = true
		that.humanMoves = append(that.humanMoves, cell)
		that.emit(EventMoveApplied, entity.MarkHuman, cell)

		if that.resolve(that.board()) {
			return
		}

		that.performAutomatedMove()
	})

	return accepted
}

// NewRound clears the round and the first mover.
func (that *Engine) NewRound() {
	that.do(func() {
		that.clearRound()
		that.firstMover = entity.FirstMoverUnset
		that.emit(EventRoundReset, entity.MarkEmpty, 0)
	})
}

// RestartRound clears the round but keeps the first mover.
func (that *Engine) RestartRound() {
	that.do(func() {
		that.clearRound()
		that.emit(EventRoundReset, entity.MarkEmpty, 0)
		that.openRound()
	})
}

func (that *Engine) IsHumansTurn() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.isHumansTurn()
}

func (that *Engine) Board() entity.Board {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.board()
}

func (that *Engine) Outcome() entity.Outcome {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.outcome
}

func (that *Engine) Score() entity.ScoreTally {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.score
}

func (that *Engine) FirstMover() entity.FirstMover {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.firstMover
}

func (that *Engine) Snapshot() entity.Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshot()
}

// do runs fn under the engine lock and hands the events it produced to listeners
// once the lock is released.
func (that *Engine) do(fn func()) {
	that.mu.Lock()
	fn()
	events := that.pending
	that.pending = nil
	that.mu.Unlock()

	that.dispatch(events)
}

// onFirstMoverTransition is the only place a first-mover change can start a move.
func (that *Engine) onFirstMoverTransition(from, to entity.FirstMover) {
	if from == to {
		return
	}

	that.openRound()
}

// openRound plays the automated opening move when the automated player starts an empty round.
func (that *Engine) openRound() {
	if that.firstMover != entity.FirstMoverAutomated || that.outcome.IsFinished() {
		return
	}

	if len(that.humanMoves) != 0 || len(that.automatedMoves) != 0 {
		return
	}

	that.logger.Debug("automated player opens the round")
	that.performAutomatedMove()
}

func (that *Engine) performAutomatedMove() {
	log := that.logger.With("method", "performAutomatedMove")

	if that.outcome.IsFinished() {
		return
	}

	board := that.board()
	if that.resolve(board) {
		return
	}

	cell, ok := that.strategy.BestMove(board)
	if !ok || !entity.IsValidCell(cell) || board[cell] != entity.MarkEmpty {
		log.Warn("strategy returned no usable cell, picking at random", "board", board.String())

		empty := board.EmptyCells()
		if len(empty) == 0 {
			return
		}
		cell = empty[that.rand.Intn(len(empty))]
	}

	that.automatedMoves = append(that.automatedMoves, cell)
	that.emit(EventMoveApplied, entity.MarkAutomated, cell)

	log.Debug("automated move applied", "cell", cell)

	that.resolve(that.board())
}

// resolve settles the outcome for a terminal board and reports whether the round is over.
func (that *Engine) resolve(board entity.Board) bool {
	switch board.Winner() {
	case entity.MarkHuman:
		that.outcome = entity.OutcomeHumanWin
		that.score.HumanWins++
	case entity.MarkAutomated:
		that.outcome = entity.OutcomeAutomatedWin
		that.score.AutomatedWins++
	default:
		if !board.IsFull() {
			return false
		}
		that.outcome = entity.OutcomeDraw
	}

	that.logger.Info("round finished", "outcome", that.outcome.String(), "board", board.String())
	that.emit(EventRoundFinished, entity.MarkEmpty, 0)

	return true
}

func (that *Engine) validateHumanMove(cell int) error {
	if that.outcome.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.firstMover == entity.FirstMoverUnset {
		return apperror.ErrGameIsNotStarted
	}

	if !entity.IsValidCell(cell) {
		return apperror.ErrInvalidCell
	}

	if slices.Contains(that.humanMoves, cell) || slices.Contains(that.automatedMoves, cell) {
		return apperror.ErrCellOccupied
	}

	if !that.isHumansTurn() {
		return apperror.ErrNotYourTurn
	}

	return nil
}

func (that *Engine) isHumansTurn() bool {
	switch that.firstMover {
	case entity.FirstMoverHuman:
		return len(that.humanMoves) == len(that.automatedMoves)
	case entity.FirstMoverAutomated:
		return len(that.humanMoves) < len(that.automatedMoves)
	default:
		return false
	}
}

func (that *Engine) clearRound() {
	that.humanMoves = nil
	that.automatedMoves = nil
	that.outcome = entity.OutcomeInProgress
}

func (that *Engine) board() entity.Board {
	return entity.BoardFrom(that.humanMoves, that.automatedMoves)
}

func (that *Engine) snapshot() entity.Snapshot {
	return entity.Snapshot{
		SessionID:      that.sessionID,
		Board:          that.board(),
		HumanMoves:     append([]int{}, that.humanMoves...),
		AutomatedMoves: append([]int{}, that.automatedMoves...),
		FirstMover:     that.firstMover,
		Outcome:        that.outcome,
		Score:          that.score,
		HumansTurn:     that.isHumansTurn() && !that.outcome.IsFinished(),
	}
}
