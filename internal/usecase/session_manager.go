package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/tictactoe"
)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

// session is one live engine. mu is held from an operation until its tally is stored,
// so writes for one session reach storage in the order they happened.
type session struct {
	engine *tictactoe.Engine

	mu          sync.Mutex
	closed      bool
	subscribers int
	lastAccess  time.Time
}

// SessionManager keeps one engine per session and writes the tally through to
// storage whenever a round changes it.
type SessionManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	engineOpts  []tictactoe.Option
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionManager(logger *slog.Logger, sessionRepo sessionRepo, engineOpts ...tictactoe.Option) *SessionManager {
	return &SessionManager{
		logger:      logger.With("component", "session_manager"),
		sessionRepo: sessionRepo,
		engineOpts:  engineOpts,
		now:         time.Now,

		sessions: make(map[string]*session),
	}
}

// GetOrCreateSession returns the session state. Session ids are only issued here: an
// empty or unknown id gets a new session under a generated id.
func (that *SessionManager) GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error) {
	if id != "" {
		s, err := that.lockSession(ctx, id)
		if err == nil {
			defer s.mu.Unlock()
			return s.engine.Snapshot(), nil
		}

		if !errors.Is(err, apperror.ErrSessionNotFound) {
			return entity.Snapshot{}, fmt.Errorf("failed to get or create session: %w", err)
		}

		that.logger.Debug("unknown session id, issuing a new one", "session", id)
	}

	s, err := that.createSession(ctx, uuid.NewString())
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to get or create session: %w", err)
	}

	return s.engine.Snapshot(), nil
}

func (that *SessionManager) State(ctx context.Context, id string) (entity.Snapshot, error) {
	s, err := that.lockSession(ctx, id)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to get session: %w", err)
	}
	defer s.mu.Unlock()

	return s.engine.Snapshot(), nil
}

func (that *SessionManager) ChooseFirstMover(ctx context.Context, id string, who entity.FirstMover) (entity.Snapshot, error) {
	return that.apply(ctx, id, func(engine *tictactoe.Engine) {
		engine.ChooseFirstMover(who)
	})
}

func (that *SessionManager) SubmitHumanMove(ctx context.Context, id string, cell int) (entity.Snapshot, error) {
	return that.apply(ctx, id, func(engine *tictactoe.Engine) {
		engine.SubmitHumanMove(cell)
	})
}

func (that *SessionManager) NewRound(ctx context.Context, id string) (entity.Snapshot, error) {
	return that.apply(ctx, id, func(engine *tictactoe.Engine) {
		engine.NewRound()
	})
}

func (that *SessionManager) RestartRound(ctx context.Context, id string) (entity.Snapshot, error) {
	return that.apply(ctx, id, func(engine *tictactoe.Engine) {
		engine.RestartRound()
	})
}

// EndSession drops the session with its tally. The next request under id finds nothing.
func (that *SessionManager) EndSession(ctx context.Context, id string) error {
	that.mu.RLock()
	s, live := that.sessions[id]
	that.mu.RUnlock()

	if live {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	err := that.sessionRepo.DeleteByID(ctx, id)
	if err != nil && !(live && errors.Is(err, apperror.ErrSessionNotFound)) {
		return fmt.Errorf("failed to end session: %w", err)
	}

	if live {
		s.closed = true

		that.mu.Lock()
		if that.sessions[id] == s {
			delete(that.sessions, id)
		}
		that.mu.Unlock()
	}

	that.logger.Info("session ended", "session", id)

	return nil
}

// Subscribe attaches listener to the session engine and returns the function removing it.
// A session with listeners is never evicted.
func (that *SessionManager) Subscribe(ctx context.Context, id string, listener tictactoe.Listener) (func(), error) {
	s, err := that.lockSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	defer s.mu.Unlock()

	s.subscribers++
	unsubscribe := s.engine.Subscribe(listener)

	var once sync.Once

	return func() {
		once.Do(func() {
			unsubscribe()

			s.mu.Lock()
			s.subscribers--
			s.lastAccess = that.now()
			s.mu.Unlock()
		})
	}, nil
}

// RunEviction drops engines idle for longer than idleTimeout every interval until ctx is done.
// Evicted sessions are reloaded from storage on their next request. Zero durations disable it.
func (that *SessionManager) RunEviction(ctx context.Context, idleTimeout, interval time.Duration) {
	if idleTimeout <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.evictIdle(idleTimeout)
		}
	}
}

func (that *SessionManager) evictIdle(idleTimeout time.Duration) int {
	deadline := that.now().Add(-idleTimeout)

	that.mu.Lock()
	defer that.mu.Unlock()

	var evicted int
	for id, s := range that.sessions {
		// busy sessions are in use, hence not idle
		if !s.mu.TryLock() {
			continue
		}

		if s.subscribers == 0 && !s.lastAccess.After(deadline) {
			s.closed = true
			delete(that.sessions, id)
			evicted++
		}

		s.mu.Unlock()
	}

	if evicted > 0 {
		that.logger.Debug("idle sessions evicted", "count", evicted, "live", len(that.sessions))
	}

	return evicted
}

func (that *SessionManager) apply(ctx context.Context, id string, operation func(engine *tictactoe.Engine)) (entity.Snapshot, error) {
	s, err := that.lockSession(ctx, id)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to get session: %w", err)
	}
	defer s.mu.Unlock()

	before := s.engine.Score()
	operation(s.engine)
	snapshot := s.engine.Snapshot()

	if snapshot.Score != before {
		if err = that.saveScore(ctx, id, snapshot.Score); err != nil {
			return entity.Snapshot{}, err
		}
	}

	return snapshot, nil
}

// lockSession returns the live session for id with its mutex held.
func (that *SessionManager) lockSession(ctx context.Context, id string) (*session, error) {
	for {
		s, err := that.getSession(ctx, id)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if !s.closed {
			s.lastAccess = that.now()
			return s, nil
		}
		s.mu.Unlock()
	}
}

func (that *SessionManager) getSession(ctx context.Context, id string) (*session, error) {
	that.mu.RLock()
	s, ok := that.sessions[id]
	that.mu.RUnlock()

	if ok {
		return s, nil
	}

	stored, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	return that.register(id, stored.Score), nil
}

func (that *SessionManager) createSession(ctx context.Context, id string) (*session, error) {
	stored := &entity.Session{ID: id}
	if err := that.sessionRepo.CreateOrUpdate(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	that.logger.Info("session created", "session", id)

	return that.register(id, stored.Score), nil
}

// register keeps the first session stored for id so concurrent loads share one engine.
func (that *SessionManager) register(id string, score entity.ScoreTally) *session {
	that.mu.Lock()
	defer that.mu.Unlock()

	if s, ok := that.sessions[id]; ok {
		return s
	}

	opts := make([]tictactoe.Option, 0, len(that.engineOpts)+3)
	opts = append(opts, tictactoe.WithSessionID(id), tictactoe.WithLogger(that.logger.With("session", id)))
	opts = append(opts, that.engineOpts...)
	opts = append(opts, tictactoe.WithScore(score))

	s := &session{
		engine:     tictactoe.NewEngine(opts...),
		lastAccess: that.now(),
	}
	that.sessions[id] = s

	return s
}

func (that *SessionManager) saveScore(ctx context.Context, id string, score entity.ScoreTally) error {
	stored := &entity.Session{ID: id, Score: score}
	if err := that.sessionRepo.CreateOrUpdate(ctx, stored); err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}

	that.logger.Debug("score saved", "session", id, "human_wins", score.HumanWins, "automated_wins", score.AutomatedWins)

	return nil
}
