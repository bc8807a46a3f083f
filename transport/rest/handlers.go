package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

type sessionUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error)
	State(ctx context.Context, id string) (entity.Snapshot, error)

	ChooseFirstMover(ctx context.Context, id string, who entity.FirstMover) (entity.Snapshot, error)
	SubmitHumanMove(ctx context.Context, id string, cell int) (entity.Snapshot, error)
	NewRound(ctx context.Context, id string) (entity.Snapshot, error)
	RestartRound(ctx context.Context, id string) (entity.Snapshot, error)
	EndSession(ctx context.Context, id string) error
}

type firstMoverRequest struct {
	FirstMover entity.FirstMover `json:"first_mover"`
}

type moveRequest struct {
	Cell *int `json:"cell"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handlers struct {
	logger   *slog.Logger
	sessions sessionUseCase
}

func NewHandlers(logger *slog.Logger, sessions sessionUseCase) *Handlers {
	return &Handlers{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
	}
}

func PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.sessions.GetOrCreateSession(r.Context(), "")
	that.respond(w, "CreateSession", http.StatusCreated, snapshot, err)
}

func (that *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.sessions.State(r.Context(), chi.URLParam(r, "sessionID"))
	that.respond(w, "GetSession", http.StatusOK, snapshot, err)
}

func (that *Handlers) ChooseFirstMover(w http.ResponseWriter, r *http.Request) {
	var req firstMoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid first mover"})
		return
	}

	if req.FirstMover == entity.FirstMoverUnset {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apperror.ErrInvalidFirstMover.Error()})
		return
	}

	snapshot, err := that.sessions.ChooseFirstMover(r.Context(), chi.URLParam(r, "sessionID"), req.FirstMover)
	that.respond(w, "ChooseFirstMover", http.StatusOK, snapshot, err)
}

func (that *Handlers) SubmitMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cell == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cell is required"})
		return
	}

	if !entity.IsValidCell(*req.Cell) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apperror.ErrInvalidCell.Error()})
		return
	}

	snapshot, err := that.sessions.SubmitHumanMove(r.Context(), chi.URLParam(r, "sessionID"), *req.Cell)
	that.respond(w, "SubmitMove", http.StatusOK, snapshot, err)
}

func (that *Handlers) NewRound(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.sessions.NewRound(r.Context(), chi.URLParam(r, "sessionID"))
	that.respond(w, "NewRound", http.StatusOK, snapshot, err)
}

func (that *Handlers) RestartRound(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.sessions.RestartRound(r.Context(), chi.URLParam(r, "sessionID"))
	that.respond(w, "RestartRound", http.StatusOK, snapshot, err)
}

// EndSession drops the session together with its tally.
func (that *Handlers) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := that.sessions.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		that.writeError(w, "EndSession", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Handlers) respond(w http.ResponseWriter, method string, status int, snapshot entity.Snapshot, err error) {
	if err != nil {
		that.writeError(w, method, err)
		return
	}

	writeJSON(w, status, snapshot)
}

func (that *Handlers) writeError(w http.ResponseWriter, method string, err error) {
	if errors.Is(err, apperror.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: apperror.ErrSessionNotFound.Error()})
		return
	}

	that.logger.Error("request failed", "method", method, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
