package websocket

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

func (that *Server) handleFirstMover(ctx context.Context, c *client, payload *RequestPayload) (entity.Snapshot, error) {
	if payload.FirstMover == entity.FirstMoverUnset {
		return entity.Snapshot{}, apperror.ErrInvalidFirstMover
	}

	state, err := that.sessions.ChooseFirstMover(ctx, c.sessionID, payload.FirstMover)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to choose first mover: %w", err)
	}

	return state, nil
}

func (that *Server) handleMove(ctx context.Context, c *client, payload *RequestPayload) (entity.Snapshot, error) {
	if payload.Cell == nil || !entity.IsValidCell(*payload.Cell) {
		return entity.Snapshot{}, apperror.ErrInvalidCell
	}

	state, err := that.sessions.SubmitHumanMove(ctx, c.sessionID, *payload.Cell)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to make turn: %w", err)
	}

	return state, nil
}

func (that *Server) handleNewRound(ctx context.Context, c *client, _ *RequestPayload) (entity.Snapshot, error) {
	state, err := that.sessions.NewRound(ctx, c.sessionID)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to start new round: %w", err)
	}

	return state, nil
}

func (that *Server) handleRestart(ctx context.Context, c *client, _ *RequestPayload) (entity.Snapshot, error) {
	state, err := that.sessions.RestartRound(ctx, c.sessionID)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("failed to restart round: %w", err)
	}

	return state, nil
}
