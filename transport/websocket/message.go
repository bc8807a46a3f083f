package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/tictactoe"
)

const (
	actionConnect    = "connect"
	actionFirstMover = "round:first-mover"
	actionMove       = "round:move"
	actionNewRound   = "round:new"
	actionRestart    = "round:restart"
	actionEvent      = "round:event"
	actionError      = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	FirstMover entity.FirstMover `json:"first_mover,omitempty"`
	Cell       *int              `json:"cell,omitempty"`
}

type ResponsePayload struct {
	State *entity.Snapshot `json:"state,omitempty"`
	Event *tictactoe.Event `json:"event,omitempty"`
	Error string           `json:"error,omitempty"`
}
