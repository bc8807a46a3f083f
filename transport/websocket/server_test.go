package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-engine/internal/usecase"
)

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func (that *memorySessions) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = *session

	return nil
}

func (that *memorySessions) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return &entity.Session{}, apperror.ErrSessionNotFound
	}

	return &session, nil
}

func (that *memorySessions) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, id)

	return nil
}

func dial(t *testing.T, server *httptest.Server, header http.Header) (*websocket.Conn, *http.Response) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn, resp
}

// readUntil skips pushed events until a message with action arrives.
func readUntil(t *testing.T, conn *websocket.Conn, action string) ResponsePayload {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var message Message
		require.NoError(t, conn.ReadJSON(&message))

		if message.Action != action {
			continue
		}

		var payload ResponsePayload
		require.NoError(t, json.Unmarshal(message.Payload, &payload))

		return payload
	}
}

func send(t *testing.T, conn *websocket.Conn, action, payload string) {
	t.Helper()

	message := Message{Action: action}
	if payload != "" {
		message.Payload = json.RawMessage(payload)
	}

	require.NoError(t, conn.WriteJSON(message))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := usecase.NewSessionManager(logger, &memorySessions{sessions: map[string]entity.Session{}})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := httptest.NewServer(New(logger, manager, []string{"https://play.example.com"}).Handler(ctx))
	t.Cleanup(server.Close)

	return server
}

func TestServer_Round(t *testing.T) {
	server := newTestServer(t)

	// Given: a connection without a session cookie
	conn, resp := dial(t, server, nil)

	// Then: a session is created and returned in a cookie
	connected := readUntil(t, conn, actionConnect)
	require.NotNil(t, connected.State)
	require.NotEmpty(t, connected.State.SessionID)
	require.NotEmpty(t, resp.Cookies())
	assert.Equal(t, connected.State.SessionID, resp.Cookies()[0].Value)

	// When: the automated player is chosen to move first
	send(t, conn, actionFirstMover, `{"first_mover":"automated"}`)

	// Then: the opening move is pushed as an event and included in the reply
	event := readUntil(t, conn, actionEvent)
	require.NotNil(t, event.Event)
	assert.Equal(t, tictactoe.EventFirstMoverChosen, event.Event.Kind)

	event = readUntil(t, conn, actionEvent)
	require.NotNil(t, event.Event)
	assert.Equal(t, tictactoe.EventMoveApplied, event.Event.Kind)
	assert.Equal(t, entity.MarkAutomated, event.Event.Mark)

	reply := readUntil(t, conn, actionFirstMover)
	require.NotNil(t, reply.State)
	assert.Equal(t, []int{0}, reply.State.AutomatedMoves)

	// When: the human moves
	send(t, conn, actionMove, `{"cell":4}`)

	// Then: the reply holds both moves
	reply = readUntil(t, conn, actionMove)
	require.NotNil(t, reply.State)
	assert.Equal(t, []int{4}, reply.State.HumanMoves)
	assert.Len(t, reply.State.AutomatedMoves, 2)

	// When: starting a new round
	send(t, conn, actionNewRound, "")

	// Then: the board is empty
	reply = readUntil(t, conn, actionNewRound)
	require.NotNil(t, reply.State)
	assert.Equal(t, entity.Board{}, reply.State.Board)
	assert.Equal(t, entity.FirstMoverUnset, reply.State.FirstMover)
}

func TestServer_ReconnectKeepsSession(t *testing.T) {
	server := newTestServer(t)

	// Given: a session with a chosen first mover
	conn, _ := dial(t, server, nil)
	first := readUntil(t, conn, actionConnect)
	send(t, conn, actionFirstMover, `{"first_mover":"human"}`)
	readUntil(t, conn, actionFirstMover)

	// When: reconnecting with the session cookie
	header := http.Header{}
	header.Add("Cookie", sessionCookie+"="+first.State.SessionID)
	again, _ := dial(t, server, header)

	// Then: the same round is restored
	connected := readUntil(t, again, actionConnect)
	require.NotNil(t, connected.State)
	assert.Equal(t, first.State.SessionID, connected.State.SessionID)
	assert.Equal(t, entity.FirstMoverHuman, connected.State.FirstMover)
}

func TestServer_Errors(t *testing.T) {
	server := newTestServer(t)

	conn, _ := dial(t, server, nil)
	readUntil(t, conn, actionConnect)

	tests := []struct {
		name    string
		action  string
		payload string
	}{
		{name: "Unknown action", action: "game:leave", payload: ""},
		{name: "Invalid payload", action: actionMove, payload: `"cell"`},
		{name: "Missing cell", action: actionMove, payload: `{}`},
		{name: "Missing first mover", action: actionFirstMover, payload: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.action, tt.payload)

			reply := readUntil(t, conn, actionError)

			assert.Contains(t, reply.Error, tt.action)
		})
	}
}

func TestServer_CheckOrigin(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name     string
		origin   string
		accepted bool
	}{
		{name: "No origin", origin: "", accepted: true},
		{name: "Same host", origin: server.URL, accepted: true},
		{name: "Allowed origin", origin: "https://play.example.com", accepted: true},
		{name: "Allowed origin in other case", origin: "https://PLAY.example.com", accepted: true},
		{name: "Foreign origin", origin: "https://evil.example.com", accepted: false},
		{name: "Allowed host on other scheme", origin: "http://play.example.com", accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a handshake from the origin
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}

			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

			// When: dialing
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				defer conn.Close()
			}
			if resp != nil && resp.Body != nil {
				defer resp.Body.Close()
			}

			// Then: only trusted origins get a connection
			if tt.accepted {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
