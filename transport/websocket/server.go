package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/tictactoe"
)

const (
	sessionCookie   = "user_session"
	sessionLifetime = 30 * 24 * time.Hour
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type sessionUseCase interface {
	GetOrCreateSession(ctx context.Context, id string) (entity.Snapshot, error)
	Subscribe(ctx context.Context, id string, listener tictactoe.Listener) (func(), error)

	ChooseFirstMover(ctx context.Context, id string, who entity.FirstMover) (entity.Snapshot, error)
	SubmitHumanMove(ctx context.Context, id string, cell int) (entity.Snapshot, error)
	NewRound(ctx context.Context, id string) (entity.Snapshot, error)
	RestartRound(ctx context.Context, id string) (entity.Snapshot, error)
}

type handlerFunc func(ctx context.Context, client *client, payload *RequestPayload) (entity.Snapshot, error)

type Server struct {
	logger   *slog.Logger
	sessions sessionUseCase
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

// client is one browser connection bound to a session.
type client struct {
	conn      *websocket.Conn
	sessionID string

	writeMu sync.Mutex
}

// New builds the server. Browsers may connect from the server's own host or from
// allowedOrigins, e.g. "https://play.example.com".
func New(logger *slog.Logger, sessions sessionUseCase, allowedOrigins []string) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		sessions: sessions,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionFirstMover] = server.handleFirstMover
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionNewRound] = server.handleNewRound
	server.handlers[actionRestart] = server.handleRestart

	return server
}

// checkOrigin rejects cross-site handshakes, since the session rides on a cookie.
// Requests without an Origin header do not come from a browser page and pass.
func checkOrigin(allowedOrigins []string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		if origin == "" {
			return true
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}

		if strings.EqualFold(parsed.Host, req.Host) {
			return true
		}

		return slices.ContainsFunc(allowedOrigins, func(allowed string) bool {
			return strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin)
		})
	}
}

func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - binds the request to a session and upgrades the connection.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	var sessionID string
	if cookie, err := req.Cookie(sessionCookie); err == nil {
		sessionID = cookie.Value
	}

	state, err := that.sessions.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		log.Error("failed to get or create session", "error", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	header := http.Header{}
	header.Add("Set-Cookie", (&http.Cookie{
		Name:    sessionCookie,
		Value:   state.SessionID,
		Expires: time.Now().Add(sessionLifetime),
		Path:    "/ws",
	}).String())

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	defer conn.Close()

	c := &client{conn: conn, sessionID: state.SessionID}
	log = log.With("session", c.sessionID)

	unsubscribe, err := that.sessions.Subscribe(ctx, c.sessionID, func(event tictactoe.Event) {
		if err := c.send(actionEvent, ResponsePayload{Event: &event}); err != nil {
			log.Warn("failed to push event", "error", err)
		}
	})
	if err != nil {
		log.Error("failed to subscribe to session", "error", err)
		return
	}

	defer unsubscribe()

	log.Info("WebSocket connection established")

	if err = c.send(actionConnect, ResponsePayload{State: &state}); err != nil {
		log.Error("failed to send session state", "error", err)
		return
	}

	if err = that.handleMessages(ctx, c); err != nil {
		log.Info("connection closed", "reason", err)
	}
}

// handleMessages - processes messages from the client until the connection closes.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := that.logger.With("method", "handleMessages", "session", c.sessionID)

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError(c, message.Action, "unknown action")
			continue
		}

		var payload RequestPayload
		if len(message.Payload) > 0 {
			if err := json.Unmarshal(message.Payload, &payload); err != nil {
				log.Warn("failed to unmarshal payload", "error", err)
				that.sendError(c, message.Action, "invalid payload")
				continue
			}
		}

		state, err := handler(ctx, c, &payload)
		if err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
			that.sendError(c, message.Action, err.Error())
			continue
		}

		if err = c.send(message.Action, ResponsePayload{State: &state}); err != nil {
			return fmt.Errorf("failed to send response: %w", err)
		}
	}
}

func (that *Server) sendError(c *client, action, text string) {
	if err := c.send(actionError, ResponsePayload{Error: action + ": " + text}); err != nil {
		that.logger.Warn("failed to send error", "session", c.sessionID, "error", err)
	}
}

func (that *client) send(action string, payload ResponsePayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
