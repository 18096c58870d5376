package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/matchmaking"
)

const requestTimeout = 5 * time.Second

type gameService interface {
	GetGame(ctx context.Context, gameID string) (*entity.GameSnapshot, error)
	MakeMove(ctx context.Context, gameID, playerID string, boardIndex, position int) (*entity.GameSnapshot, error)
	Resign(ctx context.Context, gameID, playerID string) (*entity.GameSnapshot, error)
	Ready(ctx context.Context, gameID, playerID string) (*entity.GameSnapshot, error)
}

type matchmaker interface {
	Enqueue(ctx context.Context, playerID string) error
	Poll(ctx context.Context, playerID string) (*matchmaking.PollResult, error)
	Cancel(ctx context.Context, playerID string) bool
}

type playerService interface {
	GetPlayer(ctx context.Context, playerID string) (*entity.Player, error)
}

type Server struct {
	logger      *slog.Logger
	games       gameService
	matchmaking matchmaker
	players     playerService
	now         func() time.Time

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, message *Message, sender *client) error

	connectionsMutex sync.RWMutex
	connections      map[string]*client

	srvMutex sync.Mutex
	srv      *http.Server
	closed   bool
}

func New(logger *slog.Logger, games gameService, mm matchmaker, players playerService, allowedOrigins []string) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		games:       games,
		matchmaking: mm,
		players:     players,
		now:         time.Now,
		connections: make(map[string]*client),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	server.handlers = map[string]func(context.Context, *Message, *client) error{
		"connect":            server.handleConnect,
		"matchmaking:join":   server.handleMatchmakingJoin,
		"matchmaking:poll":   server.handleMatchmakingPoll,
		"matchmaking:cancel": server.handleMatchmakingCancel,
		"game:get":           server.handleGameGet,
		"game:move":          server.handleGameMove,
		"game:resign":        server.handleGameResign,
		"game:ready":         server.handleGameReady,
	}

	return server
}

// Handler returns the mux serving the /ws endpoint.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", that)

	return mux
}

// Start - starts WebSocket server. It returns at once if Shutdown already ran.
func (that *Server) Start(port string) error {
	that.srvMutex.Lock()
	if that.closed {
		that.srvMutex.Unlock()
		return nil
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	that.srv = srv
	that.srvMutex.Unlock()

	that.logger.Info("websocket server started", "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and closes the open ones.
func (that *Server) Shutdown(ctx context.Context) error {
	that.srvMutex.Lock()
	that.closed = true
	srv := that.srv
	that.srvMutex.Unlock()

	that.connectionsMutex.Lock()
	for _, conn := range that.connections {
		conn.close()
	}
	that.connectionsMutex.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	sender := newClient(conn)
	go sender.writePump()

	log.Info("WebSocket connection established", "remote", req.RemoteAddr)

	that.handleMessages(sender)

	that.unregister(sender)
	sender.close()
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(sender *client) {
	log := that.logger.With("method", "handleMessages")

	sender.conn.SetReadLimit(maxMessageSize)
	_ = sender.conn.SetReadDeadline(time.Now().Add(pongWait))
	sender.conn.SetPongHandler(func(string) error {
		return sender.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sender.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.sendErrorResponse(sender, "", "malformed message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			that.sendErrorResponse(sender, message.Action, "unknown action")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err = handler(ctx, &message, sender)
		cancel()

		if err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// GameUpdated pushes the committed game to both players' connections.
func (that *Server) GameUpdated(game *entity.Game) {
	log := that.logger.With("method", "GameUpdated", "game_id", game.ID)

	data, err := encode(actionGameUpdate, Payload{Game: game.Snapshot(that.now())})
	if err != nil {
		log.Error("failed to encode game update", "error", err)
		return
	}

	for _, playerID := range []string{game.PlayerX, game.PlayerO} {
		that.connectionsMutex.RLock()
		conn, ok := that.connections[playerID]
		that.connectionsMutex.RUnlock()

		if !ok {
			continue
		}

		if !conn.enqueue(data) {
			log.Warn("dropped game update", "player_id", playerID)
		}
	}
}

// register binds playerID to the connection, replacing an older one.
func (that *Server) register(playerID string, sender *client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.connections[playerID] = sender
}

func (that *Server) unregister(sender *client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	for playerID, conn := range that.connections {
		if conn == sender {
			delete(that.connections, playerID)
			that.logger.Info("player disconnected", "player_id", playerID)
		}
	}
}

func (that *Server) sendMessage(sender *client, action string, payload Payload) error {
	data, err := encode(action, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if !sender.enqueue(data) {
		return errors.New("connection is not accepting messages")
	}

	return nil
}

func (that *Server) sendErrorResponse(sender *client, action, errorMsg string) {
	if err := that.sendMessage(sender, action, Payload{Error: errorMsg}); err != nil {
		that.logger.Warn("failed to send error response", "action", action, "error", err)
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, "*") {
			return true
		}

		return slices.Contains(allowedOrigins, origin)
	}
}
