package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/matchmaking"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
)

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
	CreatePlayer(ctx context.Context, username, level string) (*entity.Player, error)
	GetPlayer(ctx context.Context, playerID string) (*entity.Player, error)
	UpdateProfile(ctx context.Context, playerID string, update entity.ProfileUpdate) (*entity.Player, error)
}

type statsService interface {
	Stats(ctx context.Context, now time.Time) (*repository.GameStats, error)
}

type Handlers struct {
	logger      *slog.Logger
	games       gameService
	matchmaking matchmaker
	players     playerService
	stats       statsService
}

func NewHandlers(logger *slog.Logger, games gameService, mm matchmaker, players playerService, stats statsService) *Handlers {
	return &Handlers{
		logger:      logger.With("component", "rest"),
		games:       games,
		matchmaking: mm,
		players:     players,
		stats:       stats,
	}
}

func (that *Handlers) Register(r gin.IRouter) {
	r.GET("/ping", PingHandler)
	r.GET("/stats", that.Stats)

	players := r.Group("/players")
	players.POST("", that.CreatePlayer)
	players.GET("/:id", that.GetPlayer)
	players.PATCH("/:id", that.UpdatePlayer)

	mm := r.Group("/matchmaking")
	mm.POST("/join", that.JoinMatchmaking)
	mm.POST("/ping", that.PollMatchmaking)
	mm.POST("/cancel", that.CancelMatchmaking)

	games := r.Group("/games/:id")
	games.GET("", that.GetGame)
	games.POST("/move/:board/:position", that.MakeMove)
	games.POST("/resign", that.Resign)
	games.POST("/ready", that.Ready)
}

type createPlayerRequest struct {
	Username string `json:"username"`
	Level    string `json:"level"`
}

type matchmakingRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

func (that *Handlers) CreatePlayer(c *gin.Context) {
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	player, err := that.players.CreatePlayer(c.Request.Context(), req.Username, req.Level)
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusCreated, player)
}

func (that *Handlers) GetPlayer(c *gin.Context) {
	player, err := that.players.GetPlayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, player)
}

// UpdatePlayer changes the username or profile details. Omitted fields stay as they are.
func (that *Handlers) UpdatePlayer(c *gin.Context) {
	var req entity.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	player, err := that.players.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, player)
}

func (that *Handlers) JoinMatchmaking(c *gin.Context) {
	var req matchmakingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := that.matchmaking.Enqueue(c.Request.Context(), req.PlayerID); err != nil {
		sendError(c, that.logger, err, gin.H{"accepted": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": true, "status": matchmaking.StatusWaiting})
}

func (that *Handlers) PollMatchmaking(c *gin.Context) {
	var req matchmakingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request: " + err.Error()})
		return
	}

	result, err := that.matchmaking.Poll(c.Request.Context(), req.PlayerID)
	if err != nil {
		sendError(c, that.logger, err, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (that *Handlers) CancelMatchmaking(c *gin.Context) {
	var req matchmakingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	cancelled := that.matchmaking.Cancel(c.Request.Context(), req.PlayerID)

	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (that *Handlers) GetGame(c *gin.Context) {
	snapshot, err := that.games.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) MakeMove(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}

	boardIndex, err := strconv.Atoi(c.Param("board"))
	if err != nil {
		sendError(c, that.logger, fmt.Errorf("%w: board %q", apperror.ErrInvalidPosition, c.Param("board")), nil)
		return
	}

	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		sendError(c, that.logger, fmt.Errorf("%w: cell %q", apperror.ErrInvalidPosition, c.Param("position")), nil)
		return
	}

	snapshot, err := that.games.MakeMove(c.Request.Context(), c.Param("id"), playerID, boardIndex, position)
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) Resign(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}

	snapshot, err := that.games.Resign(c.Request.Context(), c.Param("id"), playerID)
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) Ready(c *gin.Context) {
	playerID, ok := requirePlayerID(c)
	if !ok {
		return
	}

	snapshot, err := that.games.Ready(c.Request.Context(), c.Param("id"), playerID)
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) Stats(c *gin.Context) {
	stats, err := that.stats.Stats(c.Request.Context(), time.Now())
	if err != nil {
		sendError(c, that.logger, err, nil)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func requirePlayerID(c *gin.Context) (string, bool) {
	playerID := c.Query("player_id")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return "", false
	}

	return playerID, true
}
