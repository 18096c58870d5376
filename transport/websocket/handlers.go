package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/matchmaking"
)

var (
	errPlayerRequired   = errors.New("player_id is required")
	errGameRequired     = errors.New("game_id is required")
	errPositionRequired = errors.New("board and position are required")
	errMalformedPayload = errors.New("malformed payload")
)

// decodePayload reads the request payload and registers the sender under its player id.
func (that *Server) decodePayload(msg *Message, sender *client) (*Payload, error) {
	var payload Payload

	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", errMalformedPayload, err)
		}
	}

	if payload.PlayerID == "" {
		return nil, errPlayerRequired
	}

	that.register(payload.PlayerID, sender)

	return &payload, nil
}

func (that *Server) handleConnect(ctx context.Context, msg *Message, sender *client) error {
	payload, err := that.decodePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	player, err := that.players.GetPlayer(ctx, payload.PlayerID)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	that.logger.Info("player connected", "player_id", player.ID)

	return that.sendMessage(sender, msg.Action, Payload{Player: player})
}

func (that *Server) handleMatchmakingJoin(ctx context.Context, msg *Message, sender *client) error {
	payload, err := that.decodePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	if err = that.matchmaking.Enqueue(ctx, payload.PlayerID); err != nil {
		return that.reject(sender, msg.Action, err)
	}

	return that.sendMessage(sender, msg.Action, Payload{Match: &matchmaking.PollResult{Status: matchmaking.StatusWaiting}})
}

func (that *Server) handleMatchmakingPoll(ctx context.Context, msg *Message, sender *client) error {
	payload, err := that.decodePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	result, err := that.matchmaking.Poll(ctx, payload.PlayerID)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	return that.sendMessage(sender, msg.Action, Payload{Match: result})
}

func (that *Server) handleMatchmakingCancel(ctx context.Context, msg *Message, sender *client) error {
	payload, err := that.decodePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	cancelled := that.matchmaking.Cancel(ctx, payload.PlayerID)

	return that.sendMessage(sender, msg.Action, Payload{Cancelled: &cancelled})
}

func (that *Server) handleGameGet(ctx context.Context, msg *Message, sender *client) error {
	payload, err := that.decodeGamePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	game, err := that.games.GetGame(ctx, payload.GameID)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	return that.sendMessage(sender, msg.Action, Payload{Game: game})
}

func (that *Server) handleGameMove(ctx context.Context, msg *Message, sender *client) error {
	payload, err := that.decodeGamePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	if payload.Board == nil || payload.Position == nil {
		return that.reject(sender, msg.Action, errPositionRequired)
	}

	game, err := that.games.MakeMove(ctx, payload.GameID, payload.PlayerID, *payload.Board, *payload.Position)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	return that.sendMessage(sender, msg.Action, Payload{Game: game})
}

func (that *Server) handleGameResign(ctx context.Context, msg *Message, sender *client) error {
	return that.handleGameAction(ctx, msg, sender, that.games.Resign)
}

func (that *Server) handleGameReady(ctx context.Context, msg *Message, sender *client) error {
	return that.handleGameAction(ctx, msg, sender, that.games.Ready)
}

func (that *Server) handleGameAction(
	ctx context.Context,
	msg *Message,
	sender *client,
	action func(ctx context.Context, gameID, playerID string) (*entity.GameSnapshot, error),
) error {
	payload, err := that.decodeGamePayload(msg, sender)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	game, err := action(ctx, payload.GameID, payload.PlayerID)
	if err != nil {
		return that.reject(sender, msg.Action, err)
	}

	return that.sendMessage(sender, msg.Action, Payload{Game: game})
}

func (that *Server) decodeGamePayload(msg *Message, sender *client) (*Payload, error) {
	payload, err := that.decodePayload(msg, sender)
	if err != nil {
		return nil, err
	}

	if payload.GameID == "" {
		return nil, errGameRequired
	}

	return payload, nil
}

// reject answers the sender with an error payload. Only unexpected errors are returned for logging.
func (that *Server) reject(sender *client, action string, err error) error {
	if isClientError(err) {
		that.sendErrorResponse(sender, action, err.Error())
		return nil
	}

	that.sendErrorResponse(sender, action, "internal server error")

	return err
}

func isClientError(err error) bool {
	return apperror.IsValidation(err) ||
		errors.Is(err, apperror.ErrGameNotFound) ||
		errors.Is(err, apperror.ErrPlayerNotFound) ||
		errors.Is(err, errPlayerRequired) ||
		errors.Is(err, errGameRequired) ||
		errors.Is(err, errPositionRequired) ||
		errors.Is(err, errMalformedPayload)
}
