package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

type PlayerRepository struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) *PlayerRepository {
	return &PlayerRepository{
		client: client,
	}
}

func playerKey(id string) string {
	return "player:" + id
}

// usernames are unique regardless of case.
func usernameKey(username string) string {
	return "username:" + strings.ToLower(username)
}

func (that *PlayerRepository) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	err = that.client.Set(ctx, playerKey(player.ID), playerJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (that *PlayerRepository) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	response, err := that.client.Get(ctx, playerKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by ID: %w", err)
	}

	var existingPlayer entity.Player
	if err = json.Unmarshal([]byte(response), &existingPlayer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &existingPlayer, nil
}

func (that *PlayerRepository) GetByUsername(ctx context.Context, username string) (*entity.Player, error) {
	id, err := that.client.Get(ctx, usernameKey(username)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by username: %w", err)
	}

	return that.GetByID(ctx, id)
}

// ClaimUsername reserves username for playerID. Claiming a name the player already owns succeeds.
func (that *PlayerRepository) ClaimUsername(ctx context.Context, username, playerID string) error {
	key := usernameKey(username)

	ok, err := that.client.SetNX(ctx, key, playerID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim username: %w", err)
	}

	if ok {
		return nil
	}

	owner, err := that.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get username owner: %w", err)
	}

	if owner != playerID {
		return fmt.Errorf("%w: %s", apperror.ErrUsernameTaken, username)
	}

	return nil
}

// ReleaseUsername frees username if playerID holds it.
func (that *PlayerRepository) ReleaseUsername(ctx context.Context, username, playerID string) error {
	key := usernameKey(username)

	owner, err := that.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get username owner: %w", err)
	}

	if owner != playerID {
		return nil
	}

	if err = that.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release username: %w", err)
	}

	return nil
}
