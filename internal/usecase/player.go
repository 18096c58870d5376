package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/pkg"
)

const (
	maxUsernameLength = 32
	maxLocationLength = 100
	maxTimezoneLength = 50
)

var (
	countryCodePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
	utcOffsetPattern   = regexp.MustCompile(`^UTC[+-](0\d|1[0-4]):[0-5]\d$`)
)

type profileRepo interface {
	playerRepo
	ClaimUsername(ctx context.Context, username, playerID string) error
	ReleaseUsername(ctx context.Context, username, playerID string) error
}

type PlayerManager struct {
	logger        *slog.Logger
	playerRepo    profileRepo
	defaultRating int
	now           func() time.Time
}

func NewPlayerManager(logger *slog.Logger, playerRepo profileRepo, defaultRating int) *PlayerManager {
	if defaultRating <= 0 {
		defaultRating = entity.LevelRatings[entity.LevelNew]
	}

	return &PlayerManager{
		logger:        logger.With("component", "player_manager"),
		playerRepo:    playerRepo,
		defaultRating: defaultRating,
		now:           time.Now,
	}
}

// CreatePlayer registers a player. The level sets the starting rating, an empty level uses the default.
func (that *PlayerManager) CreatePlayer(ctx context.Context, username, level string) (*entity.Player, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	startRating := that.defaultRating
	if level != "" {
		levelRating, ok := entity.LevelRatings[level]
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperror.ErrInvalidLevel, level)
		}
		startRating = levelRating
	}

	player := &entity.Player{
		ID:        pkg.GeneratePlayerID(),
		Username:  username,
		Level:     level,
		Rating:    startRating,
		CreatedAt: that.now().UTC(),
	}

	if username != "" {
		if err := that.playerRepo.ClaimUsername(ctx, username, player.ID); err != nil {
			return nil, fmt.Errorf("failed to claim username: %w", err)
		}
	}

	if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	that.logger.Info("player created", "player_id", player.ID, "level", level)

	return player, nil
}

func (that *PlayerManager) GetPlayer(ctx context.Context, playerID string) (*entity.Player, error) {
	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return player, nil
}

// Rename changes the username, keeping it unique.
func (that *PlayerManager) Rename(ctx context.Context, playerID, username string) (*entity.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: empty", apperror.ErrInvalidUsername)
	}

	if err := validateUsername(username); err != nil {
		return nil, err
	}

	player, err := that.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if player.Username == username {
		return player, nil
	}

	if err = that.playerRepo.ClaimUsername(ctx, username, playerID); err != nil {
		return nil, fmt.Errorf("failed to claim username: %w", err)
	}

	previous := player.Username
	player.Username = username

	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if previous != "" && !strings.EqualFold(previous, username) {
		if err = that.playerRepo.ReleaseUsername(ctx, previous, playerID); err != nil {
			that.logger.Error("failed to release username", "player_id", playerID, "error", err)
		}
	}

	return player, nil
}

// UpdateProfile changes the given fields. A new username goes through Rename.
func (that *PlayerManager) UpdateProfile(ctx context.Context, playerID string, update entity.ProfileUpdate) (*entity.Player, error) {
	if err := validateProfile(update); err != nil {
		return nil, err
	}

	var (
		player *entity.Player
		err    error
	)

	if update.Username != nil {
		player, err = that.Rename(ctx, playerID, *update.Username)
	} else {
		player, err = that.GetPlayer(ctx, playerID)
	}
	if err != nil {
		return nil, err
	}

	changed := false
	for _, field := range []struct {
		target *string
		value  *string
	}{
		{&player.Location, update.Location},
		{&player.Country, upper(update.Country)},
		{&player.Timezone, update.Timezone},
	} {
		if field.value != nil && *field.target != strings.TrimSpace(*field.value) {
			*field.target = strings.TrimSpace(*field.value)
			changed = true
		}
	}

	if !changed {
		return player, nil
	}

	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	that.logger.Info("profile updated", "player_id", playerID)

	return player, nil
}

func validateProfile(update entity.ProfileUpdate) error {
	if update.Location != nil && utf8.RuneCountInString(strings.TrimSpace(*update.Location)) > maxLocationLength {
		return fmt.Errorf("%w: location longer than %d characters", apperror.ErrInvalidProfile, maxLocationLength)
	}

	if update.Country != nil {
		country := strings.TrimSpace(*update.Country)
		if country != "" && !countryCodePattern.MatchString(country) {
			return fmt.Errorf("%w: country must be a two-letter code", apperror.ErrInvalidProfile)
		}
	}

	if update.Timezone != nil {
		if tz := strings.TrimSpace(*update.Timezone); tz != "" && !validTimezone(tz) {
			return fmt.Errorf("%w: unknown timezone %q", apperror.ErrInvalidProfile, tz)
		}
	}

	return nil
}

// validTimezone accepts IANA names and fixed offsets like UTC+05:30.
func validTimezone(tz string) bool {
	if len(tz) > maxTimezoneLength {
		return false
	}

	if utcOffsetPattern.MatchString(tz) {
		return true
	}

	if tz == "Local" {
		return false
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

func upper(value *string) *string {
	if value == nil {
		return nil
	}

	upped := strings.ToUpper(*value)
	return &upped
}

func validateUsername(username string) error {
	if len(username) > maxUsernameLength {
		return fmt.Errorf("%w: longer than %d characters", apperror.ErrInvalidUsername, maxUsernameLength)
	}

	return nil
}
