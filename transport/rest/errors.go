package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound),
		errors.Is(err, apperror.ErrPlayerNotFound),
		errors.Is(err, apperror.ErrUnknownPlayer),
		errors.Is(err, apperror.ErrNotInQueue):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrNotAParticipant),
		errors.Is(err, apperror.ErrOnlyPlayerXReady):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrUsernameTaken):
		return http.StatusConflict
	case apperror.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes the error body. Internal errors are logged and not exposed.
func sendError(c *gin.Context, logger *slog.Logger, err error, extra gin.H) {
	status := statusFor(err)

	body := gin.H{"error": err.Error()}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		body["error"] = "internal server error"
	}

	for key, value := range extra {
		body[key] = value
	}

	c.AbortWithStatusJSON(status, body)
}
