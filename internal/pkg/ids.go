package pkg

import "github.com/google/uuid"

// GenerateGameID returns a random uuid for a game session.
func GenerateGameID() string {
	return uuid.New().String()
}

func GeneratePlayerID() string {
	return uuid.New().String()
}
