package entity

import "time"

const (
	LevelNew          = "new"
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// LevelRatings are the starting ratings for a self-declared level.
var LevelRatings = map[string]int{
	LevelNew:          200,
	LevelBeginner:     400,
	LevelIntermediate: 700,
	LevelAdvanced:     900,
}

type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Level     string    `json:"level,omitempty"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	Location  string    `json:"location,omitempty"`
	Country   string    `json:"country,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileUpdate holds the fields a player may change. Nil fields are left as they are,
// an empty string clears the field.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Location *string `json:"location"`
	Country  *string `json:"country"`
	Timezone *string `json:"timezone"`
}

// DisplayName is shown to the opponent during matchmaking.
func (that *Player) DisplayName() string {
	if that.Username != "" {
		return that.Username
	}
	return that.ID
}

func (that *Player) GamesPlayed() int {
	return that.Wins + that.Losses + that.Draws
}
