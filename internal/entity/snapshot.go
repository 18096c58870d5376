package entity

import "time"

type SideSnapshot struct {
	ID            string `json:"id"`
	TimeRemaining int64  `json:"time_remaining"`
	RatingDelta   *int   `json:"rating_delta"`
}

// GameSnapshot is the read view of a game handed to clients.
type GameSnapshot struct {
	ID            string                `json:"id"`
	Boards        [CellsPerBoard]Board  `json:"boards"`
	MetaBoard     [CellsPerBoard]Result `json:"meta_board"`
	CurrentPlayer Mark                  `json:"current_player"`
	NextBoard     *int                  `json:"next_board"`
	Winner        Mark                  `json:"winner"`
	Status        string                `json:"status"`
	Outcome       Outcome               `json:"outcome,omitempty"`
	GameOver      bool                  `json:"game_over"`
	PlayerX       SideSnapshot          `json:"player_x"`
	PlayerO       SideSnapshot          `json:"player_o"`
}

func (that *Game) Snapshot(now time.Time) *GameSnapshot {
	return &GameSnapshot{
		ID:            that.ID,
		Boards:        that.Boards,
		MetaBoard:     that.MetaBoard().Cells(),
		CurrentPlayer: that.Turn,
		NextBoard:     that.NextBoard(),
		Winner:        that.Winner,
		Status:        that.Status,
		Outcome:       that.Outcome,
		GameOver:      that.IsFinished(),
		PlayerX: SideSnapshot{
			ID:            that.PlayerX,
			TimeRemaining: int64(that.TimeRemaining(PlayerX, now) / time.Second),
			RatingDelta:   that.RatingDeltaX,
		},
		PlayerO: SideSnapshot{
			ID:            that.PlayerO,
			TimeRemaining: int64(that.TimeRemaining(PlayerO, now) / time.Second),
			RatingDelta:   that.RatingDeltaO,
		},
	}
}
