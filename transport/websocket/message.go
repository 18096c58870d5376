package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/matchmaking"
)

const actionGameUpdate = "game:update"

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is shared by requests and responses; unset fields are omitted.
type Payload struct {
	PlayerID string `json:"player_id,omitempty"`
	GameID   string `json:"game_id,omitempty"`
	Board    *int   `json:"board,omitempty"`
	Position *int   `json:"position,omitempty"`

	Player    *entity.Player          `json:"player,omitempty"`
	Game      *entity.GameSnapshot    `json:"game,omitempty"`
	Match     *matchmaking.PollResult `json:"match,omitempty"`
	Cancelled *bool                   `json:"cancelled,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

func encode(action string, payload Payload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: raw})
}
