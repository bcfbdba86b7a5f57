package room

import "gridrush/internal/grid"

// Event types, named exactly as the presentation layer expects them.
const (
	EventRoomCreated     = "roomCreated"
	EventRoomJoined      = "roomJoined"
	EventJoinError       = "joinError"
	EventPlayerJoined    = "playerJoined"
	EventPlayerLeft      = "playerLeft"
	EventPlayerStatus    = "playerStatusUpdate"
	EventNewHost         = "newHost"
	EventGameStart       = "gameStart"
	EventGridInitialized = "gameGridInitialized"
	EventPlayerMoved     = "playerMoved"
	EventGridUpdated     = "gridUpdated"
	EventScoresUpdated   = "scoresUpdated"
	EventTimeUpdated     = "timeUpdated"
	EventGameEnded       = "gameEnded"
	EventGameRestarted   = "gameRestarted"
)

// Event is one outbound message produced by a room operation or timer tick.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Sender delivers an event to a single connection. The server implements it
// with per-connection send channels; tests record what was delivered.
type Sender interface {
	Send(playerID string, e Event)
}

// RoomJoinedPayload is the full snapshot sent to a joining player.
type RoomJoinedPayload struct {
	RoomCode string            `json:"roomCode"`
	PlayerID string            `json:"playerId"`
	Players  map[string]Player `json:"players"`
}

// PlayerJoinedPayload is the delta sent to members already in the room.
type PlayerJoinedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerInfo Player `json:"playerInfo"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerStatusPayload struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type NewHostPayload struct {
	PlayerID string `json:"playerId"`
}

type GameStartPayload struct {
	Countdown int `json:"countdown"`
}

type GridInitializedPayload struct {
	Grid [][]grid.Cell `json:"grid"`
}

type PlayerMovedPayload struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
}

type GridUpdatedPayload struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// ScoreEntry is one row of the score table, in join order.
type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	Score    int    `json:"score"`
}

type TimeUpdatedPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type GameEndedPayload struct {
	Scores []ScoreEntry `json:"scores"`
	Winner string       `json:"winner"`
}
