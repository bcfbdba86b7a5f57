package room

// palette holds the colors the presentation layer can render. Every member
// of a room gets a distinct palette entry, so the palette size is also the
// room's player capacity.
var palette = []string{"#ff0000", "#00ff00", "#0000ff", "#ffff00", "#ff00ff", "#00ffff"}

// MaxPlayers is the room capacity, bounded by the color palette.
var MaxPlayers = len(palette)

// Position is a cell coordinate on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Player is the per-connection state tracked by a room.
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	IsHost   bool     `json:"isHost"`
	Ready    bool     `json:"ready"`
	Position Position `json:"position"`
	Color    string   `json:"color"`
	Score    int      `json:"score"`
}
