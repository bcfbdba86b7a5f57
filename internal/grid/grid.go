package grid

// Size is the fixed width and height of the territory grid.
const Size = 16

// Cell is one grid cell as sent to clients. Color is nil while unowned.
type Cell struct {
	Color *string `json:"color"`
}

// Grid is a Size×Size matrix of cell owners, identified by player color.
// A grid belongs to exactly one room and is only touched under that room's
// lock, so it does no locking of its own.
type Grid struct {
	cells [Size][Size]string // cells[y][x] = owning color, "" if unowned
}

// New returns a fully unowned grid.
func New() *Grid {
	return &Grid{}
}

// Clamp forces a coordinate into [0, Size-1].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v >= Size {
		return Size - 1
	}
	return v
}

// Owner returns the color owning (x, y), or "" if the cell is unowned.
// Coordinates must already be in range.
func (g *Grid) Owner(x, y int) string {
	return g.cells[y][x]
}

// Paint assigns (x, y) to color. It returns the previous owner ("" if the
// cell was unowned) and whether ownership actually changed; painting a cell
// the player already owns is a no-op.
func (g *Grid) Paint(x, y int, color string) (prev string, changed bool) {
	prev = g.cells[y][x]
	if prev == color {
		return prev, false
	}
	g.cells[y][x] = color
	return prev, true
}

// OwnedCount returns the number of cells with an owner.
func (g *Grid) OwnedCount() int {
	n := 0
	for y := range g.cells {
		for x := range g.cells[y] {
			if g.cells[y][x] != "" {
				n++
			}
		}
	}
	return n
}

// Reset clears ownership of every cell.
func (g *Grid) Reset() {
	g.cells = [Size][Size]string{}
}

// Snapshot returns the grid as rows of cells for the grid-initialized event.
func (g *Grid) Snapshot() [][]Cell {
	rows := make([][]Cell, Size)
	for y := range g.cells {
		row := make([]Cell, Size)
		for x := range g.cells[y] {
			if c := g.cells[y][x]; c != "" {
				color := c
				row[x].Color = &color
			}
		}
		rows[y] = row
	}
	return rows
}
