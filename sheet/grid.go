package sheet

import "spriteforge/sprite"

// Grid is an immutable snapshot of sprite cells. Rows are (pose, frame)
// pairs, columns are viewpoints. nil cells are holes. Every method that
// changes the grid returns a new Grid and leaves the receiver untouched.
type Grid struct {
	cells [][]*sprite.Sprite
	cols  int
}

func NewGrid(rows, cols int) Grid {
	rows, cols = max(0, rows), max(0, cols)
	g := Grid{cells: make([][]*sprite.Sprite, rows), cols: cols}
	for r := range g.cells {
		g.cells[r] = make([]*sprite.Sprite, cols)
	}
	return g
}

func (g Grid) Rows() int { return len(g.cells) }
func (g Grid) Cols() int { return g.cols }

// At returns the sprite at (row, col), nil for holes and out of range cells.
func (g Grid) At(row, col int) *sprite.Sprite {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= g.cols {
		return nil
	}
	return g.cells[row][col]
}

// With returns a copy of g with (row, col) set to s. Out of range
// coordinates return g unchanged.
func (g Grid) With(row, col int, s *sprite.Sprite) Grid {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= g.cols {
		return g
	}
	out := Grid{cells: make([][]*sprite.Sprite, len(g.cells)), cols: g.cols}
	copy(out.cells, g.cells)
	out.cells[row] = append([]*sprite.Sprite(nil), g.cells[row]...)
	out.cells[row][col] = s
	return out
}

// Resize returns a rows×cols grid keeping every populated cell whose
// coordinates still exist. Cells outside the new shape are dropped, new
// cells are holes.
func (g Grid) Resize(rows, cols int) Grid {
	out := NewGrid(rows, cols)
	for r := range min(out.Rows(), g.Rows()) {
		copy(out.cells[r], g.cells[r][:min(cols, g.cols)])
	}
	return out
}

// Count is the number of populated cells.
func (g Grid) Count() int {
	n := 0
	for _, row := range g.cells {
		for _, s := range row {
			if s != nil {
				n++
			}
		}
	}
	return n
}
