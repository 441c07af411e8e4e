package sheet

import (
	"encoding/json"
	"fmt"
	"io"
)

// Cell locates one populated grid cell on the composed sheet.
type Cell struct {
	ID        string `json:"id"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	W         int    `json:"w"`
	H         int    `json:"h"`
	Pose      string `json:"pose,omitempty"`
	Frame     int    `json:"frame"`
	Viewpoint string `json:"viewpoint,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

// Manifest is the table of contents written next to a sheet.
type Manifest struct {
	Image      string `json:"image,omitempty"`
	SpriteSize int    `json:"sprite_size"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	Cells      []Cell `json:"cells"`
}

// Labeler names the pose, frame within the pose and viewpoint of a cell.
type Labeler func(row, col int) (pose string, frame int, viewpoint string)

func NewManifest(g Grid, size int, label Labeler) Manifest {
	m := Manifest{
		SpriteSize: size,
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Cells:      []Cell{},
	}
	for r := range g.Rows() {
		for c := range g.Cols() {
			s := g.At(r, c)
			if s == nil {
				continue
			}
			cell := Cell{
				ID:     s.ID,
				Row:    r,
				Col:    c,
				X:      c * size,
				Y:      r * size,
				W:      size,
				H:      size,
				Prompt: s.Prompt,
			}
			if label != nil {
				cell.Pose, cell.Frame, cell.Viewpoint = label(r, c)
			}
			m.Cells = append(m.Cells, cell)
		}
	}
	return m
}

func (m Manifest) WriteTo(w io.Writer) (int64, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("could not marshal manifest: %w", err)
	}
	b = append(b, '\n')
	n, err := w.Write(b)
	if err != nil {
		return int64(n), fmt.Errorf("could not write manifest: %w", err)
	}
	return int64(n), nil
}
