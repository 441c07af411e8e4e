package design

import (
	"fmt"
	"slices"
	"strings"

	"spriteforge/chroma"
)

// AllViewpoints are the grid columns, in order.
var AllViewpoints = []string{"front", "back", "left", "right"}

const (
	DefaultSpriteSize = 32
	DefaultFrameCount = 4
)

type Pose struct {
	Name       string   `toml:"name"`
	Prompt     string   `toml:"prompt"`
	Viewpoints []string `toml:"viewpoints"`
	// Mirror derives the right-facing cells from the left-facing ones
	// when the pose wants both.
	Mirror bool `toml:"mirror"`
}

func (p Pose) Wants(viewpoint string) bool {
	return slices.Contains(p.Viewpoints, viewpoint)
}

// Design describes a character sheet: which poses exist, how many frames
// each animated pose has and which viewpoints every pose is drawn from.
type Design struct {
	ID         string
	Name       string
	Prompt     string
	SpriteSize int
	FrameCount int
	Animated   bool
	Viewpoints []string
	Poses      []Pose
	Key        chroma.Key

	cells []source
}

// source is an encoded image destined for one grid cell: a file path
// relative to the design or a data URI.
type source struct {
	Row, Col int
	Image    string
	Prompt   string
}

func (d *Design) FramesPerPose() int {
	if d.Animated {
		return max(1, d.FrameCount)
	}
	return 1
}

// Shape is the grid size: one row per (pose, frame), one column per
// viewpoint.
func (d *Design) Shape() (rows, cols int) {
	return len(d.Poses) * d.FramesPerPose(), len(d.Viewpoints)
}

func (d *Design) Row(pose, frame int) int {
	return pose*d.FramesPerPose() + frame
}

// Locate splits a row into its pose index and frame within the pose.
func (d *Design) Locate(row int) (pose, frame int) {
	n := d.FramesPerPose()
	return row / n, row % n
}

func (d *Design) Col(viewpoint string) int {
	return slices.Index(d.Viewpoints, viewpoint)
}

// PoseIndex finds a pose by the slug its files are named with, so
// "Walk Cycle", "walk cycle" and "walk_cycle" all match the same pose.
func (d *Design) PoseIndex(name string) int {
	slug := safeName(name)
	return slices.IndexFunc(d.Poses, func(p Pose) bool {
		return safeName(p.Name) == slug
	})
}

// Label names a cell for manifests and logs.
func (d *Design) Label(row, col int) (pose string, frame int, viewpoint string) {
	p, f := d.Locate(row)
	if p >= 0 && p < len(d.Poses) {
		pose = d.Poses[p].Name
	}
	if col >= 0 && col < len(d.Viewpoints) {
		viewpoint = d.Viewpoints[col]
	}
	return pose, f, viewpoint
}

func (d *Design) Validate() error {
	if d.SpriteSize <= 0 {
		return fmt.Errorf("invalid sprite size: %d", d.SpriteSize)
	}
	if d.Animated && d.FrameCount < 1 {
		return fmt.Errorf("invalid frame count: %d", d.FrameCount)
	}
	if len(d.Viewpoints) == 0 {
		return fmt.Errorf("no viewpoints")
	}
	if err := d.Key.Validate(); err != nil {
		return fmt.Errorf("invalid chroma key: %w", err)
	}

	for i, p := range d.Poses {
		if p.Name == "" {
			return fmt.Errorf("pose %d has no name", i)
		}
		for _, vp := range p.Viewpoints {
			if d.Col(vp) < 0 {
				return fmt.Errorf("pose %q uses unknown viewpoint %q", p.Name, vp)
			}
		}
	}

	rows, cols := d.Shape()
	for _, c := range d.cells {
		if c.Row < 0 || c.Row >= rows || c.Col < 0 || c.Col >= cols {
			return fmt.Errorf("cell (%d, %d) outside the %dx%d grid", c.Row, c.Col, rows, cols)
		}
	}
	return nil
}

// FileName derives a stable, filesystem-safe name from a pose and
// viewpoint, e.g. "Walk Cycle", "left", "gif" -> "walk_cycle_left.gif".
func FileName(pose, viewpoint, ext string) string {
	name := safeName(pose)
	if viewpoint != "" {
		name += "_" + safeName(viewpoint)
	}
	if ext != "" {
		name += "." + ext
	}
	return name
}

func safeName(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}
