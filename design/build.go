package design

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"spriteforge/parallel"
	"spriteforge/sheet"
	"spriteforge/sprite"
)

// CellError records a cell whose image could not be loaded.
type CellError struct {
	Row, Col int
	Image    string
	Err      error
}

func (e CellError) Error() string {
	return fmt.Sprintf("cell (%d, %d) %s: %v", e.Row, e.Col, e.Image, e.Err)
}

func (e CellError) Unwrap() error {
	return e.Err
}

type Report struct {
	Placed   int
	Mirrored int
	Failed   []CellError
}

// Build decodes every referenced image, extracts it at the design's sprite
// size and places it in a fresh grid. Relative paths are resolved against
// dir. A cell that cannot be loaded stays empty and is listed in the
// report; only cancellation fails the whole build.
func (d *Design) Build(ctx context.Context, dir string, workers int) (sheet.Grid, Report, error) {
	var rep Report
	if err := d.Validate(); err != nil {
		return sheet.Grid{}, rep, fmt.Errorf("%w: %w", sprite.ErrInvalidInput, err)
	}

	type loaded struct {
		s   *sprite.Sprite
		err error
	}
	results, err := parallel.Map(ctx, workers, len(d.cells), func(ctx context.Context, i int) (loaded, error) {
		src := d.cells[i]
		raw, err := loadImage(dir, src.Image)
		if err != nil {
			return loaded{err: err}, nil
		}
		s, err := sprite.New(ctx, raw, src.Prompt, d.SpriteSize, d.Key)
		if err != nil {
			if ctx.Err() != nil {
				return loaded{}, err
			}
			return loaded{err: err}, nil
		}
		return loaded{s: s}, nil
	})
	if err != nil {
		return sheet.Grid{}, rep, err
	}

	grid := sheet.NewGrid(d.Shape())
	for i, res := range results {
		src := d.cells[i]
		if res.err != nil {
			slog.Default().With("row", src.Row, "col", src.Col).Warn("could not load cell", "err", res.err)
			rep.Failed = append(rep.Failed, CellError{
				Row:   src.Row,
				Col:   src.Col,
				Image: describe(src.Image),
				Err:   res.err,
			})
			continue
		}
		grid = grid.With(src.Row, src.Col, res.s)
		rep.Placed++
	}

	grid, rep.Mirrored = FillMirrors(grid, d)
	return grid, rep, nil
}

func loadImage(dir, ref string) (*image.NRGBA, error) {
	if strings.HasPrefix(ref, "data:") {
		return sprite.DecodeDataURI(ref)
	}
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(dir, ref)
	}
	return sprite.DecodeFile(ref)
}

func describe(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return "data uri"
	}
	return ref
}

// mirrorPair returns the left and right columns of a pose that wants both.
func (d *Design) mirrorPair(p Pose) (left, right int, ok bool) {
	if !p.Mirror || !p.Wants("left") || !p.Wants("right") {
		return 0, 0, false
	}
	left, right = d.Col("left"), d.Col("right")
	return left, right, left >= 0 && right >= 0
}

// FillMirrors puts the reflection of every present left-facing sprite into
// its empty right-facing neighbour, for each pose that asks for both
// sides. Existing right-facing sprites are kept. It returns the new grid
// and the number of cells filled.
func FillMirrors(g sheet.Grid, d *Design) (sheet.Grid, int) {
	filled := 0
	for pi, p := range d.Poses {
		left, right, ok := d.mirrorPair(p)
		if !ok {
			continue
		}
		for f := range d.FramesPerPose() {
			row := d.Row(pi, f)
			src := g.At(row, left)
			if src == nil || g.At(row, right) != nil {
				continue
			}
			g = g.With(row, right, src.Mirrored())
			filled++
		}
	}
	return g, filled
}

// ReplaceCell stores s at (row, col). Replacing a left-facing sprite of a
// mirrored pose also replaces its right-facing partner with the new
// reflection, and replacing the right-facing one is redirected to the left
// cell so both stay in step.
func ReplaceCell(g sheet.Grid, d *Design, row, col int, s *sprite.Sprite) sheet.Grid {
	pi, _ := d.Locate(row)
	if pi < 0 || pi >= len(d.Poses) {
		return g.With(row, col, s)
	}
	left, right, ok := d.mirrorPair(d.Poses[pi])
	if !ok || s == nil {
		return g.With(row, col, s)
	}

	switch col {
	case right:
		// The stored sprite always faces left.
		s = s.Mirrored()
		fallthrough
	case left:
		g = g.With(row, left, s)
		return g.With(row, right, s.Mirrored())
	default:
		return g.With(row, col, s)
	}
}

// AnimationFrames lists the frames of one pose seen from one viewpoint,
// in order. Missing frames are nil.
func AnimationFrames(g sheet.Grid, d *Design, pose int, viewpoint string) []*sprite.Sprite {
	col := d.Col(viewpoint)
	if pose < 0 || pose >= len(d.Poses) || col < 0 {
		return nil
	}
	frames := make([]*sprite.Sprite, d.FramesPerPose())
	for f := range frames {
		frames[f] = g.At(d.Row(pose, f), col)
	}
	return frames
}
