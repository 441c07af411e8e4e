package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"spriteforge/design"
	"spriteforge/fileop"
	"spriteforge/parallel"
	"spriteforge/sheet"
	"spriteforge/sprite"
)

// CLICmd assembles the sprite sheet of a design.
type CLICmd struct {
	Design   string `help:"Design file, TOML layout or exported JSON" type:"existingfile" required:""`
	Out      string `help:"Sprite sheet PNG. Relative to the design folder if not absolute." default:"spritesheet.png"`
	Manifest string `help:"Write a JSON table of contents of the sheet to this file"`
	Export   string `help:"Write the design with its extracted sprites embedded as JSON to this file"`
	Scale    int    `help:"Enlarge the sheet by this integer factor for previewing" default:"1"`
	Mirror   bool   `help:"Derive empty right-facing cells from left-facing ones" default:"true" negatable:""`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Scale < 1 {
		return fmt.Errorf("invalid scale: %d", c.Scale)
	}

	designDir := filepath.Dir(c.Design)
	for _, p := range []*string{&c.Out, &c.Manifest, &c.Export} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(designDir, *p)
		}
	}
	return nil
}

func (c *CLICmd) Run(ctx context.Context, limit parallel.Limit) error {
	logger := slog.Default().With("design", c.Design)

	d, err := design.Load(c.Design)
	if err != nil {
		return err
	}
	if !c.Mirror {
		for i := range d.Poses {
			d.Poses[i].Mirror = false
		}
	}

	g, rep, err := d.Build(ctx, filepath.Dir(c.Design), int(limit))
	if err != nil {
		return fmt.Errorf("could not build design %q: %w", d.Name, err)
	}
	rows, cols := d.Shape()
	logger.Info("loaded", "name", d.Name, "rows", rows, "cols", cols,
		"placed", rep.Placed, "mirrored", rep.Mirrored, "failed", len(rep.Failed))

	img, err := sheet.Compose(ctx, g, d.SpriteSize, sheet.Options{Key: d.Key, Workers: int(limit)})
	if err != nil {
		return fmt.Errorf("could not compose sheet: %w", err)
	}
	if c.Scale > 1 {
		img = sheet.Scale(img, c.Scale)
	}

	n, err := fileop.WriteFile(c.Out, func(w io.Writer) error {
		return sheet.EncodePNG(w, img)
	})
	if err != nil {
		if errors.Is(err, sprite.ErrInvalidInput) {
			return fmt.Errorf("design %q has no cells to draw: %w", d.Name, err)
		}
		return fmt.Errorf("could not write sheet %q: %w", c.Out, err)
	}
	logger.Info("sheet written", "file", c.Out, "width", img.Rect.Dx(), "height", img.Rect.Dy(),
		"sprites", g.Count(), "size", humanize.Bytes(uint64(n)))

	if c.Manifest != "" {
		m := sheet.NewManifest(g, d.SpriteSize*c.Scale, d.Label)
		m.Image = filepath.Base(c.Out)
		if _, err := fileop.WriteFile(c.Manifest, func(w io.Writer) error {
			_, err := m.WriteTo(w)
			return err
		}); err != nil {
			return err
		}
		logger.Info("manifest written", "file", c.Manifest, "cells", len(m.Cells))
	}

	if c.Export != "" {
		n, err := fileop.WriteFile(c.Export, func(w io.Writer) error {
			return d.WriteJSON(w, g, time.Now())
		})
		if err != nil {
			return err
		}
		logger.Info("design exported", "file", c.Export, "size", humanize.Bytes(uint64(n)))
	}

	if len(rep.Failed) > 0 {
		return fmt.Errorf("could not load %d cells", len(rep.Failed))
	}
	return nil
}
