package animate

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"spriteforge/anim"
	"spriteforge/design"
	"spriteforge/fileop"
	"spriteforge/palette"
	"spriteforge/parallel"
	"spriteforge/sprite"
)

// CLICmd writes one looping GIF per animated pose and viewpoint.
type CLICmd struct {
	Design     string         `help:"Design file, TOML layout or exported JSON" type:"existingfile" required:""`
	Dest       string         `help:"Destination folder for animations. Relative to the design folder if not absolute." default:"animations"`
	FPS        float64        `name:"fps" help:"Frames per second" default:"8"`
	Quantizer  string         `help:"Palette derivation for frames with more than 255 colors" enum:"median,kmeans,dominant" default:"median"`
	Palette    string         `help:"Use a fixed palette: built-in name (bw, gameboy, gray16, pico8, vga16) or PAL file in RIFF format"`
	PaletteOut bool           `help:"Save the palette of every animation next to it as a PAL file" default:"false"`
	Pose       []string       `help:"Only animate these poses"`
	Quant      anim.Quantizer `kong:"-"`
	Pal        color.Palette  `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.FPS <= 0 {
		return fmt.Errorf("invalid frames per second: %g", c.FPS)
	}

	var err error
	if c.Quant, err = anim.ParseQuantizer(c.Quantizer); err != nil {
		return err
	}

	if c.Palette != "" {
		if c.Pal, err = palette.Load(c.Palette); err != nil {
			return err
		}
	}

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(filepath.Dir(c.Design), c.Dest)
	}
	return nil
}

type job struct {
	pose      int
	viewpoint string
}

func (c *CLICmd) Run(ctx context.Context, limit parallel.Limit, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	d, err := design.Load(c.Design)
	if err != nil {
		return err
	}
	if !d.Animated {
		return fmt.Errorf("design %q has no animation frames", d.Name)
	}
	want := make(map[int]bool, len(c.Pose))
	for _, name := range c.Pose {
		pi := d.PoseIndex(name)
		if pi < 0 {
			return fmt.Errorf("design %q has no pose %q", d.Name, name)
		}
		want[pi] = true
	}

	g, rep, err := d.Build(ctx, filepath.Dir(c.Design), int(limit))
	if err != nil {
		return fmt.Errorf("could not build design %q: %w", d.Name, err)
	}
	slog.Info("loaded", "design", d.Name, "frames", d.FramesPerPose(),
		"placed", rep.Placed, "mirrored", rep.Mirrored, "failed", len(rep.Failed))

	if err := fileop.MkdirAll(c.Dest); err != nil {
		return err
	}

	var jobs []job
	for pi, p := range d.Poses {
		if len(want) > 0 && !want[pi] {
			continue
		}
		for _, vp := range p.Viewpoints {
			jobs = append(jobs, job{pose: pi, viewpoint: vp})
		}
	}

	var animCount, skipCount, errCount atomic.Uint64
	for _, j := range jobs {
		worker(func(j job) func() {
			return func() {
				pose := d.Poses[j.pose].Name
				logger := slog.Default().With("pose", pose, "viewpoint", j.viewpoint)

				frames := design.AnimationFrames(g, d, j.pose, j.viewpoint)
				if !hasFrames(frames) {
					skipCount.Add(1)
					logger.Warn("no frames to animate")
					return
				}

				dest := filepath.Join(c.Dest, design.FileName(pose, j.viewpoint, "gif"))
				if err := c.animate(ctx, logger, d, frames, dest); err != nil {
					errCount.Add(1)
					logger.Error("could not write animation", "file", dest, "error", err)
					return
				}
				animCount.Add(1)
			}
		}(j))
	}

	wait(true)

	animations := animCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "animations", animations, "skipped", skipCount.Load(), "errors", errors,
		"total", len(jobs))

	if errors > 0 {
		return fmt.Errorf("error writing %d animations", errors)
	}
	return ctx.Err()
}

func hasFrames(frames []*sprite.Sprite) bool {
	for _, f := range frames {
		if f != nil {
			return true
		}
	}
	return false
}

func (c *CLICmd) animate(ctx context.Context, logger *slog.Logger, d *design.Design, frames []*sprite.Sprite, dest string) error {
	opts := anim.Options{
		Quantizer: c.Quant,
		Palette:   c.Pal,
		Key:       d.Key,
		Workers:   1,
	}

	var st anim.Stats
	n, err := fileop.WriteFile(dest, func(w io.Writer) error {
		var err error
		st, err = anim.Encode(ctx, w, frames, d.SpriteSize, c.FPS, opts)
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("animation written", "file", dest, "frames", st.Frames, "skipped", st.Skipped,
		"delay", st.Delay, "colors", len(st.Palette)-1, "size", humanize.Bytes(uint64(n)))

	if !c.PaletteOut {
		return nil
	}
	palDest := fileop.SwapExt(dest, ".pal")
	if _, err := fileop.WriteFile(palDest, func(w io.Writer) error {
		_, err := anim.WritePAL(w, st.Palette)
		return err
	}); err != nil {
		return fmt.Errorf("could not write palette %q: %w", palDest, err)
	}
	return nil
}
