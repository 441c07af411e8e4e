package animate

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"spriteforge/anim"
	"spriteforge/parallel"
)

var (
	magenta = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	blue    = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	yellow  = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
)

// frame draws a 2×4 figure on the key, shifted down by step.
func frame(step int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 12))
	for y := range 12 {
		for x := range 12 {
			img.SetNRGBA(x, y, magenta)
		}
	}
	for y := 2 + step; y < 6+step; y++ {
		img.SetNRGBA(4, y, blue)
		img.SetNRGBA(5, y, yellow)
	}
	return img
}

const layout = `
name = "Runner"
sprite_size = 4
animated = true
frame_count = 3

[[poses]]
name = "Run Cycle"
viewpoints = ["left", "right"]

[[poses]]
name = "Idle"
viewpoints = ["front"]

[[cells]]
pose = "Run Cycle"
frame = 0
viewpoint = "left"
image = "run0.png"

[[cells]]
pose = "Run Cycle"
frame = 1
viewpoint = "left"
image = "run1.png"

[[cells]]
pose = "Run Cycle"
frame = 2
viewpoint = "left"
image = "run2.png"
`

func writeDesign(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i := range 3 {
		if err := imaging.Save(frame(i), filepath.Join(dir, "run"+string(rune('0'+i))+".png")); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "runner.toml")
	if err := os.WriteFile(path, []byte(layout), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeGIF(t *testing.T, path string) *gif.GIF {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return g
}

func TestRun(t *testing.T) {
	path := writeDesign(t)
	cmd := &CLICmd{Design: path, Dest: "out", FPS: 10, Quantizer: "median", PaletteOut: true}
	if err := cmd.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	p := parallel.Start(2)
	if err := cmd.Run(context.Background(), parallel.Limit(2), p.Do, p.Wait); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{"run_cycle_left.gif", "run_cycle_right.gif"} {
		g := decodeGIF(t, filepath.Join(cmd.Dest, name))
		if len(g.Image) != 3 {
			t.Errorf("%s has %d frames, want 3", name, len(g.Image))
		}
		for i, d := range g.Delay {
			if d != 10 {
				t.Errorf("%s frame %d delay = %d, want 10", name, i, d)
			}
		}
		if g.LoopCount != 0 {
			t.Errorf("%s loop count = %d", name, g.LoopCount)
		}

		palPath := filepath.Join(cmd.Dest, name[:len(name)-len(".gif")]+".pal")
		f, err := os.Open(palPath)
		if err != nil {
			t.Errorf("palette not written: %v", err)
			continue
		}
		pal, err := anim.ReadPAL(f)
		f.Close()
		if err != nil || len(pal) < 3 {
			t.Errorf("palette %s = %v, %v", palPath, pal, err)
		}
	}

	if _, err := os.Stat(filepath.Join(cmd.Dest, "idle_front.gif")); err == nil {
		t.Errorf("animation written for a pose without frames")
	}
}

func TestRunFixedPaletteAndPoseFilter(t *testing.T) {
	path := writeDesign(t)
	cmd := &CLICmd{Design: path, Dest: "fixed", FPS: 4, Quantizer: "kmeans", Palette: "gameboy", Pose: []string{"run cycle"}}
	if err := cmd.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cmd.Pal) != 4 || cmd.Quant != anim.KMeans {
		t.Fatalf("palette %d colors, quantizer %v", len(cmd.Pal), cmd.Quant)
	}

	p := parallel.Start(1)
	if err := cmd.Run(context.Background(), parallel.Limit(1), p.Do, p.Wait); err != nil {
		t.Fatalf("Run: %v", err)
	}
	g := decodeGIF(t, filepath.Join(cmd.Dest, "run_cycle_left.gif"))
	pal, ok := g.Config.ColorModel.(color.Palette)
	if !ok || len(pal) < 5 {
		t.Fatalf("global palette = %v, want transparent + 4 gameboy colors", g.Config.ColorModel)
	}
	for i, c := range cmd.Pal {
		if got := color.NRGBAModel.Convert(pal[i+1]); got != c {
			t.Errorf("palette entry %d = %v, want %v", i+1, got, c)
		}
	}
	if g.Delay[0] != 25 {
		t.Errorf("delay = %d, want 25", g.Delay[0])
	}
}

func TestRunPoseByFileName(t *testing.T) {
	path := writeDesign(t)
	cmd := &CLICmd{Design: path, Dest: filepath.Join(t.TempDir(), "slug"), FPS: 8, Quantizer: "median", Pose: []string{"run_cycle"}}
	if err := cmd.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	p := parallel.Start(1)
	if err := cmd.Run(context.Background(), parallel.Limit(1), p.Do, p.Wait); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"run_cycle_left.gif", "run_cycle_right.gif"} {
		if _, err := os.Stat(filepath.Join(cmd.Dest, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunRejects(t *testing.T) {
	path := writeDesign(t)

	cmd := &CLICmd{Design: path, Dest: "x", FPS: 8, Quantizer: "median", Pose: []string{"Swim"}}
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}
	p := parallel.Start(1)
	if err := cmd.Run(context.Background(), parallel.Limit(1), p.Do, p.Wait); err == nil {
		t.Errorf("unknown pose accepted")
	}

	static := filepath.Join(filepath.Dir(path), "static.toml")
	if err := os.WriteFile(static, []byte("name = \"Still\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd = &CLICmd{Design: static, Dest: "x", FPS: 8, Quantizer: "median"}
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(context.Background(), parallel.Limit(1), p.Do, p.Wait); err == nil {
		t.Errorf("design without animation accepted")
	}

	for name, bad := range map[string]CLICmd{
		"fps":       {Design: path, FPS: 0, Quantizer: "median"},
		"quantizer": {Design: path, FPS: 8, Quantizer: "octree"},
		"palette":   {Design: path, FPS: 8, Quantizer: "median", Palette: "no-such-palette"},
	} {
		if err := bad.Validate(nil); err == nil {
			t.Errorf("%s: Validate succeeded", name)
		}
	}
}
