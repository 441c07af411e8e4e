package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"spriteforge/chroma"
	"spriteforge/design"
	"spriteforge/parallel"
	"spriteforge/sheet"
	"spriteforge/sprite"
)

var (
	magenta = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	blue    = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	yellow  = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
)

func character() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := range 10 {
		for x := range 10 {
			img.SetNRGBA(x, y, magenta)
		}
	}
	for y := 3; y < 7; y++ {
		img.SetNRGBA(3, y, blue)
		img.SetNRGBA(4, y, blue)
		img.SetNRGBA(5, y, yellow)
		img.SetNRGBA(6, y, yellow)
	}
	return img
}

const layout = `
name = "Scout"
sprite_size = 4

[[poses]]
name = "Standing"
viewpoints = ["front", "left", "right"]

[[cells]]
viewpoint = "front"
image = "front.png"

[[cells]]
viewpoint = "left"
image = "left.png"
`

func writeDesign(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"front.png", "left.png"} {
		if err := imaging.Save(character(), filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "scout.toml")
	if err := os.WriteFile(path, []byte(layout), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	path := writeDesign(t)
	cmd := &CLICmd{
		Design:   path,
		Out:      "sheet.png",
		Manifest: "sheet.json",
		Export:   "export.json",
		Scale:    1,
		Mirror:   true,
	}
	if err := cmd.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := cmd.Run(context.Background(), parallel.Limit(2)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	img, err := sprite.DecodeFile(cmd.Out)
	if err != nil {
		t.Fatalf("decode sheet: %v", err)
	}
	if img.Rect.Dx() != 16 || img.Rect.Dy() != 4 {
		t.Fatalf("sheet is %dx%d, want 16x4", img.Rect.Dx(), img.Rect.Dy())
	}

	want, _ := sprite.Extract(context.Background(), character(), 4, chroma.Magenta)
	cell := func(col int) []byte {
		return img.SubImage(image.Rect(col*4, 0, col*4+4, 4)).(*image.NRGBA).Pix
	}
	rowBytes := func(pix []byte) []byte {
		var out []byte
		for y := range 4 {
			out = append(out, pix[y*img.Stride:y*img.Stride+16]...)
		}
		return out
	}
	if got := rowBytes(cell(0)); !bytes.Equal(got, want.Pix) {
		t.Errorf("front cell = %v, want %v", got, want.Pix)
	}
	if got := rowBytes(cell(1)); !bytes.Equal(got, make([]byte, 64)) {
		t.Errorf("back cell is not empty")
	}
	if got := rowBytes(cell(3)); !bytes.Equal(got, sprite.Mirror(want).Pix) {
		t.Errorf("right cell is not mirrored")
	}

	b, err := os.ReadFile(cmd.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	var m sheet.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.Image != "sheet.png" || len(m.Cells) != 3 || m.Cells[2].Viewpoint != "right" || m.Cells[2].X != 12 {
		t.Errorf("manifest = %+v", m)
	}

	f, err := os.Open(cmd.Export)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	designs, err := design.LoadJSON(f)
	if err != nil || len(designs) != 1 || designs[0].Name != "Scout" {
		t.Errorf("export = %v, %v", designs, err)
	}
}

func TestRunScaledWithoutMirror(t *testing.T) {
	path := writeDesign(t)
	cmd := &CLICmd{Design: path, Out: "big.png", Scale: 3}
	if err := cmd.Validate(nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := cmd.Run(context.Background(), parallel.Limit(1)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	img, err := sprite.DecodeFile(cmd.Out)
	if err != nil {
		t.Fatal(err)
	}
	if img.Rect.Dx() != 48 || img.Rect.Dy() != 12 {
		t.Errorf("sheet is %dx%d, want 48x12", img.Rect.Dx(), img.Rect.Dy())
	}
	for y := range 12 {
		for x := 36; x < 48; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				t.Fatalf("right cell filled at (%d, %d) with mirroring off", x, y)
			}
		}
	}
}

func TestRunReportsMissingCells(t *testing.T) {
	path := writeDesign(t)
	if err := os.Remove(filepath.Join(filepath.Dir(path), "front.png")); err != nil {
		t.Fatal(err)
	}
	cmd := &CLICmd{Design: path, Out: "sheet.png", Scale: 1, Mirror: true}
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(context.Background(), parallel.Limit(1)); err == nil {
		t.Errorf("Run succeeded with a missing cell image")
	}
	if _, err := os.Stat(cmd.Out); err != nil {
		t.Errorf("sheet not written despite the hole: %v", err)
	}
}
