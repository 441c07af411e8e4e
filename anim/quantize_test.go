package anim

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"
)

func manyColors(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 12), G: uint8(y * 12), B: uint8((x + y) * 6), A: 0xFF})
		}
	}
	return img
}

func checkPalette(t *testing.T, name string, pal color.Palette) {
	t.Helper()
	if len(pal) < 2 || len(pal) > MaxColors {
		t.Fatalf("%s: palette has %d entries", name, len(pal))
	}
	if pal[0] != color.Color(Transparent) {
		t.Errorf("%s: entry 0 = %v, want transparent", name, pal[0])
	}
	for i, c := range pal[1:] {
		if _, _, _, a := c.RGBA(); a != 0xFFFF {
			t.Errorf("%s: entry %d is not opaque: %v", name, i+1, c)
		}
	}
}

func TestDeriveExactPalette(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 9, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 1, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 9, A: 255})
	// transparent pixel must not claim an entry

	pal := DerivePalette(img, MedianCut)
	checkPalette(t, "exact", pal)
	want := color.Palette{Transparent, color.NRGBA{R: 1, A: 255}, color.NRGBA{R: 9, A: 255}}
	if len(pal) != len(want) {
		t.Fatalf("palette = %v, want %v", pal, want)
	}
	for i := range want {
		if pal[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, pal[i], want[i])
		}
	}
}

func TestDeriveEmptyFrame(t *testing.T) {
	pal := DerivePalette(image.NewNRGBA(image.Rect(0, 0, 8, 8)), MedianCut)
	checkPalette(t, "empty", pal)
	if len(pal) != 2 {
		t.Errorf("palette = %v, want transparent plus one filler", pal)
	}
}

func TestDeriveQuantized(t *testing.T) {
	img := manyColors(20, 20)

	for _, q := range []Quantizer{MedianCut, KMeans, Dominant} {
		checkPalette(t, q.String(), DerivePalette(img, q))
	}

	a := DerivePalette(img, MedianCut)
	b := DerivePalette(img, MedianCut)
	if len(a) != len(b) {
		t.Fatalf("median cut is not deterministic: %d vs %d entries", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("median cut is not deterministic at entry %d", i)
		}
	}
}

// sparseSprite is mostly transparent with a block of 400 distinct colors.
func sparseSprite() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := range 20 {
		for x := range 20 {
			img.SetNRGBA(22+x, 22+y, color.NRGBA{R: uint8(x * 13), G: uint8(y * 13), B: uint8(255 - x*y/2), A: 0xFF})
		}
	}
	return img
}

func TestDeriveSparseFrameKeepsColors(t *testing.T) {
	img := sparseSprite()
	for _, q := range []Quantizer{MedianCut, KMeans, Dominant} {
		pal := DerivePalette(img, q)
		checkPalette(t, q.String(), pal)
		if len(pal) < MaxColors/2 {
			t.Errorf("%s: palette has %d entries for 400 distinct colors", q, len(pal))
		}
	}
}

func TestSquarePixels(t *testing.T) {
	strip := opaquePixels(sparseSprite())
	if strip.Rect.Dx() != 400 || strip.Rect.Dy() != 1 {
		t.Fatalf("strip is %dx%d", strip.Rect.Dx(), strip.Rect.Dy())
	}
	sq := squarePixels(strip)
	if sq.Rect.Dx() != 20 || sq.Rect.Dy() != 20 {
		t.Errorf("square is %dx%d, want 20x20", sq.Rect.Dx(), sq.Rect.Dy())
	}

	odd := squarePixels(image.NewNRGBA(image.Rect(0, 0, 5, 1)))
	if odd.Rect.Dx() != 3 || odd.Rect.Dy() != 2 {
		t.Errorf("5 pixels packed into %dx%d, want 3x2", odd.Rect.Dx(), odd.Rect.Dy())
	}
}

func TestDeriveTransparentFrameWarns(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	pal := DerivePalette(image.NewNRGBA(image.Rect(0, 0, 8, 8)), MedianCut)
	if len(pal) != 2 {
		t.Errorf("palette has %d entries, want 2", len(pal))
	}
	if !strings.Contains(buf.String(), "no opaque pixels") {
		t.Errorf("no warning logged: %q", buf.String())
	}
}

func TestNormalizePalette(t *testing.T) {
	in := make(color.Palette, 0, 300)
	in = append(in, color.NRGBA{})
	for i := range 299 {
		in = append(in, color.NRGBA{R: uint8(i), G: 1, B: 2, A: 10})
	}

	pal := NormalizePalette(in)
	checkPalette(t, "normalized", pal)
	if len(pal) != MaxColors {
		t.Errorf("len = %d, want %d", len(pal), MaxColors)
	}
}

func TestParseQuantizer(t *testing.T) {
	for _, q := range []Quantizer{MedianCut, KMeans, Dominant} {
		got, err := ParseQuantizer(q.String())
		if err != nil || got != q {
			t.Errorf("ParseQuantizer(%q) = %v, %v", q.String(), got, err)
		}
	}
	if _, err := ParseQuantizer("octree"); err == nil {
		t.Errorf("ParseQuantizer accepted an unknown name")
	}
}

func TestPALRoundTrip(t *testing.T) {
	pal := color.Palette{
		color.NRGBA{R: 1, G: 2, B: 3, A: 255},
		color.NRGBA{R: 250, G: 128, B: 0, A: 255},
		color.RGBA{R: 9, G: 9, B: 9, A: 255},
	}

	var buf bytes.Buffer
	n, err := WritePAL(&buf, pal)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(12+8+4+len(pal)*4) {
		t.Errorf("wrote %d bytes", n)
	}

	got, err := ReadPAL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(pal) {
		t.Fatalf("read %d colors, want %d", len(got), len(pal))
	}
	for i := range pal {
		if opaqueOf(pal[i]) != got[i] {
			t.Errorf("color %d = %v, want %v", i, got[i], pal[i])
		}
	}
}

func TestReadPALRejectsOtherRIFF(t *testing.T) {
	wave := []byte("RIFF\x04\x00\x00\x00WAVE")
	if _, err := ReadPAL(bytes.NewReader(wave)); err == nil {
		t.Errorf("ReadPAL accepted a WAVE stream")
	}
}
