package anim

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// MaxColors is the GIF palette limit, transparent slot included.
const MaxColors = 256

// Transparent is always palette entry 0.
var Transparent = color.NRGBA{}

type Quantizer int

const (
	MedianCut Quantizer = iota
	KMeans
	Dominant
)

func (q Quantizer) String() string {
	switch q {
	case KMeans:
		return "kmeans"
	case Dominant:
		return "dominant"
	default:
		return "median"
	}
}

func ParseQuantizer(s string) (Quantizer, error) {
	switch s {
	case "", "median":
		return MedianCut, nil
	case "kmeans":
		return KMeans, nil
	case "dominant":
		return Dominant, nil
	}
	return MedianCut, fmt.Errorf("unknown quantizer %q", s)
}

// DerivePalette builds a palette from ref with Transparent at index 0 and
// at most MaxColors-1 opaque entries. When ref has few enough distinct
// opaque colors they are used as is, otherwise q reduces them.
func DerivePalette(ref *image.NRGBA, q Quantizer) color.Palette {
	opaque := opaquePixels(ref)
	if opaque.Rect.Dx() == 0 {
		slog.Warn("reference frame has no opaque pixels, palette holds only a black filler",
			"width", ref.Rect.Dx(), "height", ref.Rect.Dy())
	}

	pal := make(color.Palette, 0, MaxColors)
	pal = append(pal, Transparent)

	if exact, ok := exactColors(opaque, MaxColors-1); ok {
		for _, c := range exact {
			pal = append(pal, c)
		}
		return padPalette(pal)
	}

	switch q {
	case KMeans:
		pal = appendColorful(pal, kmeansColors(opaque, MaxColors-1))
		if len(pal) == 1 {
			slog.Warn("kmeans returned empty palette, falling back to median cut")
		}
	case Dominant:
		pal = appendColorful(pal, dominantColors(squarePixels(opaque), MaxColors-1))
	}
	// kmeans drops empty clusters and dominantcolor stops seeding early on
	// sparse input; median cut fills whatever capacity they leave.
	slog.Debug("seeded palette", "quantizer", q, "colors", len(pal)-1)

	mc := quantize.MedianCutQuantizer{AddTransparent: false}
	pal = mc.Quantize(pal, opaque)
	return padPalette(normalizePalette(pal))
}

// NormalizePalette turns an arbitrary palette into the shape Encode expects:
// Transparent first, every other entry fully opaque, no more than MaxColors.
func NormalizePalette(p color.Palette) color.Palette {
	pal := make(color.Palette, 0, MaxColors)
	pal = append(pal, Transparent)
	for _, c := range p {
		if len(pal) == MaxColors {
			break
		}
		if _, _, _, a := c.RGBA(); a == 0 {
			continue
		}
		pal = append(pal, opaqueOf(c))
	}
	return padPalette(pal)
}

func normalizePalette(p color.Palette) color.Palette {
	for i := 1; i < len(p); i++ {
		p[i] = opaqueOf(p[i])
	}
	return p
}

func opaqueOf(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xFF
	return n
}

// a GIF color table holds at least two entries
func padPalette(p color.Palette) color.Palette {
	if len(p) < 2 {
		p = append(p, color.NRGBA{A: 0xFF})
	}
	return p
}

// opaquePixels packs every non-transparent pixel of img into a one-row
// opaque image so quantizers never spend an entry on the background.
func opaquePixels(img *image.NRGBA) *image.NRGBA {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			n++
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, n, 1))
	j := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 0 {
			continue
		}
		copy(out.Pix[j:j+3], img.Pix[i:i+3])
		out.Pix[j+3] = 0xFF
		j += 4
	}
	return out
}

// squarePixels rearranges a one-row strip into a near-square image,
// repeating leading pixels to fill the last row. dominantcolor shrinks
// wide strips to a zero height.
func squarePixels(strip *image.NRGBA) *image.NRGBA {
	n := strip.Rect.Dx()
	if n == 0 {
		return strip
	}
	w := int(math.Ceil(math.Sqrt(float64(n))))
	h := (n + w - 1) / w

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(out.Pix); i += 4 {
		j := (i / 4) % n * 4
		copy(out.Pix[i:i+4], strip.Pix[j:j+4])
	}
	return out
}

func exactColors(img *image.NRGBA, limit int) ([]color.NRGBA, bool) {
	seen := make(map[uint32]struct{})
	for i := 0; i < len(img.Pix); i += 4 {
		seen[uint32(img.Pix[i])<<16|uint32(img.Pix[i+1])<<8|uint32(img.Pix[i+2])] = struct{}{}
		if len(seen) > limit {
			return nil, false
		}
	}

	keys := make([]uint32, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]color.NRGBA, len(keys))
	for i, k := range keys {
		out[i] = color.NRGBA{R: uint8(k >> 16), G: uint8(k >> 8), B: uint8(k), A: 0xFF}
	}
	return out, true
}

func appendColorful(p color.Palette, cols []colorful.Color) color.Palette {
	for _, c := range cols {
		r, g, b := c.Clamped().RGB255()
		p = append(p, color.NRGBA{R: r, G: g, B: b, A: 0xFF})
	}
	return p
}

func kmeansColors(img *image.NRGBA, k int) []colorful.Color {
	width := img.Rect.Dx()
	if width == 0 {
		return nil
	}

	// subsample to keep kmeans tractable on large frames
	maxSamples := 12000
	step := 1
	if width > maxSamples {
		step = int(math.Ceil(float64(width) / float64(maxSamples)))
	}

	dataset := make(clusters.Observations, 0, min(width, maxSamples))
	for x := 0; x < width; x += step {
		i := x * 4
		dataset = append(dataset, clusters.Coordinates{
			float64(img.Pix[i]) / 255,
			float64(img.Pix[i+1]) / 255,
			float64(img.Pix[i+2]) / 255,
		})
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, min(k, len(dataset)))
	if err != nil || len(cc) == 0 {
		return nil
	}

	// most populated clusters first
	slices.SortStableFunc(cc, func(a, b clusters.Cluster) int {
		return cmp.Compare(len(b.Observations), len(a.Observations))
	})

	out := make([]colorful.Color, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 3 {
			continue
		}
		out = append(out, colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]})
	}
	return out
}

func dominantColors(img *image.NRGBA, k int) []colorful.Color {
	cands := dominantcolor.FindWeight(img, k)
	out := make([]colorful.Color, 0, len(cands))
	for _, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, col)
	}
	return out
}
