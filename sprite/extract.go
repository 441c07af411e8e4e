package sprite

import (
	"context"
	"fmt"
	"image"
	"math"

	"spriteforge/chroma"
)

// Bounds returns the smallest rectangle covering every pixel of img that is
// not background under key. ok is false when the whole image is background.
func Bounds(img *image.NRGBA, key chroma.Key) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			i := (x - b.Min.X) * 4
			if key.IsBackground(row[i], row[i+1], row[i+2]) {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Crop is a square window in source coordinates. Its origin may be
// fractional and may lie outside the source image.
type Crop struct {
	X, Y float64
	Side float64
}

// SquareCrop centers r inside a square whose side is r's longer edge.
func SquareCrop(r image.Rectangle) Crop {
	w, h := float64(r.Dx()), float64(r.Dy())
	side := max(w, h)
	return Crop{
		X:    float64(r.Min.X) - (side-w)/2,
		Y:    float64(r.Min.Y) - (side-h)/2,
		Side: side,
	}
}

// Sample maps output pixel (x, y) of a size×size sprite to the source pixel
// at the center of its block, clamped into bounds.
func (c Crop) Sample(x, y, size int, bounds image.Rectangle) (int, int) {
	step := c.Side / float64(size)
	sx := int(math.Floor(c.X + float64(x)*step + step/2))
	sy := int(math.Floor(c.Y + float64(y)*step + step/2))
	return clamp(sx, bounds.Min.X, bounds.Max.X-1), clamp(sy, bounds.Min.Y, bounds.Max.Y-1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Extract crops img to the square around its non-background content and
// nearest-neighbour downsamples it to size×size. Background samples become
// fully transparent with zeroed color; everything else is copied verbatim.
// An all-background img yields a fully transparent sprite.
func Extract(ctx context.Context, img *image.NRGBA, size int, key chroma.Key) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: sprite size %d", ErrInvalidInput, size)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	box, ok := Bounds(img, key)
	if !ok {
		return dst, nil
	}

	crop := SquareCrop(box)
	b := img.Bounds()
	for y := range size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := range size {
			sx, sy := crop.Sample(x, y, size, b)
			si := img.PixOffset(sx, sy)
			px := img.Pix[si : si+4 : si+4]
			if key.IsBackground(px[0], px[1], px[2]) {
				continue
			}
			copy(dst.Pix[dst.PixOffset(x, y):], px)
		}
	}
	return dst, nil
}
