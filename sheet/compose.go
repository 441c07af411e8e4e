package sheet

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/draw"

	"spriteforge/chroma"
	"spriteforge/parallel"
	"spriteforge/sprite"
)

type Options struct {
	Key     chroma.Key
	Workers int
}

// Compose lays every sprite of g onto a transparent canvas of
// (cols*size)×(rows*size) pixels, cell (r, c) at (c*size, r*size). Sprites
// without a processed buffer of the requested size are extracted from
// their raw buffer first. Holes stay transparent and an empty grid gives a
// 0×0 canvas.
func Compose(ctx context.Context, g Grid, size int, opts Options) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: sprite size %d", sprite.ErrInvalidInput, size)
	}

	key := opts.Key
	if key == (chroma.Key{}) {
		key = chroma.Magenta
	}

	rows, cols := g.Rows(), g.Cols()
	tiles, err := parallel.Map(ctx, opts.Workers, rows*cols, func(ctx context.Context, i int) (*image.NRGBA, error) {
		s := g.At(i/cols, i%cols)
		if s == nil {
			return nil, nil
		}
		s, err := s.Reprocess(ctx, size, key)
		if err != nil {
			return nil, fmt.Errorf("could not extract cell (%d, %d): %w", i/cols, i%cols, err)
		}
		if s.Size() != size {
			slog.Debug("skipping cell of wrong size", "row", i/cols, "col", i%cols, "size", s.Size(), "want", size)
			return nil, nil
		}
		return s.Processed, nil
	})
	if err != nil {
		return nil, err
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, cols*size, rows*size))
	for i, tile := range tiles {
		if tile == nil {
			continue
		}
		blit(canvas, tile, (i%cols)*size, (i/cols)*size)
	}
	return canvas, nil
}

// blit overwrites the area of dst at (x, y) with src byte for byte, so
// straight alpha survives without a premultiply round trip.
func blit(dst, src *image.NRGBA, x, y int) {
	w := src.Rect.Dx() * 4
	for sy := range src.Rect.Dy() {
		si := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+sy)
		copy(dst.Pix[dst.PixOffset(x, y+sy):], src.Pix[si:si+w])
	}
}

// Scale enlarges img by an integer factor with nearest-neighbour sampling,
// for previews of small pixel art.
func Scale(img *image.NRGBA, factor int) *image.NRGBA {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
