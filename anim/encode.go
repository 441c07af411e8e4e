package anim

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"log/slog"
	"math"
	"time"

	"spriteforge/chroma"
	"spriteforge/parallel"
	"spriteforge/sprite"
)

type Options struct {
	Quantizer Quantizer
	// Palette, when set, is used instead of deriving one from the first
	// frame. It is normalized with NormalizePalette.
	Palette color.Palette
	Key     chroma.Key
	Workers int
}

type Stats struct {
	Frames  int
	Skipped int
	Delay   time.Duration
	Palette color.Palette
}

// FrameDelay is the display time of one frame, rounded to a millisecond.
func FrameDelay(fps float64) time.Duration {
	return time.Duration(math.Round(1000/fps)) * time.Millisecond
}

// gif delays are in hundredths of a second
func gifDelay(d time.Duration) int {
	return max(1, int(math.Round(float64(d.Milliseconds())/10)))
}

// Encode writes frames as a looping GIF of size×size pixels. Frames that are
// nil or have no pixel data are skipped; frames processed at another size
// are re-extracted from their raw buffer. Every frame is quantized against
// one palette taken from the first usable frame, with entry 0 transparent,
// and is disposed to background before the next one is drawn.
func Encode(ctx context.Context, w io.Writer, frames []*sprite.Sprite, size int, fps float64, opts Options) (Stats, error) {
	var st Stats
	if size <= 0 {
		return st, fmt.Errorf("%w: sprite size %d", sprite.ErrInvalidInput, size)
	}
	if fps <= 0 || math.IsInf(fps, 0) || math.IsNaN(fps) {
		return st, fmt.Errorf("%w: frames per second %g", sprite.ErrInvalidInput, fps)
	}

	key := opts.Key
	if key == (chroma.Key{}) {
		key = chroma.Magenta
	}

	ready, err := parallel.Map(ctx, opts.Workers, len(frames), func(ctx context.Context, i int) (*image.NRGBA, error) {
		s := frames[i]
		if s == nil || (s.Processed == nil && s.Raw == nil) {
			slog.Debug("skipping frame without pixels", "frame", i)
			return nil, nil
		}
		s, err := s.Reprocess(ctx, size, key)
		if err != nil {
			return nil, fmt.Errorf("could not extract frame %d: %w", i, err)
		}
		if s.Size() != size {
			slog.Debug("skipping frame of wrong size", "frame", i, "size", s.Size(), "want", size)
			return nil, nil
		}
		return s.Processed, nil
	})
	if err != nil {
		return st, err
	}

	usable := make([]*image.NRGBA, 0, len(ready))
	for _, img := range ready {
		if img != nil {
			usable = append(usable, img)
		}
	}
	st.Skipped = len(frames) - len(usable)
	if len(usable) == 0 {
		return st, fmt.Errorf("%w: no frames to animate", sprite.ErrInvalidInput)
	}

	pal := opts.Palette
	if pal == nil {
		pal = DerivePalette(usable[0], opts.Quantizer)
	} else {
		pal = NormalizePalette(pal)
	}

	paletted, err := parallel.Map(ctx, opts.Workers, len(usable), func(ctx context.Context, i int) (*image.Paletted, error) {
		return toPaletted(ctx, usable[i], pal)
	})
	if err != nil {
		return st, err
	}

	st.Frames = len(paletted)
	st.Delay = FrameDelay(fps)
	st.Palette = pal

	g := &gif.GIF{
		Image:     paletted,
		Delay:     make([]int, len(paletted)),
		Disposal:  make([]byte, len(paletted)),
		LoopCount: 0,
		Config: image.Config{
			ColorModel: pal,
			Width:      size,
			Height:     size,
		},
		BackgroundIndex: 0,
	}
	for i := range paletted {
		g.Delay[i] = gifDelay(st.Delay)
		g.Disposal[i] = gif.DisposalBackground
	}

	if err := gif.EncodeAll(w, g); err != nil {
		return st, fmt.Errorf("could not encode GIF: %w", err)
	}
	return st, nil
}

func toPaletted(ctx context.Context, img *image.NRGBA, pal color.Palette) (*image.Paletted, error) {
	b := img.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)
	m := newMatcher(pal)

	for y := range b.Dy() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		row := dst.Pix[y*dst.Stride:]
		for x := range b.Dx() {
			px := src[x*4 : x*4+4]
			if px[3] == 0 {
				row[x] = 0
				continue
			}
			row[x] = m.index(px[0], px[1], px[2])
		}
	}
	return dst, nil
}
