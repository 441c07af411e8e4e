package sheet

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"

	"spriteforge/sprite"
)

// EncodePNG writes img as a best-compression PNG. A canvas without pixels
// has no PNG representation and is rejected.
func EncodePNG(w io.Writer, img image.Image) error {
	if b := img.Bounds(); b.Empty() {
		return fmt.Errorf("%w: empty canvas %dx%d", sprite.ErrInvalidInput, b.Dx(), b.Dy())
	}

	enc := png.Encoder{
		CompressionLevel: png.BestCompression,
		BufferPool:       pngPool,
	}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("could not encode PNG: %w", err)
	}
	return nil
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
