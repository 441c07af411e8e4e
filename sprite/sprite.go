package sprite

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"image"

	"github.com/zeebo/blake3"

	"spriteforge/chroma"
)

// Sprite is one generated character image. Raw still carries the chroma-key
// background, Processed is the size×size transparent version derived from
// it. A Sprite is never modified once built; edits produce a new value.
type Sprite struct {
	ID        string
	Raw       *image.NRGBA
	Processed *image.NRGBA
	Prompt    string
}

// New extracts raw into a size×size sprite.
func New(ctx context.Context, raw *image.NRGBA, prompt string, size int, key chroma.Key) (*Sprite, error) {
	processed, err := Extract(ctx, raw, size, key)
	if err != nil {
		return nil, err
	}
	return &Sprite{
		ID:        spriteID("raw", raw, prompt),
		Raw:       raw,
		Processed: processed,
		Prompt:    prompt,
	}, nil
}

// Size is the edge length of the processed buffer, 0 if there is none.
func (s *Sprite) Size() int {
	if s == nil || s.Processed == nil {
		return 0
	}
	return s.Processed.Rect.Dx()
}

// Empty reports whether the processed buffer has no visible pixel.
func (s *Sprite) Empty() bool {
	if s.Size() == 0 {
		return true
	}
	for i := 3; i < len(s.Processed.Pix); i += 4 {
		if s.Processed.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Mirrored returns the left-right reflection of s as a new sprite. Using it
// in place of a generated opposite viewpoint assumes the character is
// bilaterally symmetric; that is for the caller to decide.
func (s *Sprite) Mirrored() *Sprite {
	m := &Sprite{
		ID:     spriteID("mirror:"+s.ID, nil, s.Prompt),
		Prompt: s.Prompt,
	}
	if s.Raw != nil {
		m.Raw = Mirror(s.Raw)
	}
	if s.Processed != nil {
		m.Processed = Mirror(s.Processed)
	}
	return m
}

// Reprocess returns s re-extracted from its raw buffer at size. s is
// returned unchanged when it already has a processed buffer of that size
// or has no raw buffer to work from.
func (s *Sprite) Reprocess(ctx context.Context, size int, key chroma.Key) (*Sprite, error) {
	if s.Size() == size || s.Raw == nil {
		return s, nil
	}
	processed, err := Extract(ctx, s.Raw, size, key)
	if err != nil {
		return nil, err
	}
	return &Sprite{
		ID:        s.ID,
		Raw:       s.Raw,
		Processed: processed,
		Prompt:    s.Prompt,
	}, nil
}

func spriteID(kind string, img *image.NRGBA, prompt string) string {
	h := blake3.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	if img != nil {
		var dim [8]byte
		binary.LittleEndian.PutUint32(dim[:4], uint32(img.Rect.Dx()))
		binary.LittleEndian.PutUint32(dim[4:], uint32(img.Rect.Dy()))
		h.Write(dim[:])
		h.Write(img.Pix)
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}
