package design

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"spriteforge/sheet"
	"spriteforge/sprite"
)

// WriteJSON exports d with the sprites of g embedded as data URIs, in the
// same format LoadJSON reads. Raw images keep their chroma-key background,
// previews are the extracted sprites.
func (d *Design) WriteJSON(w io.Writer, g sheet.Grid, modified time.Time) error {
	animated := d.Animated
	jd := jsonDesign{
		ID:                d.ID,
		Name:              d.Name,
		Prompt:            d.Prompt,
		SpriteSize:        d.SpriteSize,
		FrameCount:        d.FrameCount,
		GenerateAnimation: &animated,
		SpriteGrid:        make([][]*jsonSprite, g.Rows()),
		CreatedAt:         modified.UnixMilli(),
		LastModified:      modified.UnixMilli(),
	}
	if jd.ID == "" {
		jd.ID = fmt.Sprint(modified.UnixMilli())
	}
	for i, p := range d.Poses {
		jd.AnimationPoses = append(jd.AnimationPoses, jsonPose{
			ID:         fmt.Sprintf("pose-%d", i),
			Name:       p.Name,
			Prompt:     p.Prompt,
			Viewpoints: p.Viewpoints,
		})
	}

	for r := range g.Rows() {
		row := make([]*jsonSprite, g.Cols())
		for c := range row {
			s := g.At(r, c)
			if s == nil {
				continue
			}
			js, err := exportSprite(s)
			if err != nil {
				return fmt.Errorf("could not export cell (%d, %d): %w", r, c, err)
			}
			row[c] = js
		}
		jd.SpriteGrid[r] = row
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jd); err != nil {
		return fmt.Errorf("could not write design: %w", err)
	}
	return nil
}

func exportSprite(s *sprite.Sprite) (*jsonSprite, error) {
	js := &jsonSprite{ID: s.ID, Prompt: s.Prompt}
	raw := s.Raw
	if raw == nil {
		raw = s.Processed
	}
	if raw == nil {
		return nil, fmt.Errorf("sprite %s has no pixels", s.ID)
	}

	var err error
	if js.ImageURL, err = sprite.EncodeDataURI(raw); err != nil {
		return nil, err
	}
	if s.Processed != nil {
		if js.PreviewURL, err = sprite.EncodeDataURI(s.Processed); err != nil {
			return nil, err
		}
	}
	return js, nil
}
