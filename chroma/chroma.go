package chroma

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Key describes a chroma-key background as a band in HSL space.
// Hue is in degrees, saturation and lightness in [0, 1].
type Key struct {
	HueMin        float64 `toml:"hue_min"`
	HueMax        float64 `toml:"hue_max"`
	MinSaturation float64 `toml:"min_saturation"`
	MinLightness  float64 `toml:"min_lightness"`
	MaxLightness  float64 `toml:"max_lightness"`
}

// Magenta matches the #FF00FF background the generator is asked to paint,
// wide enough to absorb compression noise and anti-aliased edges.
var Magenta = Key{
	HueMin:        285,
	HueMax:        340,
	MinSaturation: 0.4,
	MinLightness:  0.2,
	MaxLightness:  0.95,
}

// IsBackground reports whether r, g, b falls inside the key. The hue band
// is inclusive, saturation and lightness bounds are exclusive.
func (k Key) IsBackground(r, g, b uint8) bool {
	h, s, l := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Hsl()

	if h < k.HueMin || h > k.HueMax {
		return false
	}
	if s <= k.MinSaturation {
		return false
	}
	return l > k.MinLightness && l < k.MaxLightness
}

func (k Key) Validate() error {
	switch {
	case k.HueMin < 0 || k.HueMax > 360 || k.HueMin > k.HueMax:
		return fmt.Errorf("invalid hue band: [%g, %g]", k.HueMin, k.HueMax)
	case k.MinSaturation < 0 || k.MinSaturation >= 1:
		return fmt.Errorf("invalid minimum saturation: %g", k.MinSaturation)
	case k.MinLightness < 0 || k.MaxLightness > 1 || k.MinLightness >= k.MaxLightness:
		return fmt.Errorf("invalid lightness band: (%g, %g)", k.MinLightness, k.MaxLightness)
	}
	return nil
}

// IsBackground classifies against Magenta.
func IsBackground(r, g, b uint8) bool {
	return Magenta.IsBackground(r, g, b)
}
