// based on:
// https://bottosson.github.io/posts/oklab/

package anim

import (
	"image/color"
	"math"
)

type lab struct {
	L float64 // perceived lightness
	A float64 // how green/red the color is
	B float64 // how blue/yellow the color is
}

func labOf(r, g, b uint8) lab {
	lr, lg, lb := toLinear(float64(r)/255), toLinear(float64(g)/255), toLinear(float64(b)/255)

	l := math.Cbrt(0.4122214708*lr + 0.5363325363*lg + 0.0514459929*lb)
	m := math.Cbrt(0.2119034982*lr + 0.6806995451*lg + 0.1073969566*lb)
	s := math.Cbrt(0.0883024619*lr + 0.2817188376*lg + 0.6299787005*lb)

	return lab{
		L: 0.2104542553*l + 0.7936177850*m - 0.0040720468*s,
		A: 1.9779984951*l - 2.4285922050*m + 0.4505937099*s,
		B: 0.0259040371*l + 0.7827717662*m - 0.8086757660*s,
	}
}

func toLinear(x float64) float64 {
	if x >= 0.04045 {
		return math.Pow((x+0.055)/1.055, 2.4)
	}
	return x / 12.92
}

// matcher maps opaque colors to the perceptually nearest palette entry.
// Entry 0 is the transparent slot and never matched.
type matcher struct {
	pal   []lab
	cache map[uint32]uint8
}

func newMatcher(p color.Palette) *matcher {
	m := &matcher{
		pal:   make([]lab, len(p)),
		cache: make(map[uint32]uint8),
	}
	for i, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		m.pal[i] = labOf(n.R, n.G, n.B)
	}
	return m
}

func (m *matcher) index(r, g, b uint8) uint8 {
	key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if i, ok := m.cache[key]; ok {
		return i
	}

	lc := labOf(r, g, b)
	ret, bestSum := 1, math.MaxFloat64
	for i := 1; i < len(m.pal); i++ {
		v := m.pal[i]
		dL := lc.L - v.L
		da := lc.A - v.A
		db := lc.B - v.B
		sum := dL*dL + da*da + db*db
		if sum < bestSum {
			ret, bestSum = i, sum
			if sum == 0 {
				break
			}
		}
	}

	m.cache[key] = uint8(ret)
	return uint8(ret)
}
