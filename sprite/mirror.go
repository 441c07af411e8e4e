package sprite

import (
	"image"

	"github.com/disintegration/imaging"
)

// Mirror reflects img left to right. Mirror(Mirror(img)) reproduces img
// byte for byte.
func Mirror(img *image.NRGBA) *image.NRGBA {
	return imaging.FlipH(img)
}
