package aperture

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// blurAlpha gaussian blurs a mask with the given standard deviation,
// keeping the mask's canvas bounds. A non-positive sigma copies.
func blurAlpha(src *image.Alpha, sigma float64) *image.Alpha {
	dst := image.NewAlpha(src.Rect)
	if sigma <= 0 || src.Rect.Empty() {
		copy(dst.Pix, src.Pix)
		return dst
	}

	blurred := imaging.Blur(src, sigma)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for y := 0; y < h; y++ {
		row := blurred.Pix[y*blurred.Stride : y*blurred.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range out {
			out[x] = row[x*4+3]
		}
	}
	return dst
}

// blurReach is how far a blur of sigma spreads a hard edge.
func blurReach(sigma float64) int {
	if sigma <= 0 {
		return 0
	}
	return int(math.Ceil(sigma*3)) + 1
}
