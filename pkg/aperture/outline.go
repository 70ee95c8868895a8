package aperture

import (
	"image"
	"image/color"
	"math"
)

type OutlineStyle struct {
	Width    float64
	Color    color.NRGBA
	Softness float64
}

// BuildOutline derives a ring hugging the outside of the aperture. The
// solid base is dilated by a blur at least as wide as the ring, filled
// with the outline colour, then everything the matte covers is erased.
// An optional softening blur is applied last.
func BuildOutline(base, matte *image.Alpha, style OutlineStyle) *image.RGBA {
	dilated := blurAlpha(base, math.Max(1, style.Width))

	ring := image.NewAlpha(base.Rect)
	ca := uint32(style.Color.A)
	for y := base.Rect.Min.Y; y < base.Rect.Max.Y; y++ {
		for x := base.Rect.Min.X; x < base.Rect.Max.X; x++ {
			// source-in
			a := uint32(dilated.AlphaAt(x, y).A) * ca / 0xff
			// destination-out, the matte reads as zero outside its bounds
			a = a * (0xff - uint32(matte.AlphaAt(x, y).A)) / 0xff
			ring.SetAlpha(x, y, color.Alpha{A: uint8(a)})
		}
	}

	if style.Softness > 0 {
		ring = blurAlpha(ring, style.Softness)
	}

	return tint(ring, style.Color)
}

// tint turns an alpha footprint into premultiplied colour.
func tint(mask *image.Alpha, c color.NRGBA) *image.RGBA {
	out := image.NewRGBA(mask.Rect)
	r, g, b := uint32(c.R), uint32(c.G), uint32(c.B)
	for y := mask.Rect.Min.Y; y < mask.Rect.Max.Y; y++ {
		for x := mask.Rect.Min.X; x < mask.Rect.Max.X; x++ {
			a := uint32(mask.AlphaAt(x, y).A)
			if a == 0 {
				continue
			}
			out.SetRGBA(x, y, color.RGBA{
				R: uint8(r * a / 0xff), G: uint8(g * a / 0xff), B: uint8(b * a / 0xff), A: uint8(a),
			})
		}
	}
	return out
}
