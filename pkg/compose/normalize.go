package compose

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Normalizer redraws raw camera frames upright into a fixed size
// portrait buffer. A 90 degree rotation swaps the roles of the
// source's width and height.
type Normalizer struct {
	Rotate int
	Mirror bool
	Kernel draw.Transformer

	buf *image.RGBA
}

func NewNormalizer(w, h, rotate int, mirror bool) *Normalizer {
	return &Normalizer{
		Rotate: rotate,
		Mirror: mirror,
		Kernel: draw.ApproxBiLinear,
		buf:    image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// Frame is the normalised buffer, overwritten by every Normalize call.
func (n *Normalizer) Frame() *image.RGBA { return n.buf }

// Normalize clears the buffer and draws src into it. A source with no
// pixels yet leaves the buffer alone and reports false.
func (n *Normalizer) Normalize(src image.Image) bool {
	if src == nil {
		return false
	}
	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 {
		return false
	}

	for i := range n.buf.Pix {
		n.buf.Pix[i] = 0
	}
	n.Kernel.Transform(n.buf, n.transform(sb), src, sb, draw.Src, nil)
	return true
}

// transform is translate to centre, rotate, mirror, then scale the
// source to exactly fill the (possibly swapped) target extents.
func (n *Normalizer) transform(sb image.Rectangle) f64.Aff3 {
	W, H := float64(n.buf.Rect.Dx()), float64(n.buf.Rect.Dy())
	tw, th := W, H
	if n.Rotate == 90 {
		tw, th = H, W
	}

	theta := float64(n.Rotate) * math.Pi / 180
	c, s := math.Cos(theta), math.Sin(theta)
	c, s = math.Round(c*1e12)/1e12, math.Round(s*1e12)/1e12
	m := 1.0
	if n.Mirror {
		m = -1
	}

	kx := tw / float64(sb.Dx())
	ky := th / float64(sb.Dy())

	a := f64.Aff3{
		c * m * kx, -s * ky, -c*m*tw/2 + s*th/2 + W/2,
		s * m * kx, c * ky, -s*m*tw/2 - c*th/2 + H/2,
	}
	// shift so the source's own origin maps to its first pixel
	ox, oy := float64(sb.Min.X), float64(sb.Min.Y)
	a[2] -= a[0]*ox + a[1]*oy
	a[5] -= a[3]*ox + a[4]*oy
	return a
}
