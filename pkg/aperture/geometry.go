package aperture

import (
	"image"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so a quarter circle is
// approximated to within 0.03% of its radius.
const kappa = 0.5522847498

// Geometry describes an arch topped window: a semicircular top of
// ArchRadius centred on the window, straight sides and a straight base.
// When the radius is narrower than half the width the arch sits on
// flat shoulders level with its centre.
type Geometry struct {
	X, Y, W, H float64
	ArchRadius float64
}

// Radius is ArchRadius clamped into [1, min(W/2, H)].
func (g Geometry) Radius() float64 {
	r := math.Min(g.ArchRadius, g.W/2)
	r = math.Min(r, g.H)
	return math.Max(1, r)
}

func (g Geometry) centre() (cx, cy float64) {
	return g.X + g.W/2, g.Y + g.Radius()
}

// Rect is the window's bounding box snapped outwards to whole pixels.
func (g Geometry) Rect() image.Rectangle {
	return image.Rect(
		int(math.Floor(g.X)), int(math.Floor(g.Y)),
		int(math.Ceil(g.X+g.W)), int(math.Ceil(g.Y+g.H)),
	)
}

// Contains reports whether the point lies inside the closed region.
func (g Geometry) Contains(x, y float64) bool {
	if x < g.X || x > g.X+g.W || y > g.Y+g.H {
		return false
	}
	cx, cy := g.centre()
	if y >= cy {
		return true
	}
	r := g.Radius()
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

// Distance is the unsigned distance from the point to the region's boundary.
func (g Geometry) Distance(x, y float64) float64 {
	cx, cy := g.centre()
	r := g.Radius()
	left, right, bottom := g.X, g.X+g.W, g.Y+g.H

	d := math.Inf(1)
	// sides and base
	d = math.Min(d, segmentDistance(x, y, left, cy, left, bottom))
	d = math.Min(d, segmentDistance(x, y, right, cy, right, bottom))
	d = math.Min(d, segmentDistance(x, y, left, bottom, right, bottom))
	// shoulders
	d = math.Min(d, segmentDistance(x, y, left, cy, cx-r, cy))
	d = math.Min(d, segmentDistance(x, y, cx+r, cy, right, cy))
	// upper half of the arch
	if y <= cy {
		d = math.Min(d, math.Abs(math.Hypot(x-cx, y-cy)-r))
	} else {
		d = math.Min(d, math.Hypot(x-(cx-r), y-cy))
		d = math.Min(d, math.Hypot(x-(cx+r), y-cy))
	}
	return d
}

func segmentDistance(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// Rasterize fills the region anti-aliased into an alpha mask covering
// bounds, which is in canvas coordinates.
func (g Geometry) Rasterize(bounds image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(bounds)
	if bounds.Empty() {
		return mask
	}

	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)
	pt := func(x, y float64) (float32, float32) {
		return float32(x - ox), float32(y - oy)
	}

	cx, cy := g.centre()
	r := g.Radius()
	k := kappa * r
	left, right, bottom := g.X, g.X+g.W, g.Y+g.H

	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	z.MoveTo(pt(left, bottom))
	z.LineTo(pt(left, cy))
	z.LineTo(pt(cx-r, cy))

	bx, by := pt(cx-r, cy-k)
	cx1, cy1 := pt(cx-k, cy-r)
	dx, dy := pt(cx, cy-r)
	z.CubeTo(bx, by, cx1, cy1, dx, dy)

	bx, by = pt(cx+k, cy-r)
	cx1, cy1 = pt(cx+r, cy-k)
	dx, dy = pt(cx+r, cy)
	z.CubeTo(bx, by, cx1, cy1, dx, dy)

	z.LineTo(pt(right, cy))
	z.LineTo(pt(right, bottom))
	z.ClosePath()

	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}
