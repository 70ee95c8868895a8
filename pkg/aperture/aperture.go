package aperture

import (
	"image"
	"math"
)

// Aperture is everything the compositor needs to place the camera:
// the rectangle the camera is cover fitted into, the mask its pixels
// are clipped by, the feathered matte and the coloured outline ring.
// All rasters carry canvas coordinates in their bounds.
type Aperture struct {
	Window  image.Rectangle
	Clip    *image.Alpha
	Matte   *image.Alpha
	Outline *image.RGBA
}

// Valid reports whether the aperture has buffers to composite with.
func (a Aperture) Valid() bool {
	return a.Clip != nil && a.Outline != nil && !a.Window.Empty()
}

type Settings struct {
	Canvas    image.Rectangle
	FeatherPX float64
	Outline   OutlineStyle
}

// workArea is the window grown by the furthest any blur can spread,
// clipped to the canvas.
func (s Settings) workArea(window image.Rectangle) image.Rectangle {
	reach := blurReach(s.FeatherPX) + blurReach(math.Max(1, s.Outline.Width)) + blurReach(s.Outline.Softness)
	return window.Inset(-reach).Intersect(s.Canvas)
}

// BuildFixed rasterises the geometry once and derives the matte and
// outline from it.
func BuildFixed(g Geometry, settings Settings) Aperture {
	window := g.Rect().Intersect(settings.Canvas)
	area := settings.workArea(window)

	base := g.Rasterize(area)
	matte := blurAlpha(base, settings.FeatherPX)
	return Aperture{
		Window:  window,
		Clip:    base,
		Matte:   matte,
		Outline: BuildOutline(base, matte, settings.Outline),
	}
}

// BuildFromMask treats a segmentation mask the way BuildFixed treats
// the rasterised window, except that the camera is clipped by the soft
// matte over the whole canvas.
func BuildFromMask(mask *image.Alpha, settings Settings) Aperture {
	base := image.NewAlpha(settings.Canvas)
	fitMask(base, mask)
	matte := blurAlpha(base, settings.FeatherPX)
	return Aperture{
		Window:  settings.Canvas,
		Clip:    matte,
		Matte:   matte,
		Outline: BuildOutline(base, matte, settings.Outline),
	}
}
