package compose

import (
	"image"
	"image/color"

	"github.com/tauraamui/archbooth/pkg/aperture"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Compositor layers the background, the outline and the clipped camera
// frame onto a canvas it owns. Compose is not safe for concurrent use.
type Compositor struct {
	Kernel draw.Transformer

	canvas    *image.RGBA
	person    *image.RGBA
	letterbox *image.Uniform

	lastBackground image.Image
	backgroundLyr  *image.RGBA
}

func NewCompositor(w, h int, letterbox color.Color) *Compositor {
	bounds := image.Rect(0, 0, w, h)
	return &Compositor{
		Kernel:    draw.ApproxBiLinear,
		canvas:    image.NewRGBA(bounds),
		person:    image.NewRGBA(bounds),
		letterbox: image.NewUniform(letterbox),
	}
}

func (c *Compositor) Canvas() *image.RGBA { return c.canvas }

// Compose rebuilds the canvas. It reports false, leaving the canvas
// cleared, when there is no camera frame or no aperture to place it in.
func (c *Compositor) Compose(frame, background image.Image, ap aperture.Aperture) (*image.RGBA, bool) {
	clearRect(c.canvas, c.canvas.Rect)
	if frame == nil || frame.Bounds().Empty() || !ap.Valid() {
		return c.canvas, false
	}

	c.paintBackground(background)
	draw.Draw(c.canvas, ap.Outline.Rect, ap.Outline, ap.Outline.Rect.Min, draw.Over)
	c.paintCamera(frame, ap)
	return c.canvas, true
}

// paintBackground contain fits the background over the letterbox fill,
// only the fill is painted while the background has no frame.
func (c *Compositor) paintBackground(background image.Image) {
	if background == nil || background.Bounds().Empty() {
		draw.Draw(c.canvas, c.canvas.Rect, c.letterbox, image.Point{}, draw.Src)
		return
	}

	if background != c.lastBackground || c.backgroundLyr == nil {
		c.backgroundLyr = c.renderBackground(background)
		c.lastBackground = background
	}
	draw.Draw(c.canvas, c.canvas.Rect, c.backgroundLyr, image.Point{}, draw.Src)
}

func (c *Compositor) renderBackground(background image.Image) *image.RGBA {
	layer := image.NewRGBA(c.canvas.Rect)
	draw.Draw(layer, layer.Rect, c.letterbox, image.Point{}, draw.Src)

	sb := background.Bounds()
	fit := Contain(float64(sb.Dx()), float64(sb.Dy()), float64(layer.Rect.Dx()), float64(layer.Rect.Dy()))
	if fit.Empty() {
		return layer
	}
	scale := fit.W / float64(sb.Dx())
	c.Kernel.Transform(layer, f64.Aff3{
		scale, 0, fit.X - scale*float64(sb.Min.X),
		0, scale, fit.Y - scale*float64(sb.Min.Y),
	}, background, sb, draw.Over, nil)
	return layer
}

// paintCamera cover fits the frame into the aperture window and lets
// it through only where the clip mask allows.
func (c *Compositor) paintCamera(frame image.Image, ap aperture.Aperture) {
	window := ap.Window.Intersect(c.canvas.Rect)
	if window.Empty() {
		return
	}

	fb := frame.Bounds()
	crop := Cover(float64(fb.Dx()), float64(fb.Dy()), float64(window.Dx()), float64(window.Dy()))
	if crop.Empty() {
		return
	}
	crop.X += float64(fb.Min.X)
	crop.Y += float64(fb.Min.Y)

	scale := float64(window.Dx()) / crop.W
	clearRect(c.person, window)
	c.Kernel.Transform(c.person, f64.Aff3{
		scale, 0, float64(window.Min.X) - scale*crop.X,
		0, scale, float64(window.Min.Y) - scale*crop.Y,
	}, frame, crop.Outer().Intersect(fb), draw.Src, nil)

	draw.DrawMask(c.canvas, window, c.person, window.Min, ap.Clip, window.Min, draw.Over)
}

func clearRect(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for i := range row {
			row[i] = 0
		}
	}
}
