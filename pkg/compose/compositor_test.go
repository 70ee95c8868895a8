package compose_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/aperture"
	"github.com/tauraamui/archbooth/pkg/compose"
	"golang.org/x/image/draw"
)

var (
	green     = color.RGBA{G: 0xff, A: 0xff}
	white     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	letterbox = color.RGBA{R: 0x20, A: 0xff}
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func testAperture() aperture.Aperture {
	return aperture.BuildFixed(
		aperture.Geometry{X: 10, Y: 40, W: 20, H: 18, ArchRadius: 10},
		aperture.Settings{
			Canvas:    image.Rect(0, 0, 40, 60),
			FeatherPX: 1,
			Outline:   aperture.OutlineStyle{Width: 2, Color: color.NRGBA{B: 0xff, A: 0xff}},
		},
	)
}

func TestComposeWithoutApertureLeavesCanvasClear(t *testing.T) {
	is := is.New(t)
	c := compose.NewCompositor(40, 60, letterbox)

	canvas, ok := c.Compose(solid(8, 8, green), nil, aperture.Aperture{})
	is.True(!ok)
	is.Equal(canvas.RGBAAt(20, 30), color.RGBA{})
}

func TestComposeWithoutFrameLeavesCanvasClear(t *testing.T) {
	is := is.New(t)
	c := compose.NewCompositor(40, 60, letterbox)

	canvas, ok := c.Compose(nil, nil, testAperture())
	is.True(!ok)
	is.Equal(canvas.RGBAAt(20, 30), color.RGBA{})
}

func TestComposePaintsLetterboxWhenBackgroundNotReady(t *testing.T) {
	is := is.New(t)
	c := compose.NewCompositor(40, 60, letterbox)

	canvas, ok := c.Compose(solid(16, 9, green), nil, testAperture())
	is.True(ok)
	is.Equal(canvas.RGBAAt(2, 2), letterbox)
}

func TestComposeContainsBackgroundWithLetterbox(t *testing.T) {
	is := is.New(t)
	c := compose.NewCompositor(40, 60, letterbox)

	canvas, ok := c.Compose(solid(16, 9, green), solid(20, 10, white), testAperture())
	is.True(ok)
	// background scaled 2x into rows 20..40
	is.Equal(canvas.RGBAAt(2, 5), letterbox)
	is.Equal(canvas.RGBAAt(2, 30), white)
	is.Equal(canvas.RGBAAt(2, 50), letterbox)
}

func TestComposeShowsCameraInsideWindowOnly(t *testing.T) {
	is := is.NewRelaxed(t)
	c := compose.NewCompositor(40, 60, letterbox)
	ap := testAperture()

	canvas, ok := c.Compose(solid(16, 9, green), nil, ap)
	is.True(ok)
	is.Equal(canvas.RGBAAt(20, 52), green)

	b := canvas.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if ap.Clip.AlphaAt(x, y).A == 0 {
				is.Equal(canvas.RGBAAt(x, y).G, uint8(0))
			}
		}
	}
}

func TestComposeDrawsOutlineAroundWindow(t *testing.T) {
	is := is.New(t)
	c := compose.NewCompositor(40, 60, letterbox)

	canvas, ok := c.Compose(solid(16, 9, green), nil, testAperture())
	is.True(ok)
	px := canvas.RGBAAt(9, 50)
	is.True(px.B > 0)
	is.Equal(px.G, uint8(0))
}

func TestComposeCropsCameraWithoutDistortion(t *testing.T) {
	is := is.New(t)
	c := compose.NewCompositor(40, 60, letterbox)
	c.Kernel = draw.NearestNeighbor

	// wide frame: left half red, right half green; cover fit into a
	// narrow window keeps only the middle so both colours meet at its centre
	frame := solid(200, 20, color.RGBA{R: 0xff, A: 0xff})
	draw.Draw(frame, image.Rect(100, 0, 200, 20), image.NewUniform(green), image.Point{}, draw.Src)

	canvas, ok := c.Compose(frame, nil, testAperture())
	is.True(ok)
	is.Equal(canvas.RGBAAt(15, 52), color.RGBA{R: 0xff, A: 0xff})
	is.Equal(canvas.RGBAAt(25, 52), green)
}
