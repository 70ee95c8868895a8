package aperture_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/aperture"
)

var testSettings = aperture.Settings{
	Canvas:    image.Rect(0, 0, 240, 320),
	FeatherPX: 2,
	Outline: aperture.OutlineStyle{
		Width: 8, Color: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xf2}, Softness: 1,
	},
}

var testWindow = aperture.Geometry{X: 60, Y: 40, W: 100, H: 220, ArchRadius: 50}

func TestBuildFixedMatteIsOpaqueDeepInsideAndClearFarOutside(t *testing.T) {
	is := is.New(t)
	ap := aperture.BuildFixed(testWindow, testSettings)
	is.True(ap.Valid())
	is.Equal(ap.Window, image.Rect(60, 40, 160, 260))

	is.Equal(ap.Matte.AlphaAt(110, 200).A, uint8(0xff))
	is.Equal(ap.Matte.AlphaAt(20, 200).A, uint8(0))
	is.Equal(ap.Matte.AlphaAt(61, 45).A, uint8(0))

	edge := ap.Matte.AlphaAt(60, 200).A
	is.True(edge > 0 && edge < 0xff)
}

func TestBuildFixedClipIsUnfeathered(t *testing.T) {
	is := is.New(t)
	ap := aperture.BuildFixed(testWindow, testSettings)

	is.Equal(ap.Clip.AlphaAt(61, 200).A, uint8(0xff))
	is.Equal(ap.Clip.AlphaAt(58, 200).A, uint8(0))
}

func TestOutlineRingNeverOverlapsApertureInterior(t *testing.T) {
	is := is.NewRelaxed(t)
	settings := testSettings
	settings.Outline.Softness = 0
	ap := aperture.BuildFixed(testWindow, settings)

	b := ap.Outline.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if ap.Matte.AlphaAt(x, y).A == 0xff {
				is.Equal(ap.Outline.RGBAAt(x, y).A, uint8(0))
			}
		}
	}
}

func TestSoftenedOutlineStaysOutOfTheInterior(t *testing.T) {
	is := is.NewRelaxed(t)
	ap := aperture.BuildFixed(testWindow, testSettings)

	b := ap.Outline.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			if testWindow.Contains(px, py) && testWindow.Distance(px, py) > 14 {
				is.Equal(ap.Outline.RGBAAt(x, y).A, uint8(0))
			}
		}
	}
}

func TestOutlineRingSurroundsTheWindowInItsColour(t *testing.T) {
	is := is.New(t)
	ap := aperture.BuildFixed(testWindow, testSettings)

	ring := ap.Outline.RGBAAt(57, 200)
	is.True(ring.A > 0)
	is.Equal(ring.R, ring.A) // white, premultiplied
	is.True(ring.A <= 0xf2)

	is.Equal(ap.Outline.RGBAAt(5, 200).A, uint8(0))
}

func TestOutlineWidthBelowOneStillDilates(t *testing.T) {
	is := is.New(t)
	settings := testSettings
	settings.Outline.Width = 0
	settings.Outline.Softness = 0
	ap := aperture.BuildFixed(testWindow, settings)
	is.True(ap.Outline.RGBAAt(59, 200).A > 0)
}

func TestBuildFromMaskCoversCanvasAndClipsWithMatte(t *testing.T) {
	is := is.New(t)
	mask := image.NewAlpha(image.Rect(0, 0, 24, 32))
	for y := 8; y < 32; y++ {
		for x := 6; x < 18; x++ {
			mask.SetAlpha(x, y, color.Alpha{A: 0xff})
		}
	}

	ap := aperture.BuildFromMask(mask, testSettings)
	is.True(ap.Valid())
	is.Equal(ap.Window, testSettings.Canvas)
	is.Equal(ap.Clip, ap.Matte)
	is.Equal(ap.Matte.AlphaAt(120, 200).A, uint8(0xff))
	is.Equal(ap.Matte.AlphaAt(10, 10).A, uint8(0))
}
