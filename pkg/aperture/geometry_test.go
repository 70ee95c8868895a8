package aperture_test

import (
	"image"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/aperture"
)

var kioskWindow = aperture.Geometry{X: 582, Y: 690, W: 275, H: 810, ArchRadius: 137.5}

func TestGeometryRadiusIsClamped(t *testing.T) {
	is := is.New(t)
	is.Equal(aperture.Geometry{W: 100, H: 200, ArchRadius: 80}.Radius(), 50.0)
	is.Equal(aperture.Geometry{W: 100, H: 200, ArchRadius: 0}.Radius(), 1.0)
	is.Equal(aperture.Geometry{W: 100, H: 30, ArchRadius: 50}.Radius(), 30.0)
	is.Equal(kioskWindow.Radius(), 137.5)
}

func TestGeometryContains(t *testing.T) {
	is := is.New(t)
	g := aperture.Geometry{X: 10, Y: 10, W: 100, H: 200, ArchRadius: 50}

	is.True(g.Contains(60, 11))   // apex of the arch
	is.True(g.Contains(60, 150))  // body
	is.True(!g.Contains(12, 12))  // corner cut away by the arch
	is.True(!g.Contains(60, 211)) // below the base
	is.True(!g.Contains(9, 150))  // left of the side
}

func TestGeometryWithNarrowArchHasShoulders(t *testing.T) {
	is := is.New(t)
	g := aperture.Geometry{X: 0, Y: 0, W: 100, H: 100, ArchRadius: 20}

	// arch centre sits at y=20, shoulders span the remaining width
	is.True(g.Contains(5, 21))
	is.True(!g.Contains(5, 19))
	is.True(g.Contains(50, 1))
	is.True(!g.Contains(25, 1))
}

func assertMaskMatchesGeometry(t *testing.T, g aperture.Geometry, mask *image.Alpha) {
	t.Helper()
	is := is.NewRelaxed(t)
	const margin = 1.5

	checkedInside, checkedOutside := 0, 0
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			if g.Distance(px, py) < margin {
				continue
			}
			a := mask.AlphaAt(x, y).A
			if g.Contains(px, py) {
				checkedInside++
				is.Equal(a, uint8(0xff))
			} else {
				checkedOutside++
				is.Equal(a, uint8(0))
			}
		}
	}
	is.True(checkedInside > 0)
	is.True(checkedOutside > 0)
}

func TestRasterizedSemicircularArchIsOpaqueInsideAndClearOutside(t *testing.T) {
	bounds := kioskWindow.Rect().Inset(-6)
	mask := kioskWindow.Rasterize(bounds)
	assertMaskMatchesGeometry(t, kioskWindow, mask)
}

func TestRasterizedShoulderedArchIsOpaqueInsideAndClearOutside(t *testing.T) {
	g := aperture.Geometry{X: 20.5, Y: 30, W: 120, H: 160, ArchRadius: 35}
	mask := g.Rasterize(image.Rect(0, 0, 180, 220))
	assertMaskMatchesGeometry(t, g, mask)
}

func TestRasterizeIntoEmptyBoundsGivesEmptyMask(t *testing.T) {
	is := is.New(t)
	mask := kioskWindow.Rasterize(image.Rectangle{})
	is.Equal(len(mask.Pix), 0)
}
