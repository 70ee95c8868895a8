package compose_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/compose"
	"golang.org/x/image/draw"
)

// landscape 4x2 source where every pixel is distinct
func landscapeSource(origin image.Point) *image.RGBA {
	src := image.NewRGBA(image.Rectangle{Min: origin, Max: origin.Add(image.Pt(4, 2))})
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			src.SetRGBA(origin.X+x, origin.Y+y, color.RGBA{R: uint8(x * 60), G: uint8(y * 200), B: 10, A: 0xff})
		}
	}
	return src
}

func nearest(n *compose.Normalizer) *compose.Normalizer {
	n.Kernel = draw.NearestNeighbor
	return n
}

func TestNormalizeWithoutRotationCopiesAtScale(t *testing.T) {
	is := is.New(t)
	src := landscapeSource(image.Point{})
	n := nearest(compose.NewNormalizer(8, 4, 0, false))

	is.True(n.Normalize(src))
	is.Equal(n.Frame().RGBAAt(0, 0), src.RGBAAt(0, 0))
	is.Equal(n.Frame().RGBAAt(7, 3), src.RGBAAt(3, 1))
}

func TestNormalizeMirrorsHorizontally(t *testing.T) {
	is := is.New(t)
	src := landscapeSource(image.Point{})
	n := nearest(compose.NewNormalizer(4, 2, 0, true))

	is.True(n.Normalize(src))
	is.Equal(n.Frame().RGBAAt(3, 0), src.RGBAAt(0, 0))
	is.Equal(n.Frame().RGBAAt(0, 1), src.RGBAAt(3, 1))
}

func TestNormalizeRotatesClockwiseIntoPortrait(t *testing.T) {
	is := is.New(t)
	src := landscapeSource(image.Point{})
	n := nearest(compose.NewNormalizer(2, 4, 90, false))

	is.True(n.Normalize(src))
	// the source's top row becomes the buffer's right column
	is.Equal(n.Frame().RGBAAt(1, 0), src.RGBAAt(0, 0))
	is.Equal(n.Frame().RGBAAt(1, 3), src.RGBAAt(3, 0))
	is.Equal(n.Frame().RGBAAt(0, 0), src.RGBAAt(0, 1))
	is.Equal(n.Frame().RGBAAt(0, 3), src.RGBAAt(3, 1))
}

func TestNormalizeRotatedAndMirrored(t *testing.T) {
	is := is.New(t)
	src := landscapeSource(image.Point{})
	n := nearest(compose.NewNormalizer(2, 4, 90, true))

	is.True(n.Normalize(src))
	is.Equal(n.Frame().RGBAAt(1, 3), src.RGBAAt(0, 0))
	is.Equal(n.Frame().RGBAAt(0, 0), src.RGBAAt(3, 1))
}

func TestNormalizeHonoursSourceOrigin(t *testing.T) {
	is := is.New(t)
	src := landscapeSource(image.Pt(10, 20))
	n := nearest(compose.NewNormalizer(2, 4, 90, false))

	is.True(n.Normalize(src))
	is.Equal(n.Frame().RGBAAt(1, 0), src.RGBAAt(10, 20))
}

func TestNormalizeScalesRotatedSourceToFillBuffer(t *testing.T) {
	is := is.New(t)
	src := image.NewRGBA(image.Rect(0, 0, 64, 36))
	draw.Draw(src, src.Rect, image.NewUniform(color.RGBA{G: 0xff, A: 0xff}), image.Point{}, draw.Src)
	n := compose.NewNormalizer(36, 64, 90, false)

	is.True(n.Normalize(src))
	for _, p := range []image.Point{{0, 0}, {35, 0}, {0, 63}, {35, 63}, {18, 32}} {
		is.Equal(n.Frame().RGBAAt(p.X, p.Y).A, uint8(0xff))
	}
}

func TestNormalizeSkipsEmptyFrames(t *testing.T) {
	is := is.New(t)
	n := compose.NewNormalizer(4, 4, 90, false)
	n.Frame().SetRGBA(0, 0, color.RGBA{R: 1, A: 0xff})

	is.True(!n.Normalize(nil))
	is.True(!n.Normalize(image.NewRGBA(image.Rectangle{})))
	is.Equal(n.Frame().RGBAAt(0, 0), color.RGBA{R: 1, A: 0xff})
}
