package segment_test

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/aperture/segment"
)

func TestLumaEngineSeparatesBrightFromDark(t *testing.T) {
	is := is.New(t)
	frame := image.NewRGBA(image.Rect(0, 0, 8, 4))
	draw.Draw(frame, image.Rect(4, 0, 8, 4), image.NewUniform(color.White), image.Point{}, draw.Src)

	results := make(chan *image.Alpha, 1)
	engine := segment.NewLumaEngine(128)
	engine.OnResult(func(mask *image.Alpha) { results <- mask })

	is.NoErr(engine.Submit(frame))
	select {
	case mask := <-results:
		is.Equal(mask.AlphaAt(1, 1).A, uint8(0))
		is.Equal(mask.AlphaAt(6, 1).A, uint8(0xff))
	case <-time.After(time.Second):
		t.Fatal("no segmentation result delivered")
	}

	is.NoErr(engine.Close())
	is.True(engine.Submit(frame) != nil)
}
