package aperture_test

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/aperture"
)

type testEngine struct {
	mu          sync.Mutex
	callback    func(*image.Alpha)
	submitted   []image.Image
	outstanding int
	maxOut      int
	submitErr   error
	closed      int
}

func (e *testEngine) Submit(frame image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitErr != nil {
		return e.submitErr
	}
	e.submitted = append(e.submitted, frame)
	e.outstanding++
	if e.outstanding > e.maxOut {
		e.maxOut = e.outstanding
	}
	return nil
}

func (e *testEngine) OnResult(cb func(*image.Alpha)) { e.callback = cb }

func (e *testEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	return nil
}

func (e *testEngine) answer(mask *image.Alpha) {
	e.mu.Lock()
	e.outstanding--
	cb := e.callback
	e.mu.Unlock()
	cb(mask)
}

func solidMask(w, h int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}
	return mask
}

func testFrame() *image.RGBA {
	frame := image.NewRGBA(testSettings.Canvas)
	frame.SetRGBA(1, 1, color.RGBA{R: 0xff, A: 0xff})
	return frame
}

func TestFixedWindowRefreshAlwaysGivesSameAperture(t *testing.T) {
	is := is.New(t)
	s := aperture.NewFixedWindow(testWindow, testSettings)

	first, ok := s.Refresh(nil)
	is.True(ok)
	second, ok := s.Refresh(testFrame())
	is.True(ok)
	is.Equal(first.Matte, second.Matte)
	is.NoErr(s.Close())
}

func TestSegmentationNotReadyBeforeFirstMask(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{}
	s := aperture.NewPersonSegmentation(engine, testSettings, nil)

	_, ok := s.Refresh(testFrame())
	is.True(!ok)
	is.True(s.InFlight())
}

func TestSegmentationKeepsAtMostOneSubmissionInFlight(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{}
	drops := 0
	s := aperture.NewPersonSegmentation(engine, testSettings, func() { drops++ })

	frame := testFrame()
	for i := 0; i < 10; i++ {
		s.Refresh(frame)
	}
	is.Equal(len(engine.submitted), 1)
	is.Equal(drops, 9)

	engine.answer(solidMask(24, 32))
	is.True(!s.InFlight())

	for i := 0; i < 10; i++ {
		s.Refresh(frame)
		if i%3 == 0 && engine.outstanding == 1 {
			engine.answer(solidMask(24, 32))
		}
	}
	is.Equal(engine.maxOut, 1)
	is.True(len(engine.submitted) > 1)
}

func TestSegmentationSubmitsCopyOfFrame(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{}
	s := aperture.NewPersonSegmentation(engine, testSettings, nil)

	frame := testFrame()
	s.Refresh(frame)
	frame.SetRGBA(1, 1, color.RGBA{G: 0xff, A: 0xff})

	submitted := engine.submitted[0].(*image.RGBA)
	is.Equal(submitted.RGBAAt(1, 1), color.RGBA{R: 0xff, A: 0xff})
}

func TestSegmentationBecomesReadyAfterDelivery(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{}
	s := aperture.NewPersonSegmentation(engine, testSettings, nil)

	s.Refresh(testFrame())
	engine.answer(solidMask(24, 32))

	ap, ok := s.Refresh(testFrame())
	is.True(ok)
	is.Equal(ap.Window, testSettings.Canvas)
}

func TestSegmentationFailedInferenceReleasesGate(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{}
	s := aperture.NewPersonSegmentation(engine, testSettings, nil)

	s.Refresh(testFrame())
	engine.answer(nil)
	is.True(!s.InFlight())
	_, ok := s.Refresh(testFrame())
	is.True(!ok)
	is.Equal(len(engine.submitted), 2)
}

func TestSegmentationSubmitErrorReleasesGate(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{submitErr: errors.New("engine busy")}
	s := aperture.NewPersonSegmentation(engine, testSettings, nil)

	s.Refresh(testFrame())
	is.True(!s.InFlight())
}

func TestSegmentationCloseIsIdempotent(t *testing.T) {
	is := is.New(t)
	engine := &testEngine{}
	s := aperture.NewPersonSegmentation(engine, testSettings, nil)

	is.NoErr(s.Close())
	is.NoErr(s.Close())
	is.Equal(engine.closed, 1)

	_, ok := s.Refresh(testFrame())
	is.True(!ok)
	is.Equal(len(engine.submitted), 0)
}
