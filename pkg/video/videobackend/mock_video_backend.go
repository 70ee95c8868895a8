package videobackend

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/archbooth/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	mockCameraWidth, mockCameraHeight         = 640, 360
	mockBackgroundWidth, mockBackgroundHeight = 1080, 1920
	mockFrameInterval                         = time.Second / 30
)

type mockVideoBackend struct{}

func (b *mockVideoBackend) OpenCamera(cancel context.Context, constraints Constraints) (Connection, error) {
	return &mockVideoConnection{label: "ARCHBOOTH_MOCK_CAMERA"}, nil
}

func (b *mockVideoBackend) OpenBackground(cancel context.Context, path string) (Connection, error) {
	return &mockBackgroundConnection{}, nil
}

func (b *mockVideoBackend) NewFrame() videoframe.Frame {
	return &imageFrame{}
}

// the mock backend records through the pure Go fallback only
func (b *mockVideoBackend) Encoders() []videoclip.Encoder {
	return nil
}

func (b *mockVideoBackend) NewDisplay(title string) (Display, error) {
	return &mockDisplay{}, nil
}

type imageFrame struct {
	img *image.RGBA
}

func (frame *imageFrame) DataRef() interface{} {
	return &frame.img
}

func (frame *imageFrame) Dimensions() videoframe.Dimensions {
	if frame.img == nil {
		return videoframe.Dimensions{}
	}
	b := frame.img.Bounds()
	return videoframe.Dimensions{W: b.Dx(), H: b.Dy()}
}

func (frame *imageFrame) Image() (image.Image, error) {
	if frame.img == nil {
		return nil, xerror.New("cannot convert empty frame to image")
	}
	return frame.img, nil
}

func (frame *imageFrame) Close() {
	frame.img = nil
}

type mockVideoConnection struct {
	uuid                    string
	label                   string
	mu                      sync.Mutex
	isClosed                bool
	renderedBaseFrameCanvas bool
	baseFrameCanvas         image.Image
}

func (mvc *mockVideoConnection) UUID() string {
	if len(mvc.uuid) == 0 {
		mvc.uuid = uuid.NewString()
	}
	return mvc.uuid
}

func (mvc *mockVideoConnection) Read(frame videoframe.Frame) error {
	ref, ok := frame.DataRef().(**image.RGBA)
	if !ok {
		return xerror.New("must pass image frame to MockVideo connection read")
	}

	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	if mvc.isClosed {
		return xerror.New("unable to read from closed mock connection")
	}

	time.Sleep(mockFrameInterval)

	if !mvc.renderedBaseFrameCanvas {
		mvc.baseFrameCanvas = renderBaseFrameCanvas(mockCameraWidth, mockCameraHeight)
		mvc.renderedBaseFrameCanvas = true
	}

	img, err := drawTextLayerOntoBaseFrameClone(mvc.baseFrameCanvas, mvc.label)
	if err != nil {
		return err
	}
	*ref = img

	return nil
}

func (mvc *mockVideoConnection) IsOpen() bool {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	return !mvc.isClosed
}

func (mvc *mockVideoConnection) Close() error {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	mvc.isClosed = true
	mvc.renderedBaseFrameCanvas = false
	mvc.baseFrameCanvas = nil
	return nil
}

// mockBackgroundConnection cycles a vertical gradient through hues.
type mockBackgroundConnection struct {
	uuid     string
	mu       sync.Mutex
	isClosed bool
	step     int
}

func (mbc *mockBackgroundConnection) UUID() string {
	if len(mbc.uuid) == 0 {
		mbc.uuid = uuid.NewString()
	}
	return mbc.uuid
}

func (mbc *mockBackgroundConnection) Read(frame videoframe.Frame) error {
	ref, ok := frame.DataRef().(**image.RGBA)
	if !ok {
		return xerror.New("must pass image frame to MockVideo background read")
	}

	mbc.mu.Lock()
	defer mbc.mu.Unlock()
	if mbc.isClosed {
		return xerror.New("unable to read from closed mock background")
	}

	time.Sleep(mockFrameInterval)

	img := image.NewRGBA(image.Rect(0, 0, mockBackgroundWidth, mockBackgroundHeight))
	shift := uint8(mbc.step % 256)
	for y := 0; y < mockBackgroundHeight; y++ {
		v := uint8(y * 255 / mockBackgroundHeight)
		draw.Draw(
			img, image.Rect(0, y, mockBackgroundWidth, y+1),
			image.NewUniform(color.RGBA{R: v + shift, G: 64, B: 255 - v, A: 255}),
			image.Point{}, draw.Src,
		)
	}
	mbc.step++
	*ref = img
	return nil
}

func (mbc *mockBackgroundConnection) IsOpen() bool {
	mbc.mu.Lock()
	defer mbc.mu.Unlock()
	return !mbc.isClosed
}

func (mbc *mockBackgroundConnection) Close() error {
	mbc.mu.Lock()
	defer mbc.mu.Unlock()
	mbc.isClosed = true
	return nil
}

type mockDisplay struct {
	shown int
}

func (d *mockDisplay) Show(img image.Image) error {
	d.shown++
	if d.shown%300 == 0 {
		log.Debug("Mock display presented %d frames", d.shown)
	}
	return nil
}

func (d *mockDisplay) Close() error { return nil }

func drawTextLayerOntoBaseFrameClone(base image.Image, label string) (*image.RGBA, error) {
	baseClone := cloneImage(base)
	err := drawText(baseClone, 5, 50, label)
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err)
	}

	err = drawText(baseClone, 5, 180, time.Now().Format("15:04:05.000"))
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err) //nolint
	}
	return baseClone, nil
}

func renderBaseFrameCanvas(w, h int) image.Image {
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := float64(h) / 2
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), float64(h) * 0.75}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), float64(h) * 0.75}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), float64(h) * 0.75}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func cloneImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

var (
	parseFontOnce sync.Once
	parsedFont    *truetype.Font
	parseFontErr  error
)

func drawText(canvas *image.RGBA, x, y int, text string) error {
	var (
		fgColor  image.Image
		err      error
		fontSize = 48.0
	)
	fgColor = image.White
	parseFontOnce.Do(func() {
		parsedFont, parseFontErr = freetype.ParseFont(goregular.TTF)
	})
	if err = parseFontErr; err != nil {
		return err
	}
	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: fgColor,
		Face: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			Hinting: font.HintingFull,
		}),
	}
	textBounds, _ := fontDrawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	yPosition := fixed.I((y)-textHeight.Ceil())/2 + fixed.I(textHeight.Ceil())
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: yPosition,
	}
	fontDrawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
