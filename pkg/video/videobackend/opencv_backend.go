package videobackend

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/archbooth/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

type openCVFrame struct {
	isClosed bool
	mat      gocv.Mat
}

func (frame *openCVFrame) DataRef() interface{} {
	return &frame.mat
}

func (frame *openCVFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: frame.mat.Cols(), H: frame.mat.Rows()}
}

func (frame *openCVFrame) Image() (image.Image, error) {
	if frame.isClosed || frame.mat.Empty() {
		return nil, xerror.New("cannot convert empty OpenCV frame to image")
	}
	return frame.mat.ToImage()
}

func (frame *openCVFrame) Close() {
	if !frame.isClosed {
		frame.mat.Close()
		frame.isClosed = true
	}
}

type openCVBackend struct{}

func (b *openCVBackend) OpenCamera(cancel context.Context, constraints Constraints) (Connection, error) {
	conn := openCVConnection{}
	err := conn.connect(cancel, constraints.Device)
	if err != nil {
		return nil, err
	}
	conn.applyConstraints(constraints)
	return &conn, nil
}

func (b *openCVBackend) OpenBackground(cancel context.Context, path string) (Connection, error) {
	conn := openCVBackgroundConnection{}
	err := conn.connect(cancel, path)
	if err != nil {
		return nil, err
	}
	conn.interval = frameInterval(conn.vc.Get(gocv.VideoCaptureFPS))
	return &conn, nil
}

func (b *openCVBackend) NewFrame() videoframe.Frame {
	return &openCVFrame{mat: gocv.NewMat()}
}

func (b *openCVBackend) Encoders() []videoclip.Encoder {
	return []videoclip.Encoder{newOpenCVWriterEncoder()}
}

func (b *openCVBackend) NewDisplay(title string) (Display, error) {
	window := gocv.NewWindow(title)
	if window == nil {
		return nil, xerror.Errorf("unable to open display window %s", title)
	}
	return &openCVDisplay{window: window}, nil
}

type openCVConnection struct {
	uuid   string
	mu     sync.Mutex
	isOpen bool
	vc     *gocv.VideoCapture
}

func (c *openCVConnection) connect(cancel context.Context, addr string) error {
	connAndError := make(chan openVideoStreamResult, 1)
	go openVideoStream(addr, connAndError)
	select {
	case r := <-connAndError:
		if r.err != nil {
			return xerror.Errorf("%w: %s: %v", ErrDeviceUnavailable, addr, r.err)
		}
		if !r.vc.IsOpened() {
			r.vc.Close() //nolint
			return xerror.Errorf("%w: %s", ErrDeviceUnavailable, addr)
		}
		c.vc = r.vc
		c.isOpen = true
		return nil
	case <-cancel.Done():
		return xerror.New("connection cancelled")
	}
}

func (c *openCVConnection) applyConstraints(constraints Constraints) {
	if constraints.Width > 0 {
		c.vc.Set(gocv.VideoCaptureFrameWidth, float64(constraints.Width))
	}
	if constraints.Height > 0 {
		c.vc.Set(gocv.VideoCaptureFrameHeight, float64(constraints.Height))
	}
	if constraints.FPS > 0 {
		c.vc.Set(gocv.VideoCaptureFPS, float64(constraints.FPS))
	}
	log.Debug(
		"Camera opened at %.0fx%.0f@%.0f",
		c.vc.Get(gocv.VideoCaptureFrameWidth), c.vc.Get(gocv.VideoCaptureFrameHeight), c.vc.Get(gocv.VideoCaptureFPS),
	)
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(addr string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(addr)
	result := openVideoStreamResult{vc: vc, err: err}
	d <- result
}

// device indexes such as "0" open a camera, anything else is treated as a file or URL
var openVideoCapture = func(addr string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(addr)
}

var readFromVideoConnection = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func (c *openCVConnection) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *openCVConnection) Read(frame videoframe.Frame) error {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return xerror.New("must pass OpenCV frame to OpenCV connection read")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ok = readFromVideoConnection(c.vc, mat)
	if !ok {
		return xerror.New("unable to read from video connection")
	}
	return nil
}

func (c *openCVConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		return c.vc.IsOpened()
	}
	return false
}

func (c *openCVConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	return c.vc.Close()
}

type openCVBackgroundConnection struct {
	openCVConnection
	interval time.Duration
	lastRead time.Time
}

const defaultBackgroundFPS = 30

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = defaultBackgroundFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

func (c *openCVBackgroundConnection) Read(frame videoframe.Frame) error {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return xerror.New("must pass OpenCV frame to OpenCV background read")
	}

	if wait := c.interval - time.Since(c.lastRead); wait > 0 {
		time.Sleep(wait)
	}
	c.lastRead = time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if readFromVideoConnection(c.vc, mat) && !mat.Empty() {
		return nil
	}

	// end of file, rewind and carry on looping
	c.vc.Set(gocv.VideoCapturePosFrames, 0)
	if !readFromVideoConnection(c.vc, mat) {
		return xerror.New("unable to loop background video")
	}
	return nil
}

type openCVDisplay struct {
	window *gocv.Window
}

func (d *openCVDisplay) Show(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return xerror.Errorf("unable to convert Go image into OpenCV mat: %w", err)
	}
	defer mat.Close()
	d.window.IMShow(mat)
	d.window.WaitKey(1)
	return nil
}

func (d *openCVDisplay) Close() error {
	return d.window.Close()
}
