package segment

import (
	"image"
	"image/color"
	"sync"

	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// DNNEngine runs a single channel person segmentation model through
// OpenCV's dnn module on its own goroutine.
type DNNEngine struct {
	net       gocv.Net
	inputSize int
	threshold float32

	mu       sync.Mutex
	callback func(*image.Alpha)
	closed   bool
	frames   chan image.Image
	done     chan struct{}
}

func NewDNNEngine(model, config string, inputSize int, threshold float64) (*DNNEngine, error) {
	net := gocv.ReadNet(model, config)
	if net.Empty() {
		return nil, xerror.Errorf("unable to load segmentation model %s", model)
	}
	if inputSize <= 0 {
		inputSize = 256
	}

	e := &DNNEngine{
		net:       net,
		inputSize: inputSize,
		threshold: float32(threshold),
		frames:    make(chan image.Image, 1),
		done:      make(chan struct{}),
	}
	go e.run()
	return e, nil
}

func (e *DNNEngine) OnResult(cb func(*image.Alpha)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

// Submit hands the frame to the inference goroutine and fails
// rather than blocking when it is still busy.
func (e *DNNEngine) Submit(frame image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return xerror.New("segmentation engine is closed")
	}
	select {
	case e.frames <- frame:
		return nil
	default:
		return xerror.New("segmentation engine busy")
	}
}

func (e *DNNEngine) run() {
	defer close(e.done)
	for frame := range e.frames {
		mask, err := e.infer(frame)
		if err != nil {
			log.Warn("Segmentation inference failed: %v", err)
		}
		e.mu.Lock()
		cb := e.callback
		e.mu.Unlock()
		if cb != nil {
			cb(mask)
		}
	}
}

func (e *DNNEngine) infer(frame image.Image) (*image.Alpha, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, xerror.Errorf("unable to convert frame for inference: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(
		mat, 1.0/255.0, image.Pt(e.inputSize, e.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false,
	)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, xerror.Errorf("unable to read segmentation output: %w", err)
	}
	if len(data) < e.inputSize*e.inputSize {
		return nil, xerror.Errorf("segmentation output holds %d values, expected %d", len(data), e.inputSize*e.inputSize)
	}

	return probabilityMask(data, e.inputSize, e.threshold), nil
}

// probabilityMask keeps the model's confidence as alpha above the
// threshold and drops everything under it.
func probabilityMask(data []float32, size int, threshold float32) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := data[y*size+x]
			if p < threshold {
				continue
			}
			if p > 1 {
				p = 1
			}
			mask.SetAlpha(x, y, color.Alpha{A: uint8(p * 0xff)})
		}
	}
	return mask
}

func (e *DNNEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.frames)
	e.mu.Unlock()

	<-e.done
	return e.net.Close()
}
