package segment

import (
	"image"
	"image/color"
	"sync"

	"github.com/tauraamui/xerror"
)

// LumaEngine marks every pixel brighter than Threshold as foreground.
// It stands in for a real model in tests and the mock backend.
type LumaEngine struct {
	Threshold uint8

	mu       sync.Mutex
	callback func(*image.Alpha)
	closed   bool
	wg       sync.WaitGroup
}

func NewLumaEngine(threshold uint8) *LumaEngine {
	return &LumaEngine{Threshold: threshold}
}

func (e *LumaEngine) OnResult(cb func(*image.Alpha)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

func (e *LumaEngine) Submit(frame image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return xerror.New("segmentation engine is closed")
	}
	cb := e.callback
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		mask := lumaMask(frame, e.Threshold)
		if cb != nil {
			cb(mask)
		}
	}()
	return nil
}

func (e *LumaEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

func lumaMask(frame image.Image, threshold uint8) *image.Alpha {
	b := frame.Bounds()
	mask := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray := color.GrayModel.Convert(frame.At(x, y)).(color.Gray)
			if gray.Y > threshold {
				mask.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return mask
}
