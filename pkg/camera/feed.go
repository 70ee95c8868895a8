package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/tauraamui/archbooth/pkg/booth/process"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/video/videobackend"
)

const readRetryBackoff = 10 * time.Millisecond

// Feed keeps only the most recent frame read from a connection,
// older frames are dropped as soon as a newer one arrives.
type Feed struct {
	title   string
	backend videobackend.Backend
	conn    videobackend.Connection

	mu     sync.Mutex
	latest image.Image
	frames int

	proc        process.Process
	releaseOnce sync.Once
}

func newFeed(title string, backend videobackend.Backend, conn videobackend.Connection) *Feed {
	f := &Feed{title: title, backend: backend, conn: conn}
	f.proc = process.New(process.Settings{
		WaitForShutdownMsg: fmt.Sprintf("Closing [%s] video feed...", title),
		Process:            f.stream,
	}).Setup()
	f.proc.Start()
	return f
}

func (f *Feed) stream(ctx context.Context) []chan interface{} {
	stopping := make(chan interface{})
	go func() {
		defer close(stopping)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if !f.readOne() {
					time.Sleep(readRetryBackoff)
				}
			}
		}
	}()
	return []chan interface{}{stopping}
}

func (f *Feed) readOne() bool {
	frame := f.backend.NewFrame()
	defer frame.Close()

	if err := f.conn.Read(frame); err != nil {
		log.Debug("Unable to read frame from [%s]: %v", f.title, err)
		return false
	}

	if frame.Dimensions().Empty() {
		return false
	}

	img, err := frame.Image()
	if err != nil {
		log.Debug("Unable to decode frame from [%s]: %v", f.title, err)
		return false
	}

	f.mu.Lock()
	f.latest = img
	f.frames++
	f.mu.Unlock()
	return true
}

// Latest returns the newest frame, or nil before the first one arrives.
func (f *Feed) Latest() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

// Ready reports whether a frame with non-zero dimensions has been read.
// It never blocks on the device.
func (f *Feed) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return false
	}
	b := f.latest.Bounds()
	return b.Dx() > 0 && b.Dy() > 0
}

func (f *Feed) FramesRead() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// Release stops the reader and closes the device. Calling it
// again is a no-op, close errors are logged and dropped.
func (f *Feed) Release() {
	if f == nil {
		return
	}
	f.releaseOnce.Do(func() {
		f.proc.Stop()
		f.proc.Wait()
		if err := f.conn.Close(); err != nil {
			log.Warn("Unable to close [%s] video feed: %v", f.title, err)
		}
		f.mu.Lock()
		f.latest = nil
		f.mu.Unlock()
	})
}
