package aperture

import (
	"image"
	"sync"

	"github.com/tauraamui/archbooth/pkg/log"
	"golang.org/x/image/draw"
)

// Strategy produces the aperture for each tick. Refresh reports false
// when no aperture is available yet, which callers treat as a skipped
// composite rather than an error.
type Strategy interface {
	Refresh(frame image.Image) (Aperture, bool)
	Close() error
}

type FixedWindow struct {
	aperture Aperture
}

func NewFixedWindow(g Geometry, settings Settings) *FixedWindow {
	return &FixedWindow{aperture: BuildFixed(g, settings)}
}

func (f *FixedWindow) Refresh(image.Image) (Aperture, bool) {
	return f.aperture, f.aperture.Valid()
}

func (f *FixedWindow) Close() error { return nil }

// Engine is an asynchronous person segmenter. Submit must not block,
// each submission is answered by exactly one OnResult callback which
// may carry a nil mask when inference failed.
type Engine interface {
	Submit(image.Image) error
	OnResult(func(*image.Alpha))
	Close() error
}

// PersonSegmentation keeps at most one frame in flight with its engine.
// Frames arriving while a submission is outstanding are dropped, never queued.
type PersonSegmentation struct {
	engine   Engine
	settings Settings
	onDrop   func()

	mu       sync.Mutex
	inFlight bool
	closed   bool
	latest   Aperture
	have     bool
	scratch  *image.RGBA
}

func NewPersonSegmentation(engine Engine, settings Settings, onDrop func()) *PersonSegmentation {
	p := &PersonSegmentation{engine: engine, settings: settings, onDrop: onDrop}
	engine.OnResult(p.deliver)
	return p
}

func (p *PersonSegmentation) Refresh(frame image.Image) (Aperture, bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Aperture{}, false
	}
	submit := frame != nil && !p.inFlight
	if submit {
		p.inFlight = true
		p.scratch = cloneInto(p.scratch, frame)
	}
	scratch := p.scratch
	latest, have := p.latest, p.have
	p.mu.Unlock()

	if !submit {
		if frame != nil && p.onDrop != nil {
			p.onDrop()
		}
		return latest, have
	}

	if err := p.engine.Submit(scratch); err != nil {
		log.Warn("Unable to submit frame for segmentation: %v", err)
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}
	return latest, have
}

// InFlight reports whether a submission is awaiting its result.
func (p *PersonSegmentation) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

func (p *PersonSegmentation) deliver(mask *image.Alpha) {
	var (
		ap Aperture
		ok bool
	)
	if mask != nil && !mask.Rect.Empty() {
		ap, ok = BuildFromMask(mask, p.settings), true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false
	if ok && !p.closed {
		p.latest, p.have = ap, true
	}
}

func (p *PersonSegmentation) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.have = false
	p.latest = Aperture{}
	p.mu.Unlock()
	return p.engine.Close()
}

func cloneInto(dst *image.RGBA, src image.Image) *image.RGBA {
	b := src.Bounds()
	if dst == nil || dst.Rect != b {
		dst = image.NewRGBA(b)
	}
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// fitMask stretches an engine mask of any size over dst.
func fitMask(dst *image.Alpha, mask *image.Alpha) {
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), mask, mask.Bounds(), draw.Src, nil)
}
