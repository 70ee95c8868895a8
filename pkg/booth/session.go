package booth

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/tauraamui/archbooth/pkg/aperture"
	"github.com/tauraamui/archbooth/pkg/booth/process"
	"github.com/tauraamui/archbooth/pkg/camera"
	"github.com/tauraamui/archbooth/pkg/compose"
	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/monitoring"
	"github.com/tauraamui/archbooth/pkg/recorder"
	"github.com/tauraamui/archbooth/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

var ErrNoComposite = xerror.NewWithKind("state", "nothing composited yet")

// Session is one recording interaction: the camera and background
// feeds, the aperture, the compositing pipeline and the recorder.
// Ticks run one at a time and never hold the lock guarding the
// composite flag, so recorder callbacks may read it.
type Session struct {
	id          string
	clock       clock.Clock
	capture     *camera.Feed
	background  *camera.Feed
	strategy    aperture.Strategy
	normalizer  *compose.Normalizer
	compositor  *compose.Compositor
	scheduler   *process.Scheduler
	runner      process.Process
	recorder    *recorder.Recorder
	display     videobackend.Display
	metrics     *monitoring.Metrics
	onComposite func(bool)

	tickMu   sync.Mutex
	disposed bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	mu           sync.Mutex
	hasComposite bool

	disposeOnce sync.Once
}

type SessionDeps struct {
	Manager  *camera.Manager
	Backend  videobackend.Backend
	Recorder *recorder.Recorder
	Metrics  *monitoring.Metrics
	Clock    clock.Clock
	// OnComposite is told whenever HasComposite changes.
	OnComposite func(bool)
}

// OpenSession acquires the camera, starts the background and begins
// ticking. A missing camera fails with camera.ErrDevice.
func OpenSession(ctx context.Context, cfg configdef.Values, deps SessionDeps) (*Session, error) {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	capture, err := deps.Manager.Acquire(ctx, camera.Constraints{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	})
	if err != nil {
		return nil, err
	}

	strategy, err := newStrategy(cfg, deps.Metrics)
	if err != nil {
		capture.Release()
		return nil, err
	}

	letterbox, err := configdef.ParseColor(cfg.Canvas.LetterboxColor)
	if err != nil {
		capture.Release()
		strategy.Close() //nolint
		return nil, err
	}

	s := Session{
		id:          uuid.NewString(),
		clock:       deps.Clock,
		capture:     capture,
		strategy:    strategy,
		normalizer:  compose.NewNormalizer(cfg.Canvas.Width, cfg.Canvas.Height, cfg.Camera.Rotate, cfg.Camera.Mirror),
		compositor:  compose.NewCompositor(cfg.Canvas.Width, cfg.Canvas.Height, letterbox),
		recorder:    deps.Recorder,
		metrics:     deps.Metrics,
		onComposite: deps.OnComposite,
		ready:       make(chan struct{}),
		done:        make(chan struct{}),
	}

	if len(cfg.Background.Path) > 0 {
		background, err := deps.Manager.OpenBackground(ctx, cfg.Background.Path)
		if err != nil {
			log.Warn("Background unavailable, using letterbox fill: %v", err)
		} else {
			s.background = background
		}
	}

	if cfg.Display.Enabled {
		display, err := deps.Backend.NewDisplay(cfg.Display.Title)
		if err != nil {
			log.Warn("Unable to open display: %v", err)
		} else {
			s.display = display
		}
	}

	s.scheduler = process.NewScheduler(process.SchedulerSettings{
		TargetFPS: cfg.Canvas.TargetFPS,
		Clock:     deps.Clock,
		Tick:      s.Tick,
		OnSkip:    deps.Metrics.SkippedWake,
	})
	s.runner = s.scheduler.Process(cfg.Canvas.WakeHz).Setup()
	s.runner.Start()

	log.Info("Session [%s] started", s.id)
	return &s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Recorder() *recorder.Recorder { return s.recorder }

// HasComposite reports whether a composite has been produced since the
// session started or was last retried.
func (s *Session) HasComposite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasComposite
}

// Ready reports whether the camera has delivered its first frame.
func (s *Session) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the camera has delivered its first frame. It
// fails with ErrNoSession if the session is disposed first.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return ErrNoSession
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs one pass of the pipeline: normalise the latest camera
// frame, refresh the aperture, composite, record and present. Ticks
// before the camera is ready do nothing.
func (s *Session) Tick(now time.Time) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.disposed || !s.capture.Ready() {
		return
	}
	s.readyOnce.Do(func() {
		log.Debug("Session [%s] camera ready", s.id)
		close(s.ready)
	})
	s.metrics.Tick()

	var frame image.Image
	if latest := s.capture.Latest(); latest != nil && s.normalizer.Normalize(latest) {
		frame = s.normalizer.Frame()
	}

	var background image.Image
	if s.background != nil {
		background = s.background.Latest()
	}

	ap, ok := s.strategy.Refresh(frame)
	if !ok {
		ap = aperture.Aperture{}
	}
	composite, composed := s.compositor.Compose(frame, background, ap)

	s.mu.Lock()
	flipped := composed && !s.hasComposite
	if flipped {
		s.hasComposite = true
	}
	s.mu.Unlock()
	if flipped {
		s.compositeChanged(true)
	}

	var recorded image.Image
	if composed {
		recorded = composite
	}
	s.recorder.Capture(now, recorded)

	presented := frame
	if composed {
		presented = composite
	}
	if s.display != nil && presented != nil {
		if err := s.display.Show(presented); err != nil {
			log.Debug("Unable to present frame: %v", err)
		}
	}
}

func (s *Session) compositeChanged(on bool) {
	s.metrics.Composing(on)
	if s.onComposite != nil {
		s.onComposite(on)
	}
}

// StartRecording begins recording the composite canvas.
func (s *Session) StartRecording() error {
	if !s.HasComposite() {
		return ErrNoComposite
	}
	return s.recorder.Start(s.clock.Now(), s.compositor.Canvas().Bounds().Size())
}

// Retry discards the recording and shows the raw preview again until
// the next composite arrives.
func (s *Session) Retry() error {
	if err := s.recorder.Retry(); err != nil {
		return err
	}
	s.mu.Lock()
	was := s.hasComposite
	s.hasComposite = false
	s.mu.Unlock()
	if was {
		s.compositeChanged(false)
	}
	return nil
}

// Dispose tears the session down in dependency order. Every step runs
// even when an earlier one fails; failures are logged and dropped.
// Calling it more than once is a no-op.
func (s *Session) Dispose() {
	if s == nil {
		return
	}
	s.disposeOnce.Do(func() {
		s.runner.Stop()
		s.runner.Wait()

		s.tickMu.Lock()
		s.disposed = true
		s.tickMu.Unlock()
		close(s.done)

		s.mu.Lock()
		s.hasComposite = false
		s.mu.Unlock()

		var result error
		s.recorder.Abort()
		if err := s.strategy.Close(); err != nil {
			result = multierror.Append(result, xerror.Errorf("closing aperture strategy: %w", err))
		}
		s.background.Release()
		s.capture.Release()
		if s.display != nil {
			if err := s.display.Close(); err != nil {
				result = multierror.Append(result, xerror.Errorf("closing display: %w", err))
			}
		}

		if result != nil {
			log.Warn("Session [%s] disposed with errors: %v", s.id, result)
		} else {
			log.Info("Session [%s] disposed", s.id)
		}
		s.compositeChanged(false)
	})
}
