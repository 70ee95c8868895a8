package booth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/tauraamui/archbooth/pkg/camera"
	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/database/models"
	"github.com/tauraamui/archbooth/pkg/database/repos"
	"github.com/tauraamui/archbooth/pkg/flow"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/monitoring"
	"github.com/tauraamui/archbooth/pkg/participant"
	"github.com/tauraamui/archbooth/pkg/recorder"
	"github.com/tauraamui/archbooth/pkg/share"
	"github.com/tauraamui/archbooth/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

var ErrNoSession = xerror.NewWithKind("state", "no recording session")

type Deps struct {
	Backend      videobackend.Backend
	Participants participant.Store
	Uploader     recorder.Uploader
	// Recordings is optional, without it nothing is written locally.
	Recordings *repos.RecordingRepository
	Metrics    *monitoring.Metrics
	Clock      clock.Clock
}

// State is what the front end renders from.
type State struct {
	Flow         flow.Snapshot      `json:"flow"`
	Session      string             `json:"session,omitempty"`
	CameraReady  bool               `json:"camera_ready"`
	HasComposite bool               `json:"has_composite"`
	Recorder     *recorder.Snapshot `json:"recorder,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Booth ties the kiosk screens to the recording session. A session is
// opened when the recording screen is entered and disposed when it is left.
type Booth struct {
	cfg     configdef.Values
	deps    Deps
	manager *camera.Manager
	flow    *flow.Flow

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	session     *Session
	generation  int
	sessionErr  string
	recording   *models.Recording
	subscribers map[int]chan State
	nextSub     int
}

func New(cfg configdef.Values, deps Deps) *Booth {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := Booth{
		cfg:         cfg,
		deps:        deps,
		manager:     camera.NewManager(deps.Backend),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: map[int]chan State{},
	}
	b.flow = flow.New(flow.Settings{
		WaitFor:      time.Duration(cfg.Flow.WaitSeconds) * time.Second,
		ThanksFor:    time.Duration(cfg.Flow.ThanksSeconds) * time.Second,
		Clock:        deps.Clock,
		Participants: deps.Participants,
		OnChange:     func(flow.Snapshot) { b.publish() },
		OnEnter: func(s flow.Screen) {
			if s == flow.Recording {
				b.openSession()
			}
		},
		OnLeave: func(s flow.Screen) {
			if s == flow.Recording {
				b.closeSession()
			}
		},
	})
	return &b
}

func (b *Booth) Flow() *flow.Flow { return b.flow }

func (b *Booth) State() State {
	b.mu.Lock()
	session, sessionErr := b.session, b.sessionErr
	b.mu.Unlock()

	state := State{Flow: b.flow.Snapshot(), Error: sessionErr}
	if session != nil {
		snap := session.Recorder().Snapshot()
		state.Session = session.ID()
		state.CameraReady = session.Ready()
		state.HasComposite = session.HasComposite()
		state.Recorder = &snap
	}
	return state
}

func (b *Booth) Begin() error {
	return b.flow.Begin()
}

func (b *Booth) Submit(ctx context.Context, p participant.Participant) error {
	return b.flow.Submit(ctx, p)
}

func (b *Booth) Home() {
	b.flow.Home()
}

func (b *Booth) FinishShare() error {
	return b.flow.Finish()
}

func (b *Booth) currentSession() (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, ErrNoSession
	}
	return b.session, nil
}

func (b *Booth) StartRecording() error {
	session, err := b.currentSession()
	if err != nil {
		return err
	}
	return session.StartRecording()
}

func (b *Booth) StopRecording() error {
	session, err := b.currentSession()
	if err != nil {
		return err
	}
	return session.Recorder().Stop()
}

func (b *Booth) RetryRecording() error {
	session, err := b.currentSession()
	if err != nil {
		return err
	}
	if err := session.Retry(); err != nil {
		return err
	}
	b.deps.Metrics.Recording("discarded")
	b.mu.Lock()
	b.recording = nil
	b.mu.Unlock()
	return nil
}

// SendRecording uploads the finished clip and, once it has a share
// url, moves the kiosk on to the share screen.
func (b *Booth) SendRecording(ctx context.Context) (string, error) {
	session, err := b.currentSession()
	if err != nil {
		return "", err
	}

	url, err := session.Recorder().Send(ctx)
	if err != nil {
		if errors.Is(err, recorder.ErrUpload) {
			b.deps.Metrics.UploadFailed()
			b.updateRecording(func(r *repos.RecordingRepository, rec *models.Recording) error {
				return r.MarkFailed(rec, err.Error())
			})
		}
		return "", err
	}

	b.deps.Metrics.Recording("uploaded")
	b.updateRecording(func(r *repos.RecordingRepository, rec *models.Recording) error {
		return r.MarkUploaded(rec, url)
	})

	if err := b.flow.Shared(url); err != nil {
		return url, err
	}
	return url, nil
}

// ShareQR renders the share code for the current url.
func (b *Booth) ShareQR() ([]byte, error) {
	return share.QRCode(b.flow.Snapshot().URL, b.cfg.Share.QRSize)
}

// Subscribe returns a channel carrying the latest state after every
// change. Slow readers only ever see the newest state.
func (b *Booth) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}
}

func (b *Booth) publish() {
	state := b.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

func (b *Booth) openSession() {
	b.mu.Lock()
	b.generation++
	generation := b.generation
	b.sessionErr = ""
	b.recording = nil
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		rec := recorder.New(b.recorderSettings())
		session, err := OpenSession(b.ctx, b.cfg, SessionDeps{
			Manager:     b.manager,
			Backend:     b.deps.Backend,
			Recorder:    rec,
			Metrics:     b.deps.Metrics,
			Clock:       b.deps.Clock,
			OnComposite: func(bool) { b.publish() },
		})

		b.mu.Lock()
		if generation != b.generation {
			b.mu.Unlock()
			session.Dispose()
			return
		}
		if err != nil {
			log.Error("Unable to open recording session: %v", err)
			b.sessionErr = err.Error()
		} else {
			b.session = session
		}
		b.mu.Unlock()
		b.publish()

		if session != nil && session.WaitReady(b.ctx) == nil {
			b.publish()
		}
	}()
}

func (b *Booth) closeSession() {
	b.mu.Lock()
	b.generation++
	session := b.session
	b.session = nil
	b.sessionErr = ""
	b.mu.Unlock()

	session.Dispose()
}

func (b *Booth) recorderSettings() recorder.Settings {
	settings := recorder.Settings{
		Duration:    time.Duration(b.cfg.Recording.DurationMS) * time.Millisecond,
		FPS:         b.cfg.Canvas.TargetFPS,
		Preferences: b.cfg.Recording.Formats,
		Encoders:    b.deps.Backend.Encoders(),
		Uploader:    b.deps.Uploader,
		OnChange:    b.recorderChanged,
	}
	if len(b.cfg.Recording.ArchiveDir) > 0 {
		settings.Archive = &recorder.Archive{Root: b.cfg.Recording.ArchiveDir}
	}
	return settings
}

func (b *Booth) recorderChanged(snap recorder.Snapshot) {
	if snap.State == recorder.Ready {
		b.recordingFinished(snap)
	}
	b.publish()
}

func (b *Booth) recordingFinished(snap recorder.Snapshot) {
	if b.deps.Recordings == nil {
		return
	}
	rec := models.Recording{Frames: snap.Frames, Size: snap.Size}
	if p := b.flow.Participant(); p != nil {
		rec.ParticipantUUID = p.ID
	}
	b.mu.Lock()
	if b.session != nil {
		rec.MediaType = b.session.Recorder().Format().MediaType
	}
	b.mu.Unlock()

	if err := b.deps.Recordings.Create(&rec); err != nil {
		log.Warn("Unable to store recording: %v", err)
		return
	}
	b.mu.Lock()
	b.recording = &rec
	b.mu.Unlock()
}

func (b *Booth) updateRecording(update func(*repos.RecordingRepository, *models.Recording) error) {
	b.mu.Lock()
	rec := b.recording
	b.mu.Unlock()
	if rec == nil || b.deps.Recordings == nil {
		return
	}
	if err := update(b.deps.Recordings, rec); err != nil {
		log.Warn("Unable to update recording %s: %v", rec.UUID, err)
	}
}

// Close returns the kiosk to welcome, releasing any session, and waits
// for pending work.
func (b *Booth) Close() {
	b.flow.Stop()
	b.flow.Home()
	b.closeSession()
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
