package recorder

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/draw"
)

const DefaultDuration = 10 * time.Second

var (
	ErrInvalidTransition = xerror.NewWithKind("state", "invalid recorder transition")
	ErrUpload            = xerror.NewWithKind("upload", "upload failed")
)

// Blob is the finished recording. Its bytes are never modified after
// finalisation.
type Blob struct {
	Data      []byte
	MediaType string
	Format    configdef.Format
	Frames    int
	FPS       int
	Duration  time.Duration
}

type Uploader interface {
	Upload(ctx context.Context, blob Blob) (string, error)
}

type Snapshot struct {
	State  State  `json:"state"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
	Size   int    `json:"size,omitempty"`
	Frames int    `json:"frames,omitempty"`
}

type Settings struct {
	Duration    time.Duration
	FPS         int
	Preferences []configdef.Format
	Encoders    []videoclip.Encoder
	Uploader    Uploader
	Archive     *Archive
	OnChange    func(Snapshot)
}

type Recorder struct {
	settings Settings

	mu         sync.Mutex
	state      State
	generation int
	format     configdef.Format
	stream     videoclip.Stream
	started    time.Time
	lastAt     time.Time
	frames     int
	held       *image.RGBA
	blob       *Blob
	url        string
	errMsg     string

	chunksMu sync.Mutex
	chunks   [][]byte
}

func New(settings Settings) *Recorder {
	if settings.Duration <= 0 {
		settings.Duration = DefaultDuration
	}
	if settings.FPS <= 0 {
		settings.FPS = 30
	}
	return &Recorder{settings: settings}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Recorder) snapshot() Snapshot {
	s := Snapshot{State: r.state, URL: r.url, Error: r.errMsg, Frames: r.frames}
	if r.blob != nil {
		s.Size = len(r.blob.Data)
	}
	return s
}

// Blob returns the finished recording, or nil when there is none.
func (r *Recorder) Blob() *Blob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blob
}

func (r *Recorder) Format() configdef.Format {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.format
}

func invalidTransition(from State, action string) error {
	return xerror.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, from)
}

func (r *Recorder) Start(now time.Time, size image.Point) error {
	r.mu.Lock()
	if r.state != Idle {
		defer r.mu.Unlock()
		return invalidTransition(r.state, "start")
	}

	format, encoder := Negotiate(r.settings.Preferences, r.settings.Encoders)
	r.resetChunks()
	stream, err := encoder.Open(format, r.settings.FPS, size, r.appendChunk)
	if err != nil {
		log.Warn("Unable to open %s encoder for %s, falling back to %s: %v", encoder.Name(), format.MediaType, MJPEGFormat.MediaType, err)
		format, encoder = MJPEGFormat, mjpegEncoder{}
		stream, err = encoder.Open(format, r.settings.FPS, size, r.appendChunk)
		if err != nil {
			defer r.mu.Unlock()
			return xerror.Errorf("unable to open recording stream: %w", err)
		}
	}

	log.Info("Recording started as %s using %s encoder", format.MediaType, encoder.Name())
	if format == MJPEGFormat {
		log.Warn("Recording as %s, uploads will be flagged for transcoding", MJPEGFormat.MediaType)
	}
	r.format = format
	r.stream = stream
	r.started = now
	r.lastAt = now
	r.frames = 0
	r.held = nil
	r.state = Recording
	r.generation++
	snap := r.snapshot()
	r.mu.Unlock()

	r.notify(snap)
	return nil
}

// Capture is called on every tick. Frames are paced by wall clock: the
// stream holds one frame per 1/FPS slot since Start, and slots no tick
// filled repeat the newest frame seen so far. A nil frame fills slots the
// same way, or only advances the clock before the first frame. Once the
// duration has elapsed it finalises instead, without writing the frame
// of that tick.
func (r *Recorder) Capture(now time.Time, frame image.Image) {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return
	}

	elapsed := now.Sub(r.started)
	if elapsed >= r.settings.Duration {
		snap := r.finalize(r.settings.Duration, true)
		r.mu.Unlock()
		r.notify(snap)
		return
	}
	r.lastAt = now

	if err := r.fill(r.slot(elapsed)+1, frame); err != nil {
		log.Error("Unable to encode recording frame: %v", err)
		r.stream.Abort()
		r.stream = nil
		r.held = nil
		r.resetChunks()
		r.state = Error
		r.errMsg = err.Error()
		snap := r.snapshot()
		r.mu.Unlock()
		r.notify(snap)
		return
	}
	r.mu.Unlock()
}

// slot is the index of the frame due at elapsed.
func (r *Recorder) slot(elapsed time.Duration) int {
	return int(int64(elapsed) * int64(r.settings.FPS) / int64(time.Second))
}

func (r *Recorder) totalFrames() int {
	return r.slot(r.settings.Duration)
}

// fill writes frames until target have been written, capped at the
// frame count of the full duration. Earlier slots repeat the held frame,
// the last one gets frame itself.
func (r *Recorder) fill(target int, frame image.Image) error {
	if total := r.totalFrames(); target > total {
		target = total
	}
	for r.frames < target-1 || (r.frames < target && frame == nil) {
		held := image.Image(r.held)
		if r.held == nil {
			if frame == nil {
				return nil
			}
			held = frame
		}
		if err := r.write(held); err != nil {
			return err
		}
	}
	if frame == nil {
		return nil
	}
	if r.frames < target {
		if err := r.write(frame); err != nil {
			return err
		}
	}
	r.held = cloneFrame(r.held, frame)
	return nil
}

func (r *Recorder) write(frame image.Image) error {
	if err := r.stream.Write(frame); err != nil {
		return err
	}
	r.frames++
	return nil
}

// cloneFrame copies frame into dst, which callers may keep while the
// source buffer is reused for the next tick.
func cloneFrame(dst *image.RGBA, frame image.Image) *image.RGBA {
	b := frame.Bounds()
	if dst == nil || dst.Rect != b {
		dst = image.NewRGBA(b)
	}
	draw.Draw(dst, b, frame, b.Min, draw.Src)
	return dst
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != Recording {
		defer r.mu.Unlock()
		return invalidTransition(r.state, "stop")
	}
	snap := r.finalize(r.lastAt.Sub(r.started), false)
	r.mu.Unlock()
	r.notify(snap)
	return nil
}

// finalize must be called with the lock held. When pad is set the
// remaining slots of the full duration repeat the last frame, so the
// clip plays for exactly as long as it was recorded.
func (r *Recorder) finalize(duration time.Duration, pad bool) Snapshot {
	r.state = Finalizing
	var padErr error
	if pad && r.held != nil {
		padErr = r.fill(r.totalFrames(), nil)
	}
	stream := r.stream
	r.stream = nil
	r.held = nil

	if padErr != nil {
		stream.Abort()
		log.Error("Unable to finalise recording: %v", padErr)
		r.resetChunks()
		r.state = Error
		r.errMsg = padErr.Error()
		return r.snapshot()
	}

	if err := stream.Stop(); err != nil {
		log.Error("Unable to finalise recording: %v", err)
		r.resetChunks()
		r.state = Error
		r.errMsg = err.Error()
		return r.snapshot()
	}

	blob := Blob{
		Data:      r.takeChunks(),
		MediaType: r.format.MediaType,
		Format:    r.format,
		Frames:    r.frames,
		FPS:       r.settings.FPS,
		Duration:  duration,
	}
	r.blob = &blob
	r.state = Ready
	log.Info("Recording finished with %d frames (%d bytes)", blob.Frames, len(blob.Data))

	if r.settings.Archive != nil {
		if path, err := r.settings.Archive.Store(blob); err != nil {
			log.Warn("Unable to archive recording: %v", err)
		} else {
			log.Debug("Archived recording to %s", path)
		}
	}
	return r.snapshot()
}

// Retry discards the finished recording so a new one can start.
func (r *Recorder) Retry() error {
	r.mu.Lock()
	if r.state != Ready && r.state != Error {
		defer r.mu.Unlock()
		return invalidTransition(r.state, "retry")
	}
	r.reset()
	snap := r.snapshot()
	r.mu.Unlock()
	r.notify(snap)
	return nil
}

// Abort force stops any active recording and discards everything,
// regardless of state.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if r.stream != nil {
		r.stream.Abort()
		r.stream = nil
	}
	wasIdle := r.state == Idle && r.blob == nil
	r.held = nil
	r.reset()
	snap := r.snapshot()
	r.mu.Unlock()
	if !wasIdle {
		r.notify(snap)
	}
}

func (r *Recorder) reset() {
	r.resetChunks()
	r.blob = nil
	r.url = ""
	r.errMsg = ""
	r.frames = 0
	r.state = Idle
	r.generation++
}

// Send uploads the finished recording. On failure the blob is kept so
// the upload can be tried again.
func (r *Recorder) Send(ctx context.Context) (string, error) {
	r.mu.Lock()
	if (r.state != Ready && r.state != Error) || r.blob == nil {
		defer r.mu.Unlock()
		return "", invalidTransition(r.state, "send")
	}
	if r.settings.Uploader == nil {
		defer r.mu.Unlock()
		return "", xerror.Errorf("%w: no uploader configured", ErrUpload)
	}
	blob := *r.blob
	generation := r.generation
	r.state = Uploading
	r.errMsg = ""
	snap := r.snapshot()
	r.mu.Unlock()
	r.notify(snap)

	url, err := r.settings.Uploader.Upload(ctx, blob)

	r.mu.Lock()
	if generation != r.generation {
		r.mu.Unlock()
		return "", xerror.New("recording was discarded during upload")
	}
	if err == nil && len(url) == 0 {
		err = xerror.New("upload returned no url")
	}
	if err != nil {
		r.state = Error
		r.errMsg = err.Error()
		snap = r.snapshot()
		r.mu.Unlock()
		r.notify(snap)
		return "", xerror.Errorf("%w: %v", ErrUpload, err)
	}
	r.state = Done
	r.url = url
	snap = r.snapshot()
	r.mu.Unlock()
	r.notify(snap)
	return url, nil
}

func (r *Recorder) notify(snap Snapshot) {
	if r.settings.OnChange != nil {
		r.settings.OnChange(snap)
	}
}

func (r *Recorder) appendChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	r.chunksMu.Lock()
	defer r.chunksMu.Unlock()
	r.chunks = append(r.chunks, data)
}

func (r *Recorder) resetChunks() {
	r.chunksMu.Lock()
	defer r.chunksMu.Unlock()
	r.chunks = nil
}

func (r *Recorder) takeChunks() []byte {
	r.chunksMu.Lock()
	defer r.chunksMu.Unlock()
	size := 0
	for _, c := range r.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range r.chunks {
		data = append(data, c...)
	}
	r.chunks = nil
	return data
}
