package flow

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/participant"
	"github.com/tauraamui/xerror"
)

const DefaultCountdown = 10 * time.Second

var ErrTransition = xerror.NewWithKind("state", "invalid screen transition")

type Screen int

const (
	Welcome Screen = iota
	Form
	Wait
	Recording
	Share
	Thanks
)

var screenNames = map[Screen]string{
	Welcome:   "welcome",
	Form:      "form",
	Wait:      "wait",
	Recording: "recording",
	Share:     "share",
	Thanks:    "thanks",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Snapshot struct {
	Screen      Screen                   `json:"screen"`
	Participant *participant.Participant `json:"participant,omitempty"`
	URL         string                   `json:"url,omitempty"`
	Deadline    *time.Time               `json:"deadline,omitempty"`
}

type Settings struct {
	WaitFor      time.Duration
	ThanksFor    time.Duration
	Clock        clock.Clock
	Participants participant.Store
	OnChange     func(Snapshot)
	OnEnter      func(Screen)
	OnLeave      func(Screen)
}

// Flow walks a participant through the kiosk screens. Countdown screens
// advance on their own and their timers die with the screen.
type Flow struct {
	settings Settings

	mu          sync.Mutex
	screen      Screen
	participant *participant.Participant
	url         string
	deadline    *time.Time
	timer       *clock.Timer
	generation  int
}

type event struct {
	left, entered Screen
	snapshot      Snapshot
}

func New(settings Settings) *Flow {
	if settings.Clock == nil {
		settings.Clock = clock.New()
	}
	return &Flow{settings: settings, screen: Welcome}
}

func (f *Flow) Screen() Screen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screen
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Flow) snapshot() Snapshot {
	s := Snapshot{Screen: f.screen, URL: f.url}
	if f.participant != nil {
		p := *f.participant
		s.Participant = &p
	}
	if f.deadline != nil {
		d := *f.deadline
		s.Deadline = &d
	}
	return s
}

// Participant returns the registered participant, if any.
func (f *Flow) Participant() *participant.Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.participant == nil {
		return nil
	}
	p := *f.participant
	return &p
}

func (f *Flow) Begin() error {
	return f.move(Welcome, Form, nil)
}

// Submit validates and stores the participant, then starts the wait
// countdown.
func (f *Flow) Submit(ctx context.Context, p participant.Participant) error {
	if screen := f.Screen(); screen != Form {
		return xerror.Errorf("%w: cannot submit participant on %s", ErrTransition, screen)
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	if f.settings.Participants != nil {
		if err := f.settings.Participants.Save(ctx, &p); err != nil {
			return xerror.Errorf("unable to save participant: %w", err)
		}
	}

	return f.move(Form, Wait, func() { f.participant = &p })
}

// Shared moves on from recording once the clip has a share url.
// Without one there is nothing to show, so the kiosk starts over.
func (f *Flow) Shared(url string) error {
	if len(url) == 0 {
		log.Warn("No share url for recording, returning to welcome")
		return f.move(Recording, Welcome, nil)
	}
	return f.move(Recording, Share, func() { f.url = url })
}

func (f *Flow) Finish() error {
	return f.move(Share, Thanks, nil)
}

// Home abandons the current interaction from any screen.
func (f *Flow) Home() {
	f.mu.Lock()
	if f.screen == Welcome {
		f.mu.Unlock()
		return
	}
	events := f.transition(Welcome)
	f.mu.Unlock()
	f.dispatch(events)
}

// Stop cancels any running countdown.
func (f *Flow) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelTimer()
}

func (f *Flow) move(from, to Screen, apply func()) error {
	f.mu.Lock()
	if f.screen != from {
		defer f.mu.Unlock()
		return xerror.Errorf("%w: cannot go to %s from %s", ErrTransition, to, f.screen)
	}
	if apply != nil {
		apply()
	}
	events := f.transition(to)
	f.mu.Unlock()
	f.dispatch(events)
	return nil
}

// transition must be called with the lock held. Countdowns of zero
// length advance straight through, so one call may produce several events.
func (f *Flow) transition(to Screen) []event {
	var events []event
	for {
		f.cancelTimer()
		left := f.screen
		f.screen = to
		if to == Welcome {
			f.participant = nil
			f.url = ""
		}

		next, after := f.countdown(to)
		if after > 0 {
			f.schedule(to, next, after)
		}
		events = append(events, event{left: left, entered: to, snapshot: f.snapshot()})
		if after > 0 || next == to {
			return events
		}
		to = next
	}
}

func (f *Flow) countdown(screen Screen) (Screen, time.Duration) {
	switch screen {
	case Wait:
		return Recording, f.settings.WaitFor
	case Thanks:
		return Welcome, f.settings.ThanksFor
	}
	return screen, 0
}

func (f *Flow) schedule(from, to Screen, after time.Duration) {
	f.generation++
	generation := f.generation
	deadline := f.settings.Clock.Now().Add(after)
	f.deadline = &deadline
	f.timer = f.settings.Clock.AfterFunc(after, func() {
		f.mu.Lock()
		if generation != f.generation || f.screen != from {
			f.mu.Unlock()
			return
		}
		events := f.transition(to)
		f.mu.Unlock()
		f.dispatch(events)
	})
}

func (f *Flow) cancelTimer() {
	f.generation++
	f.deadline = nil
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Flow) dispatch(events []event) {
	for _, e := range events {
		log.Debug("Screen %s -> %s", e.left, e.entered)
		if f.settings.OnLeave != nil && e.left != e.entered {
			f.settings.OnLeave(e.left)
		}
		if f.settings.OnEnter != nil {
			f.settings.OnEnter(e.entered)
		}
		if f.settings.OnChange != nil {
			f.settings.OnChange(e.snapshot)
		}
	}
}
