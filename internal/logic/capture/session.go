// Package capture runs capture requests end to end: it builds a fresh
// camera per request, lights the busy indicator and reports the outcome.
package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/PiCam/internal/debug"
	"github.com/cjeanneret/PiCam/internal/hw/camera"
	"github.com/cjeanneret/PiCam/internal/notify"
)

// ErrBusy is returned when a capture is already running.
var ErrBusy = errors.New("capture already in progress")

// Indicator is switched on for the duration of a capture.
type Indicator interface {
	On() error
	Off() error
}

// Request describes one capture.
type Request struct {
	Kind     camera.Kind
	File     string          // empty = timestamped name
	Folder   string          // overrides the configured base folder
	Settings camera.Settings // applied after the base settings
}

// Result is a finished capture with its wall-clock duration.
type Result struct {
	camera.Result
	Duration time.Duration
}

// Session serializes captures on one camera device.
type Session struct {
	newCamera func() *camera.Camera
	base      func(camera.Kind) camera.Settings
	indicator Indicator
	notifier  notify.Notifier
	now       func() time.Time

	busy atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithBaseSettings sets the settings applied before each request's own.
func WithBaseSettings(base func(camera.Kind) camera.Settings) Option {
	return func(s *Session) { s.base = base }
}

// WithIndicator sets the busy indicator.
func WithIndicator(ind Indicator) Option {
	return func(s *Session) { s.indicator = ind }
}

// WithNotifier sets where finished captures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession returns a session building cameras with newCamera.
func NewSession(newCamera func() *camera.Camera, opts ...Option) *Session {
	s := &Session{
		newCamera: newCamera,
		base:      func(camera.Kind) camera.Settings { return nil },
		notifier:  notify.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Busy reports whether a capture is running.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Prepare builds the camera for req and returns the command it would run,
// without running it.
func (s *Session) Prepare(req Request) camera.Invocation {
	return s.camera(req).Prepare(req.Kind, req.File)
}

// Start launches req in the background and returns the resolved filename.
// done, if not nil, receives the result once the indicator is off and the
// notifier has been called. ctx bounds the capture process and the
// notification, so it must outlive the caller when that is a request.
func (s *Session) Start(ctx context.Context, req Request, done func(Result)) (string, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}

	cam := s.camera(req)
	s.setIndicator(true)
	start := s.now()
	debug.Live("Starting %s capture", req.Kind)

	cam.CaptureAsync(ctx, req.Kind, req.File, func(res camera.Result) {
		end := s.now()
		out := Result{Result: res, Duration: end.Sub(start)}
		s.setIndicator(false)

		if err := s.notifier.Notify(ctx, notify.NewEvent(res, out.Duration, end)); err != nil {
			debug.Warn(err, "Capture notification failed")
		}
		s.busy.Store(false)
		if done != nil {
			done(out)
		}
	})
	return cam.Filename(), nil
}

// Run captures req and waits for it to finish. The only error returned is
// ErrBusy; a failed capture is reported in Result.Err.
func (s *Session) Run(ctx context.Context, req Request) (Result, error) {
	ch := make(chan Result, 1)
	if _, err := s.Start(ctx, req, func(r Result) { ch <- r }); err != nil {
		return Result{}, err
	}
	// Cancelling ctx kills the process, so the callback still arrives.
	return <-ch, nil
}

func (s *Session) camera(req Request) *camera.Camera {
	cam := s.newCamera()
	cam.Configure(s.base(req.Kind))
	cam.Configure(req.Settings)
	if req.Folder != "" {
		cam.BaseFolder(req.Folder)
	}
	debug.Verbose("Capture parameters: %s", cam.Params())
	return cam
}

func (s *Session) setIndicator(on bool) {
	if s.indicator == nil {
		return
	}
	var err error
	if on {
		err = s.indicator.On()
	} else {
		err = s.indicator.Off()
	}
	if err != nil {
		debug.Warn(err, "Busy indicator")
	}
}
