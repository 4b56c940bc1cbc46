// Package notify reports finished captures to the outside world.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cjeanneret/PiCam/internal/hw/camera"
)

// Event is the payload sent for one finished capture.
type Event struct {
	Kind       string    `json:"kind"`
	Filename   string    `json:"filename"`
	Stderr     string    `json:"stderr"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Time       time.Time `json:"time"`
}

// NewEvent builds the event for res, finished at t after d.
func NewEvent(res camera.Result, d time.Duration, t time.Time) Event {
	ev := Event{
		Kind:       res.Kind.String(),
		Filename:   res.Filename,
		Stderr:     res.Stderr,
		DurationMS: d.Milliseconds(),
		Time:       t.UTC(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}

// Notifier receives capture events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }
func (Func) Close() error                                 { return nil }
