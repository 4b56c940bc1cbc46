package camera

import (
	"context"

	"github.com/cjeanneret/PiCam/internal/debug"
)

// Callback receives the resolved filename and the utility's stderr once
// the process has exited, successfully or not.
type Callback func(filename, stderr string)

// Result is the outcome of one capture.
type Result struct {
	Kind       Kind
	Filename   string
	Invocation Invocation
	Stderr     string
	Err        error // start failure or non-zero exit
}

// Prepare resolves the filename for kind and serializes the command.
func (c *Camera) Prepare(kind Kind, file string) Invocation {
	c.ResolveFilename(kind, file)
	return c.Command(kind)
}

// Capture runs a capture of kind and blocks until the utility exits.
func (c *Camera) Capture(ctx context.Context, kind Kind, file string) Result {
	inv := c.Prepare(kind, file)
	return execute(ctx, c.runner, inv, c.filename)
}

// TakePicture starts raspistill and returns immediately. cb, if not nil,
// is called once from another goroutine when the process exits.
func (c *Camera) TakePicture(ctx context.Context, file string, cb Callback) {
	c.CaptureAsync(ctx, Still, file, legacy(cb))
}

// RecordVideo starts raspivid and returns immediately. cb, if not nil,
// is called once from another goroutine when the process exits.
func (c *Camera) RecordVideo(ctx context.Context, file string, cb Callback) {
	c.CaptureAsync(ctx, Video, file, legacy(cb))
}

// CaptureAsync prepares the command on the calling goroutine, then runs it
// in the background and hands the full Result to done.
func (c *Camera) CaptureAsync(ctx context.Context, kind Kind, file string, done func(Result)) {
	inv := c.Prepare(kind, file)
	filename, runner := c.filename, c.runner
	go func() {
		res := execute(ctx, runner, inv, filename)
		if done != nil {
			done(res)
		}
	}()
}

func legacy(cb Callback) func(Result) {
	if cb == nil {
		return nil
	}
	return func(res Result) { cb(res.Filename, res.Stderr) }
}

func execute(ctx context.Context, r Runner, inv Invocation, filename string) Result {
	debug.Command(inv.Binary, inv.Line)
	stderr, err := r.Run(ctx, inv)
	if err != nil {
		debug.Warn(err, "camera: %s did not exit cleanly", inv.Binary)
	}
	if stderr != "" {
		debug.Trace("camera: %s stderr: %s", inv.Binary, stderr)
	}
	debug.Shot(inv.Kind.String(), filename)
	return Result{
		Kind:       inv.Kind,
		Filename:   filename,
		Invocation: inv,
		Stderr:     stderr,
		Err:        err,
	}
}
