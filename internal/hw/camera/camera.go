// Package camera builds command lines for the Raspberry Pi camera
// utilities (raspistill, raspivid) and runs them.
//
// A Camera accumulates flags through fluent setters or bulk Settings,
// resolves an output filename, serializes the flags and spawns the
// utility. State persists across captures until Reset. A Camera is not
// safe for concurrent captures; use one per capture.
package camera

import (
	"os"
	"path/filepath"
	"time"
)

// Camera is the capture configuration builder.
type Camera struct {
	filename string
	folder   string
	params   Params

	runner   Runner
	now      func() time.Time
	homeDir  string
	binaries map[Kind]string
}

// Option customizes a Camera at construction.
type Option func(*Camera)

// WithRunner sets the process runner. Defaults to ShellRunner.
func WithRunner(r Runner) Option {
	return func(c *Camera) { c.runner = r }
}

// WithClock sets the time source used for synthesized filenames.
func WithClock(now func() time.Time) Option {
	return func(c *Camera) { c.now = now }
}

// WithHomeDir sets the directory the default pictures/videos folders live
// under. Defaults to the directory of the running executable.
func WithHomeDir(dir string) Option {
	return func(c *Camera) { c.homeDir = dir }
}

// WithBinary overrides the utility invoked for kind.
func WithBinary(kind Kind, name string) Option {
	return func(c *Camera) {
		if name != "" {
			c.binaries[kind] = name
		}
	}
}

// New returns an empty Camera.
func New(opts ...Option) *Camera {
	c := &Camera{
		runner: ShellRunner{},
		now:    time.Now,
		binaries: map[Kind]string{
			Still: Still.Binary(),
			Video: Video.Binary(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.homeDir == "" {
		c.homeDir = executableDir()
	}
	return c
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(exe)
}

// Filename returns the last resolved output path ("" before any capture).
func (c *Camera) Filename() string { return c.filename }

// Folder returns the base folder ("" until set or first capture).
func (c *Camera) Folder() string { return c.folder }

// Params returns the flag mapping. Mutating it mutates the Camera.
func (c *Camera) Params() *Params { return &c.params }

// BaseFolder sets the folder relative filenames are joined onto.
func (c *Camera) BaseFolder(dir string) *Camera {
	c.folder = dir
	return c
}

// Reset clears every flag. The filename and folder are kept.
func (c *Camera) Reset() *Camera {
	c.params.Reset()
	return c
}
