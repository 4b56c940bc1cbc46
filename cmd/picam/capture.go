package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/PiCam/internal/debug"
	"github.com/cjeanneret/PiCam/internal/hw/camera"
	"github.com/cjeanneret/PiCam/internal/logic/capture"
)

type captureKind struct {
	kind    camera.Kind
	short   string
	example string
}

var (
	captureStill = captureKind{
		kind:  camera.Still,
		short: "Take a picture with raspistill",
		example: `  # Timestamped picture in <home>/pictures
  picam still

  # 640x480 picture, no preview, into a given folder
  picam still a.jpg --folder /srv/pictures --set width=640 --set height=480 --set nopreview

  # Print the command line without running it
  picam still --dry-run --set quality=90`,
	}
	captureVideo = captureKind{
		kind:  camera.Video,
		short: "Record a video with raspivid",
		example: `  # Five second clip
  picam video clip.h264 --set timeout=5000

  # Stream to a pipe instead of a file
  picam video --set timeout=0 --set streamVideo=/tmp/camera.fifo`,
	}
)

type captureOptions struct {
	set    []string
	folder string
	dryRun bool
}

func newCaptureCmd(a *app, ck captureKind) *cobra.Command {
	var opts captureOptions
	cmd := &cobra.Command{
		Use:     ck.kind.String() + " [file]",
		Short:   ck.short,
		Example: ck.example,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCapture(cmd, ck.kind, args, opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "camera setting as name=value, or name alone for a switch (repeatable)")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "base folder for relative and generated file names")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the command line and exit")
	return cmd
}

func (a *app) runCapture(cmd *cobra.Command, kind camera.Kind, args []string, opts captureOptions) error {
	settings, err := parseSetFlags(opts.set)
	if err != nil {
		return err
	}
	req := capture.Request{Kind: kind, Folder: opts.folder, Settings: settings}
	if len(args) > 0 {
		req.File = args[0]
	}

	if opts.dryRun {
		s := capture.NewSession(a.cfg.NewCamera, capture.WithBaseSettings(a.cfg.SettingsFor))
		fmt.Fprintln(cmd.OutOrStdout(), s.Prepare(req).Line)
		return nil
	}

	s, cleanup, err := a.session()
	if err != nil {
		return err
	}
	defer cleanup()

	debug.Section("Capture")
	res, err := s.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	if res.Stderr != "" {
		fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
	}
	if res.Err != nil {
		return fmt.Errorf("%s: %w", res.Invocation.Binary, res.Err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Filename)
	return nil
}

// parseSetFlags turns --set values into settings, in flag order. "name"
// alone means true; "true"/"false" are booleans; anything else stays a
// string and the setter parses it.
func parseSetFlags(values []string) (camera.Settings, error) {
	settings := make(camera.Settings, 0, len(values))
	for _, kv := range values {
		name, raw, hasValue := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("--set %q: missing setting name", kv)
		}
		if !camera.IsSetting(name) {
			return nil, fmt.Errorf("--set %q: unknown setting %q (known: %s)", kv, name, strings.Join(camera.SettingNames(), ", "))
		}

		var value any = raw
		switch {
		case !hasValue, raw == "true":
			value = true
		case raw == "false":
			value = false
		}
		settings = append(settings, camera.Setting{Name: name, Value: value})
	}
	return settings, nil
}
