package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/PiCam/internal/debug"
	"github.com/cjeanneret/PiCam/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web control page and API",
		Long: `Start the HTTP server. POST /still and POST /video start a capture
with a JSON body {"file": "...", "settings": {...}}; status events are
streamed on /status/stream (SSE) and /status/ws (websocket).`,
		Example: `  # Listen on defaults.web_port (8080)
  picam serve --config configs/default.yaml

  # Custom port
  picam serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port <= 0 {
				port = a.cfg.Defaults.WebPort
			}
			return a.runServe(cmd, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default defaults.web_port)")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, port int) error {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stderr, web.BroadcastWriter(broadcaster)))

	s, cleanup, err := a.session(broadcaster)
	if err != nil {
		return err
	}
	defer cleanup()

	view := web.ConfigView{
		Folder:   a.cfg.Camera.Folder,
		ExecMode: a.cfg.Camera.ExecMode,
		Settings: a.cfg.Camera.Settings,
		Still:    a.cfg.Camera.Still,
		Video:    a.cfg.Camera.Video,
	}
	srv, err := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, s, view)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
