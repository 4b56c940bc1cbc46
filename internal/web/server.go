package web

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cjeanneret/PiCam/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, broadcaster *StatusBroadcaster, capturer Capturer, view ConfigView) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: static fs: %w", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, capturer, view, subFS),
	}, nil
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/config", s.handlers.HandleConfig).Methods("GET")
	r.HandleFunc("/status/stream", s.handlers.HandleStatusStream).Methods("GET")
	r.HandleFunc("/status/ws", s.handlers.HandleStatusWS).Methods("GET")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	r.HandleFunc("/", s.handlers.ServeIndex).Methods("GET")
	r.HandleFunc("/{kind}", s.handlers.HandleCapture).Methods("POST")

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully. Captures started over HTTP are bound to ctx.
func (s *Server) Run(ctx context.Context) error {
	s.handlers.captureCtx = ctx
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
