package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/cjeanneret/PiCam/internal/debug"
	"github.com/cjeanneret/PiCam/internal/hw/camera"
	"github.com/cjeanneret/PiCam/internal/logic/capture"
)

const maxBodyBytes = 1 << 20

// CaptureRequest is the body of POST /still and POST /video. Settings keep
// the order of the JSON object.
type CaptureRequest struct {
	File     string          `json:"file"`
	Folder   string          `json:"folder"`
	Settings camera.Settings `json:"settings"`
}

// Capturer starts a capture in the background.
type Capturer interface {
	Start(ctx context.Context, req capture.Request, done func(capture.Result)) (string, error)
}

// ConfigView is what GET /config returns.
type ConfigView struct {
	Folder   string          `json:"folder,omitempty"`
	ExecMode string          `json:"exec_mode"`
	Settings camera.Settings `json:"settings"`
	Still    camera.Settings `json:"still"`
	Video    camera.Settings `json:"video"`
	Options  []string        `json:"options"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Capturer    Capturer
	Config      ConfigView
	staticFS    fs.FS
	upgrader    websocket.Upgrader

	// captureCtx bounds background captures; it outlives each request.
	captureCtx context.Context
}

// NewHandlers creates handlers with the given dependencies.
// If capturer is nil, capture routes return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, capturer Capturer, view ConfigView, staticFS fs.FS) *Handlers {
	if view.Options == nil {
		view.Options = camera.SettingNames()
	}
	return &Handlers{
		Broadcaster: broadcaster,
		Capturer:    capturer,
		Config:      view,
		staticFS:    staticFS,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the page may be served through a proxy
			},
		},
		captureCtx: context.Background(),
	}
}

// HandleConfig returns the configured capture settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Config)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleCapture handles POST /{kind}: it starts a still or video capture
// and answers 202 with the resolved filename.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind, ok := camera.ParseKind(mux.Vars(r)["kind"])
	if !ok {
		http.Error(w, "unknown capture kind", http.StatusBadRequest)
		return
	}

	var body CaptureRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if h.Capturer == nil {
		http.Error(w, "capture not configured", http.StatusServiceUnavailable)
		return
	}

	filename, err := h.Capturer.Start(h.captureCtx, capture.Request{
		Kind:     kind,
		File:     body.File,
		Folder:   body.Folder,
		Settings: body.Settings,
	}, nil)
	if errors.Is(err, capture.ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.Broadcaster.Broadcast("info", fmt.Sprintf("Started %s capture to %s", kind, filename))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "started",
		"kind":     kind.String(),
		"filename": filename,
	})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// HandleStatusWS handles GET /status/ws: the same feed as the SSE stream,
// one JSON text message per event.
func (h *Handlers) HandleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Warn(err, "WebSocket upgrade")
		return
	}
	defer conn.Close()

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// The client never sends anything; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				debug.Trace("websocket write: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
