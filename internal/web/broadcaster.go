package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/PiCam/internal/notify"
)

// StatusEvent is one status message for SSE and websocket clients.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
	Kind  string `json:"kind,omitempty"` // set for capture events
	File  string `json:"file,omitempty"`
}

// StatusBroadcaster distributes status messages to every subscribed client.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribers.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends a message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// Notify broadcasts a finished capture, so the broadcaster can sit next to
// the MQTT notifier.
func (b *StatusBroadcaster) Notify(_ context.Context, ev notify.Event) error {
	evt := StatusEvent{Level: "info", Kind: ev.Kind, File: ev.Filename}
	took := time.Duration(ev.DurationMS) * time.Millisecond
	if ev.Error != "" {
		evt.Level = "error"
		evt.Msg = fmt.Sprintf("Capture failed after %s: %s", took, ev.Error)
		if stderr := strings.TrimSpace(ev.Stderr); stderr != "" {
			evt.Msg += " (" + stderr + ")"
		}
	} else {
		evt.Msg = fmt.Sprintf("Captured %s in %s", ev.Filename, took)
	}
	b.send(evt)
	return nil
}

// Close is a no-op; subscribers leave through their cleanup functions.
func (b *StatusBroadcaster) Close() error { return nil }

func (b *StatusBroadcaster) send(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to
// status clients. debug.SetOutput uses it to mirror the log.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}
