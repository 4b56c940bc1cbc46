package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/PiCam/internal/hw/camera"
	"github.com/cjeanneret/PiCam/internal/logic/capture"
)

// fakeCapturer records requests and can pretend to be busy.
type fakeCapturer struct {
	mu   sync.Mutex
	reqs []capture.Request
	busy bool
}

func (f *fakeCapturer) Start(_ context.Context, req capture.Request, _ func(capture.Result)) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return "", capture.ErrBusy
	}
	f.reqs = append(f.reqs, req)
	name := req.File
	if name == "" {
		name = "/opt/picam/" + req.Kind.Folder() + "/auto." + req.Kind.Ext()
	}
	return name, nil
}

func (f *fakeCapturer) requests() []capture.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capture.Request(nil), f.reqs...)
}

func newTestServer(t *testing.T, c Capturer) (*Server, *StatusBroadcaster) {
	t.Helper()
	b := NewStatusBroadcaster()
	view := ConfigView{
		ExecMode: "shell",
		Settings: camera.Settings{{Name: "width", Value: 1920}, {Name: "height", Value: 1080}},
	}
	s, err := NewServer(":0", b, c, view)
	if err != nil {
		t.Fatal(err)
	}
	return s, b
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ---------- HandleCapture ----------

func TestHandleCapture_Still(t *testing.T) {
	fc := &fakeCapturer{}
	s, _ := newTestServer(t, fc)

	w := post(t, s.Router(), "/still", `{"file":"a.jpg","settings":{"quality":90,"width":640,"hflip":true}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (%s)", w.Code, http.StatusAccepted, w.Body)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "started" || resp["kind"] != "still" || resp["filename"] != "a.jpg" {
		t.Errorf("response = %v", resp)
	}

	reqs := fc.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	var names []string
	for _, st := range reqs[0].Settings {
		names = append(names, st.Name)
	}
	if strings.Join(names, ",") != "quality,width,hflip" {
		t.Errorf("settings order = %v", names)
	}
}

func TestHandleCapture_VideoEmptyBody(t *testing.T) {
	fc := &fakeCapturer{}
	s, _ := newTestServer(t, fc)

	w := post(t, s.Router(), "/video", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	reqs := fc.requests()
	if len(reqs) != 1 || reqs[0].Kind != camera.Video || reqs[0].File != "" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestHandleCapture_UnknownKind(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{})
	w := post(t, s.Router(), "/panorama", "{}")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCapture_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{})
	cases := []string{"not json", `["width", 640]`, `{"settings": [1, 2]}`}
	for _, body := range cases {
		if w := post(t, s.Router(), "/still", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
}

func TestHandleCapture_OversizedBody(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{})
	big := `{"file":"` + strings.Repeat("x", 2<<20) + `"}`
	if w := post(t, s.Router(), "/still", big); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d (oversized body)", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCapture_Busy(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{busy: true})
	if w := post(t, s.Router(), "/still", "{}"); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestHandleCapture_NilCapturer(t *testing.T) {
	s, _ := newTestServer(t, nil)
	if w := post(t, s.Router(), "/still", "{}"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleCapture_BroadcastsStart(t *testing.T) {
	s, b := newTestServer(t, &fakeCapturer{})
	ch, unsub := b.Subscribe()
	defer unsub()

	post(t, s.Router(), "/video", `{"file":"/tmp/v.h264"}`)
	evt := receive(t, ch)
	if evt.Msg != "Started video capture to /tmp/v.h264" {
		t.Errorf("msg = %q", evt.Msg)
	}
}

// ---------- HandleConfig ----------

func TestHandleConfig(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{})
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"settings":{"width":1920,"height":1080}`) {
		t.Errorf("settings not in order: %s", body)
	}

	var view struct {
		ExecMode string   `json:"exec_mode"`
		Options  []string `json:"options"`
	}
	if err := json.Unmarshal([]byte(body), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ExecMode != "shell" {
		t.Errorf("exec_mode = %q", view.ExecMode)
	}
	if len(view.Options) != len(camera.SettingNames()) {
		t.Errorf("options = %d, want %d", len(view.Options), len(camera.SettingNames()))
	}
}

// ---------- ServeIndex ----------

func TestServeIndex(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	if !strings.Contains(w.Body.String(), "<html>") {
		t.Error("body should contain HTML content")
	}
}

func TestStaticFiles(t *testing.T) {
	s, _ := newTestServer(t, &fakeCapturer{})
	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// ---------- status feeds ----------

func TestHandleStatusStream(t *testing.T) {
	s, b := newTestServer(t, &fakeCapturer{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	waitForClients(t, b, 1)
	b.BroadcastMsg("over sse")

	buf := make([]byte, 4096)
	var got strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(got.String(), "over sse") && time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	if !strings.Contains(got.String(), "data: ") || !strings.Contains(got.String(), "over sse") {
		t.Errorf("stream = %q", got.String())
	}
}

func TestHandleStatusWS(t *testing.T) {
	s, b := newTestServer(t, &fakeCapturer{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/status/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, b, 1)
	b.Broadcast("error", "over ws")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt StatusEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Level != "error" || evt.Msg != "over ws" {
		t.Errorf("event = %+v", evt)
	}

	conn.Close()
	waitForClients(t, b, 0)
}

func waitForClients(t *testing.T, b *StatusBroadcaster, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", b.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
