package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cjeanneret/PiCam/internal/config"
	"github.com/cjeanneret/PiCam/internal/hw/camera"
)

// fakeToken is an already completed token.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient records publications. Methods it does not override panic
// through the nil embedded interface.
type fakeClient struct {
	mqtt.Client
	err          error
	topic        string
	qos          byte
	payload      []byte
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos = topic, qos
	c.payload, _ = payload.([]byte)
	return newFakeToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

var finished = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func TestNewEvent(t *testing.T) {
	res := camera.Result{
		Kind:     camera.Video,
		Filename: "/v/a.h264",
		Stderr:   "mmal: failed",
		Err:      errors.New("exit status 70"),
	}
	ev := NewEvent(res, 1500*time.Millisecond, finished)
	if ev.Kind != "video" || ev.Filename != "/v/a.h264" || ev.Stderr != "mmal: failed" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Error != "exit status 70" {
		t.Errorf("Error = %q", ev.Error)
	}
	if ev.DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", ev.DurationMS)
	}
}

func TestMQTT_PublishesJSON(t *testing.T) {
	client := &fakeClient{}
	n := newMQTT(client, "picam/captures", 1)

	ev := NewEvent(camera.Result{Kind: camera.Still, Filename: "/p/a.jpg"}, time.Second, finished)
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if client.topic != "picam/captures" || client.qos != 1 {
		t.Errorf("published to %q qos %d", client.topic, client.qos)
	}

	var got map[string]any
	if err := json.Unmarshal(client.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["kind"] != "still" || got["filename"] != "/p/a.jpg" || got["duration_ms"] != float64(1000) {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["error"]; ok {
		t.Error("error should be omitted for a clean capture")
	}
	if got["time"] != "2024-05-06T07:08:09Z" {
		t.Errorf("time = %v", got["time"])
	}
}

func TestMQTT_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	n := newMQTT(client, "t", 0)
	if err := n.Notify(context.Background(), Event{}); err == nil {
		t.Error("expected publish error")
	}
}

func TestMQTT_Close(t *testing.T) {
	client := &fakeClient{}
	if err := newMQTT(client, "t", 0).Close(); err != nil {
		t.Fatal(err)
	}
	if !client.disconnected {
		t.Error("Close should disconnect the client")
	}
}

func TestNew_NoBrokerIsNop(t *testing.T) {
	n, err := New(config.MQTTConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(Nop); !ok {
		t.Errorf("New without broker = %T, want Nop", n)
	}
}

func TestMulti(t *testing.T) {
	var calls int
	count := Func(func(context.Context, Event) error { calls++; return nil })
	fail := Func(func(context.Context, Event) error { return errors.New("down") })

	err := Multi{count, fail, count}.Notify(context.Background(), Event{})
	if err == nil {
		t.Error("expected joined error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (a failure must not stop the fan-out)", calls)
	}
	if err := (Multi{Nop{}, count}).Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
