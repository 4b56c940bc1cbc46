package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cjeanneret/PiCam/internal/config"
	"github.com/cjeanneret/PiCam/internal/debug"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
	disconnectMS   = 250
)

// MQTT publishes each event as JSON on one topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// New returns an MQTT notifier when a broker is configured, Nop otherwise.
func New(cfg config.MQTTConfig) (Notifier, error) {
	if cfg.Broker == "" {
		return Nop{}, nil
	}
	return NewMQTT(cfg)
}

// NewMQTT connects to cfg.Broker.
func NewMQTT(cfg config.MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	debug.Info("MQTT connected to %s, topic %s", cfg.Broker, cfg.Topic)
	return newMQTT(client, cfg.Topic, cfg.QoS), nil
}

func newMQTT(client mqtt.Client, topic string, qos int) *MQTT {
	return &MQTT{client: client, topic: topic, qos: byte(qos)}
}

// Notify publishes ev and waits for the broker acknowledgement the QoS
// level asks for, or for ctx to end.
func (m *MQTT) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	tok := m.client.Publish(m.topic, m.qos, false, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt publish %s: timed out", m.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", m.topic, err)
	}
	debug.Trace("mqtt: published %s to %s", ev.Filename, m.topic)
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(disconnectMS)
	return nil
}
