// Package led drives a single busy indicator pin while a capture runs.
package led

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/PiCam/internal/hw/gpio"
)

// LED is an active-high indicator on one BCM pin. Pin 0 disables it and
// every method becomes a no-op.
type LED struct {
	mu  sync.Mutex
	drv gpio.Driver
	pin int
	on  bool
}

// New configures pin as an output and switches it off.
func New(drv gpio.Driver, pin int) (*LED, error) {
	l := &LED{drv: drv, pin: pin}
	if pin == 0 {
		return l, nil
	}
	if pin < 0 || pin > 27 {
		return nil, fmt.Errorf("led: pin %d outside BCM range 1-27", pin)
	}
	if err := drv.SetupPin(pin, gpio.Output); err != nil {
		return nil, fmt.Errorf("led: setup pin %d: %w", pin, err)
	}
	if err := drv.WritePin(pin, gpio.Low); err != nil {
		return nil, fmt.Errorf("led: write pin %d: %w", pin, err)
	}
	return l, nil
}

// On lights the indicator.
func (l *LED) On() error { return l.set(true) }

// Off switches the indicator off.
func (l *LED) Off() error { return l.set(false) }

// IsOn reports the last state written.
func (l *LED) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *LED) set(on bool) error {
	if l == nil || l.pin == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.drv.WritePin(l.pin, gpio.Level(on)); err != nil {
		return err
	}
	l.on = on
	return nil
}
