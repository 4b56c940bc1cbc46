package gpio

import (
	"fmt"

	"github.com/cjeanneret/PiCam/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver drives BCM pins through /dev/gpiomem with go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
}

// NewRPiDriver maps GPIO memory. Needs a Raspberry Pi and access to
// /dev/gpiomem (or root).
func NewRPiDriver() (*RPiDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w (not a Raspberry Pi?)", err)
	}
	debug.Verbose("gpio: memory mapped")
	return &RPiDriver{pins: make(map[int]rpio.Pin)}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	r.pins[pin] = p
	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, ok := r.pins[pin]
	if !ok {
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = r.pins[pin]
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// Close drives every used pin low, returns it to input and unmaps memory.
func (r *RPiDriver) Close() error {
	for pin, p := range r.pins {
		debug.GPIO("Release", pin, Low)
		p.Low()
		p.Input()
	}
	return rpio.Close()
}
