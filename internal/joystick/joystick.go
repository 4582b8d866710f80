// Package joystick reads the Linux joystick API (/dev/input/js*) and keeps
// a live snapshot of the device for the poller to sample.
package joystick

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"codeberg.org/mutker/padstate/internal/errors"
	"codeberg.org/mutker/padstate/internal/gamepad"
	"codeberg.org/mutker/padstate/internal/logger"
)

// Event types of struct js_event
const (
	EventButton uint8 = 0x01
	EventAxis   uint8 = 0x02
	EventInit   uint8 = 0x80
)

// Event mirrors struct js_event.
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// Info describes an opened device.
type Info struct {
	Path    string
	Name    string
	Axes    int
	Buttons int
}

// Device is a gamepad.Source fed by a background reader.
type Device struct {
	info Info
	r    io.ReadCloser
	log  logger.Logger

	mu      sync.RWMutex
	axes    []float64
	buttons []gamepad.ButtonRecord
	err     error
	closed  bool

	done chan struct{}
}

// NewDevice starts reading js_event records from r.
func NewDevice(r io.ReadCloser, info Info) *Device {
	d := &Device{
		info:    info,
		r:       r,
		log:     logger.New("joystick").With("device", info.Path),
		axes:    make([]float64, info.Axes),
		buttons: make([]gamepad.ButtonRecord, info.Buttons),
		done:    make(chan struct{}),
	}
	go d.read()

	return d
}

// Info returns the device description.
func (d *Device) Info() Info {
	return d.info
}

// Snapshot returns a copy of the current readings. Once the reader has
// failed, it returns a joystick_disconnected error.
func (d *Device) Snapshot() (gamepad.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.err != nil {
		return gamepad.Snapshot{}, d.err
	}

	return gamepad.Snapshot{
		Axes:    append([]float64(nil), d.axes...),
		Buttons: append([]gamepad.ButtonRecord(nil), d.buttons...),
	}, nil
}

// Apply folds one event into the readings.
func (d *Device) Apply(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.apply(e)
}

func (d *Device) apply(e Event) {
	i := int(e.Number)
	switch e.Type &^ EventInit {
	case EventAxis:
		for len(d.axes) <= i {
			d.axes = append(d.axes, 0)
		}
		d.axes[i] = NormalizeAxis(e.Value)
	case EventButton:
		for len(d.buttons) <= i {
			d.buttons = append(d.buttons, gamepad.ButtonRecord{})
		}
		held := e.Value != 0
		value := 0.0
		if held {
			value = 1
		}
		d.buttons[i] = gamepad.ButtonRecord{Held: held, Value: value}
	}
}

// NormalizeAxis maps a raw js axis value to -1..1.
func NormalizeAxis(raw int16) float64 {
	return math.Max(-1, float64(raw)/math.MaxInt16)
}

// Done is closed when the reader stops.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// Err returns the error that stopped the reader, if any.
func (d *Device) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.err
}

// Close stops the reader and releases the device.
func (d *Device) Close() error {
	errFactory := errors.New()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errFactory.New(ErrAlreadyClosed)
	}
	d.closed = true
	d.mu.Unlock()

	err := d.r.Close()
	<-d.done
	if err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func (d *Device) read() {
	defer close(d.done)

	for {
		var e Event
		err := binary.Read(d.r, binary.LittleEndian, &e)

		d.mu.Lock()
		if err != nil {
			closed := d.closed
			d.err = errors.New().Wrap(ErrDisconnected, err)
			d.mu.Unlock()

			if !closed {
				d.log.Warn().Err(err).Msg("Joystick disconnected")
			}
			return
		}
		d.apply(e)
		d.mu.Unlock()
	}
}
