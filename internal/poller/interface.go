package poller

import (
	"time"

	"codeberg.org/mutker/padstate/internal/gamepad"
	"codeberg.org/mutker/padstate/internal/logger"
)

// Observer receives every derived state, once per tick.
type Observer func(gamepad.DeviceState)

// Unsubscribe removes an observer. Calling it more than once is a no-op.
type Unsubscribe func()

// State is the lifecycle state of a Poller.
type State int

const (
	// Idle means no observers and no ticker.
	Idle State = iota
	// Polling means at least one observer and a running ticker.
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}

	return "idle"
}

// Status describes the recent health of the poll loop.
type Status struct {
	State               State
	Observers           int
	Ticks               uint64
	ConsecutiveFailures int
	LastError           string
	LastTick            time.Time
}

// ticker abstracts time.Ticker for tests.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{time.NewTicker(d)}
}

// Option configures a Poller.
type Option func(*Poller) error

// WithDeadzone sets the shared deadzone threshold. Default is 0.05.
func WithDeadzone(deadzone float64) Option {
	return func(p *Poller) error {
		if err := validateDeadzone(deadzone); err != nil {
			return err
		}
		p.deadzone = deadzone
		return nil
	}
}

// WithRate sets the polling rate in Hz. Default is 60.
func WithRate(hz float64) Option {
	return func(p *Poller) error {
		if hz <= 0 {
			return errFactory.WithData(ErrInvalidRate, hz)
		}
		p.interval = time.Duration(float64(time.Second) / hz)
		if p.interval <= 0 {
			return errFactory.WithData(ErrInvalidRate, hz)
		}
		return nil
	}
}

// WithLayout replaces the standard control mapping.
func WithLayout(layout gamepad.Layout) Option {
	return func(p *Poller) error {
		if err := layout.Validate(); err != nil {
			return err
		}
		p.layout = layout
		return nil
	}
}

// WithLogger sets the logger used for tick failures and observer faults.
func WithLogger(log logger.Logger) Option {
	return func(p *Poller) error {
		p.log = log
		return nil
	}
}

// WithErrorHandler registers a function receiving tick failures and
// observer faults. It is called outside the poller lock.
func WithErrorHandler(fn func(error)) Option {
	return func(p *Poller) error {
		p.onError = fn
		return nil
	}
}
