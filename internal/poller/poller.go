// Package poller samples a gamepad at a fixed rate and broadcasts the
// derived state to subscribed observers.
package poller

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/padstate/internal/errors"
	"codeberg.org/mutker/padstate/internal/gamepad"
	"codeberg.org/mutker/padstate/internal/logger"
)

const (
	DefaultDeadzone = 0.05
	DefaultRate     = 60.0

	// repeat failures within a streak are logged at warn at most this often
	failureLogInterval = 5 * time.Second
)

var errFactory = errors.New()

type observer struct {
	id     uint64
	fn     Observer
	active atomic.Bool
	// set while fn runs, so an unsubscribe from inside fn does not wait on itself
	inCallback atomic.Bool
	// serializes deliveries so the initial value precedes any tick value
	mu sync.Mutex
}

// Poller owns the ticker, the previous state and the observer registry.
// The ticker runs only while at least one observer is subscribed.
type Poller struct {
	source    gamepad.Source
	layout    gamepad.Layout
	interval  time.Duration
	log       logger.Logger
	onError   func(error)
	newTicker func(time.Duration) ticker
	now       func() time.Time

	mu        sync.Mutex
	deadzone  float64
	state     State
	closed    bool
	gen       uint64
	stop      chan struct{}
	tk        ticker
	current   gamepad.DeviceState
	observers []*observer
	nextID    uint64
	faulted   bool
	warnedAt  time.Time
	status    Status
}

// New returns an idle Poller reading from source.
func New(source gamepad.Source, opts ...Option) (*Poller, error) {
	if source == nil {
		return nil, errFactory.New(ErrNoSource)
	}

	p := &Poller{
		source:    source,
		layout:    gamepad.StandardLayout(),
		interval:  time.Second / time.Duration(DefaultRate),
		log:       logger.New("poller"),
		newTicker: newTimeTicker,
		now:       time.Now,
		deadzone:  DefaultDeadzone,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func validateDeadzone(deadzone float64) error {
	if deadzone < 0 || deadzone > 1 {
		return errFactory.WithData(ErrInvalidDeadzone, deadzone)
	}

	return nil
}

// Interval returns the time between ticks.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Subscribe registers fn and synchronously delivers the current state to
// it before returning. The first subscription starts polling from the
// zero state.
func (p *Poller) Subscribe(fn Observer) Unsubscribe {
	obs := &observer{fn: fn}
	obs.active.Store(true)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.report(errFactory.New(ErrClosed))
		return func() {}
	}
	obs.id = p.nextID
	p.nextID++
	p.observers = append(p.observers, obs)
	if p.state == Idle {
		p.startLocked()
	}
	initial := p.current
	// Taken before releasing p.mu so no tick can reach obs first.
	obs.mu.Lock()
	p.mu.Unlock()

	p.call(obs, initial)
	obs.mu.Unlock()

	p.log.Debug().Uint64("observer", obs.id).Msg("Observer subscribed")

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(obs) })
	}
}

func (p *Poller) unsubscribe(obs *observer) {
	p.mu.Lock()
	obs.active.Store(false)
	for i, o := range p.observers {
		if o == obs {
			p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
			break
		}
	}
	p.log.Debug().Uint64("observer", obs.id).Msg("Observer unsubscribed")

	if len(p.observers) == 0 && p.state == Polling {
		p.stopLocked()
	}
	p.mu.Unlock()

	waitDelivery(obs)
}

// waitDelivery returns once no delivery to obs can still reach its
// callback. A delivery already running the callback is left alone.
func waitDelivery(obs *observer) {
	if obs.inCallback.Load() {
		return
	}
	obs.mu.Lock()
	obs.mu.Unlock() //nolint:staticcheck // empty critical section waits out deliver
}

// Close unsubscribes every observer and stops polling. Later
// subscriptions are rejected.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	observers := p.observers
	for _, o := range observers {
		o.active.Store(false)
	}
	p.observers = nil
	if p.state == Polling {
		p.stopLocked()
	}
	p.mu.Unlock()

	for _, o := range observers {
		waitDelivery(o)
	}

	return nil
}

// SetDeadzone replaces the threshold used from the next tick on.
func (p *Poller) SetDeadzone(deadzone float64) error {
	if err := validateDeadzone(deadzone); err != nil {
		return err
	}

	p.mu.Lock()
	p.deadzone = deadzone
	p.mu.Unlock()

	return nil
}

// Deadzone returns the current threshold.
func (p *Poller) Deadzone() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.deadzone
}

// State returns Idle or Polling.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Current returns the most recently published state.
func (p *Poller) Current() gamepad.DeviceState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

// Status returns a snapshot of the poll loop's health.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.status
	s.State = p.state
	s.Observers = len(p.observers)

	return s
}

func (p *Poller) startLocked() {
	p.gen++
	p.state = Polling
	p.current = gamepad.DeviceState{}
	p.faulted = false
	p.status = Status{}
	p.stop = make(chan struct{})
	p.tk = p.newTicker(p.interval)

	go p.run(p.gen, p.tk, p.stop)

	p.log.Info().
		Dur("interval", p.interval).
		Float64("deadzone", p.deadzone).
		Str("layout", p.layout.Name).
		Msg("Polling started")
}

func (p *Poller) stopLocked() {
	p.tk.Stop()
	close(p.stop)
	p.tk = nil
	p.stop = nil
	p.state = Idle
	p.current = gamepad.DeviceState{}

	p.log.Info().Uint64("ticks", p.status.Ticks).Msg("Polling stopped")
}

func (p *Poller) run(gen uint64, tk ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			p.tick(gen)
		}
	}
}

// tick runs one poll-sample-notify cycle for session gen. Ticks of a
// stopped session are ignored.
func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if p.state != Polling || p.gen != gen {
		p.mu.Unlock()
		return
	}

	next, err := p.sampleLocked()
	if err != nil {
		p.status.ConsecutiveFailures++
		p.status.LastError = err.Error()
		first := !p.faulted
		p.faulted = true
		failures := p.status.ConsecutiveFailures
		warn := false
		if now := p.now(); first || now.Sub(p.warnedAt) >= failureLogInterval {
			warn = !first
			p.warnedAt = now
		}
		p.mu.Unlock()

		switch {
		case first:
			p.report(err)
		case warn:
			p.log.Warn().Err(err).Int("failed_ticks", failures).Msg("Tick still failing")
		default:
			p.log.Debug().Err(err).Msg("Tick failed")
		}
		return
	}

	if p.faulted {
		p.log.Info().Int("failed_ticks", p.status.ConsecutiveFailures).Msg("Device readings recovered")
	}
	p.faulted = false
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.Ticks++
	p.status.LastTick = p.now()
	p.current = next
	observers := append([]*observer(nil), p.observers...)
	p.mu.Unlock()

	for _, obs := range observers {
		p.deliver(obs, next)
	}
}

func (p *Poller) sampleLocked() (gamepad.DeviceState, error) {
	raw, err := p.source.Snapshot()
	if err != nil {
		return gamepad.DeviceState{}, errFactory.Wrap(ErrSourceRead, err)
	}

	next, err := p.layout.Sample(raw, p.current, p.deadzone)
	if err != nil {
		return gamepad.DeviceState{}, errFactory.Wrap(ErrSample, err)
	}

	return next, nil
}

func (p *Poller) deliver(obs *observer, state gamepad.DeviceState) {
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if !obs.active.Load() {
		return
	}
	p.call(obs, state)
}

// call invokes the observer, containing any panic to this observer.
func (p *Poller) call(obs *observer, state gamepad.DeviceState) {
	obs.inCallback.Store(true)
	defer func() {
		obs.inCallback.Store(false)
		if r := recover(); r != nil {
			p.report(errFactory.WithData(ErrObserverFault, fmt.Sprintf("observer %d: %v", obs.id, r)))
		}
	}()

	obs.fn(state)
}

func (p *Poller) report(err error) {
	var coded errors.Error
	if errors.As(err, &coded) {
		p.log.ErrorWithCode(coded).Msg("Poller error")
	} else {
		p.log.Error().Err(err).Msg("Poller error")
	}

	if p.onError == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("Error handler panicked")
		}
	}()
	p.onError(err)
}
