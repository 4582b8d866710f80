package poller

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/padstate/internal/errors"
	"codeberg.org/mutker/padstate/internal/gamepad"
	"codeberg.org/mutker/padstate/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeSource is a live, externally mutated device.
type fakeSource struct {
	mu   sync.Mutex
	raw  gamepad.Snapshot
	err  error
	hits int
}

func newFakeSource() *fakeSource {
	return &fakeSource{raw: gamepad.Snapshot{
		Axes:    make([]float64, 4),
		Buttons: make([]gamepad.ButtonRecord, 17),
	}}
}

func (s *fakeSource) Snapshot() (gamepad.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	if s.err != nil {
		return gamepad.Snapshot{}, s.err
	}
	return gamepad.Snapshot{
		Axes:    append([]float64(nil), s.raw.Axes...),
		Buttons: append([]gamepad.ButtonRecord(nil), s.raw.Buttons...),
	}, nil
}

func (s *fakeSource) setButton(i int, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0.0
	if held {
		v = 1
	}
	s.raw.Buttons[i] = gamepad.ButtonRecord{Held: held, Value: v}
}

func (s *fakeSource) setAxis(i int, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Axes[i] = v
}

func (s *fakeSource) setRaw(raw gamepad.Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw, s.err = raw, err
}

func (s *fakeSource) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

type harness struct {
	p       *Poller
	src     *fakeSource
	tickers []*fakeTicker
	errs    []error
	mu      sync.Mutex
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{src: newFakeSource()}
	opts = append(opts, WithErrorHandler(func(err error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.errs = append(h.errs, err)
	}))

	p, err := New(h.src, opts...)
	require.NoError(t, err)
	p.newTicker = func(time.Duration) ticker {
		h.mu.Lock()
		defer h.mu.Unlock()
		tk := &fakeTicker{ch: make(chan time.Time)}
		h.tickers = append(h.tickers, tk)
		return tk
	}
	h.p = p
	t.Cleanup(func() { _ = p.Close() })

	return h
}

// tick runs one cycle of the current session synchronously.
func (h *harness) tick() {
	h.p.mu.Lock()
	gen := h.p.gen
	h.p.mu.Unlock()
	h.p.tick(gen)
}

func (h *harness) reported() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func (h *harness) tickerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tickers)
}

type recorder struct {
	mu     sync.Mutex
	states []gamepad.DeviceState
}

func (r *recorder) observe(s gamepad.DeviceState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []gamepad.DeviceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gamepad.DeviceState(nil), r.states...)
}

func (r *recorder) last() gamepad.DeviceState {
	all := r.all()
	return all[len(all)-1]
}

func TestNewValidatesOptions(t *testing.T) {
	src := newFakeSource()

	_, err := New(nil)
	assert.True(t, errors.HasCode(err, ErrNoSource))

	_, err = New(src, WithRate(0))
	assert.True(t, errors.HasCode(err, ErrInvalidRate))

	_, err = New(src, WithRate(-5))
	assert.True(t, errors.HasCode(err, ErrInvalidRate))

	_, err = New(src, WithDeadzone(-0.1))
	assert.True(t, errors.HasCode(err, ErrInvalidDeadzone))

	_, err = New(src, WithLayout(gamepad.Layout{}))
	assert.True(t, errors.HasCode(err, gamepad.ErrInvalidLayout))

	p, err := New(src)
	require.NoError(t, err)
	assert.InDelta(t, DefaultDeadzone, p.Deadzone(), 0)
	assert.Equal(t, time.Second/60, p.Interval())

	p, err = New(src, WithRate(100), WithDeadzone(0.2))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, p.Interval())
	assert.InDelta(t, 0.2, p.Deadzone(), 0)
}

func TestIdleWithoutObservers(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, Idle, h.p.State())
	assert.Zero(t, h.tickerCount(), "no ticker may exist without observers")
	assert.Zero(t, h.src.reads())
}

func TestSubscribeDeliversDefaultStateImmediately(t *testing.T) {
	h := newHarness(t)
	h.src.setButton(2, true)

	var r recorder
	h.p.Subscribe(r.observe)

	require.Len(t, r.all(), 1)
	assert.Equal(t, gamepad.DeviceState{}, r.last())
	assert.Equal(t, Polling, h.p.State())
	assert.Equal(t, 1, h.tickerCount())
	assert.Zero(t, h.src.reads(), "subscribing must not sample")
}

func TestTickSamplesAndTracksEdges(t *testing.T) {
	h := newHarness(t)

	var r recorder
	h.p.Subscribe(r.observe)

	h.src.setButton(2, true)
	h.src.setAxis(0, 0.03)
	h.tick()
	assert.Equal(t, gamepad.Button{Held: true, JustPressed: true}, r.last().Buttons.A)
	assert.Zero(t, r.last().Left.Stick.X)

	h.src.setAxis(0, 0.06)
	h.tick()
	assert.Equal(t, gamepad.Button{Held: true, JustPressed: false}, r.last().Buttons.A)
	assert.Equal(t, 0.06, r.last().Left.Stick.X)

	h.src.setButton(2, false)
	h.tick()
	assert.Equal(t, gamepad.Button{}, r.last().Buttons.A)

	require.Len(t, r.all(), 4)
	assert.Equal(t, r.last(), h.p.Current())
	assert.Equal(t, uint64(3), h.p.Status().Ticks)
}

func TestObserversShareOneSamplePerTick(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var order []string
	var first, second gamepad.DeviceState
	h.p.Subscribe(func(s gamepad.DeviceState) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "first")
		first = s
	})
	h.p.Subscribe(func(s gamepad.DeviceState) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "second")
		second = s
	})

	h.src.setButton(9, true)
	order = nil
	h.tick()

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, first, second)
	assert.True(t, first.Buttons.Start.JustPressed)
	assert.Equal(t, 1, h.src.reads(), "one sample per tick regardless of observer count")
	assert.Equal(t, 1, h.tickerCount(), "observers share one ticker")
}

func TestLateSubscriberReceivesCurrentState(t *testing.T) {
	h := newHarness(t)

	var early, late recorder
	h.p.Subscribe(early.observe)
	h.src.setButton(3, true)
	h.tick()

	h.p.Subscribe(late.observe)
	require.Len(t, late.all(), 1)
	assert.Equal(t, early.last(), late.last())
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	h := newHarness(t)

	var kept, dropped recorder
	h.p.Subscribe(kept.observe)
	unsubscribe := h.p.Subscribe(dropped.observe)

	h.tick()
	unsubscribe()
	unsubscribe() // second call is a no-op
	h.tick()

	assert.Len(t, kept.all(), 3)
	assert.Len(t, dropped.all(), 2)
	assert.Equal(t, Polling, h.p.State())
	assert.Equal(t, 1, h.p.Status().Observers)
}

func TestLastUnsubscribeStopsTicker(t *testing.T) {
	h := newHarness(t)

	var r recorder
	unsubscribe := h.p.Subscribe(r.observe)
	h.tick()
	unsubscribe()

	assert.Equal(t, Idle, h.p.State())
	require.Equal(t, 1, h.tickerCount())
	assert.True(t, h.tickers[0].isStopped())

	// Any tick still in flight for the stopped session is ignored.
	reads := h.src.reads()
	h.p.tick(h.p.gen)
	assert.Equal(t, reads, h.src.reads())
	assert.Len(t, r.all(), 2)
}

func TestRestartResetsEdgeBaseline(t *testing.T) {
	h := newHarness(t)

	var first recorder
	unsubscribe := h.p.Subscribe(first.observe)
	h.src.setButton(2, true)
	h.tick()
	h.tick()
	assert.False(t, first.last().Buttons.A.JustPressed)
	unsubscribe()

	// The button is still held when a new session starts.
	var second recorder
	h.p.Subscribe(second.observe)
	assert.Equal(t, gamepad.DeviceState{}, second.last())
	h.tick()

	assert.Equal(t, gamepad.Button{Held: true, JustPressed: true}, second.last().Buttons.A)
	assert.Equal(t, 2, h.tickerCount())
}

func TestUnsubscribeFromOwnCallback(t *testing.T) {
	h := newHarness(t)

	var calls int
	var unsubscribe Unsubscribe
	unsubscribe = h.p.Subscribe(func(gamepad.DeviceState) {
		calls++
		if calls == 2 {
			unsubscribe()
		}
	})

	h.tick()
	h.tick()

	assert.Equal(t, 2, calls)
	assert.Equal(t, Idle, h.p.State())
}

func TestUnsubscribeWhileAnotherObserverBlocks(t *testing.T) {
	h := newHarness(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	first := true
	h.p.Subscribe(func(gamepad.DeviceState) {
		if first {
			first = false
			return
		}
		close(entered)
		<-release
	})
	var r recorder
	unsubscribe := h.p.Subscribe(r.observe)

	ticked := make(chan struct{})
	go func() {
		h.tick()
		close(ticked)
	}()
	<-entered

	unsubscribed := make(chan struct{})
	go func() {
		unsubscribe()
		close(unsubscribed)
	}()
	select {
	case <-unsubscribed:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe blocked on another observer")
	}

	close(release)
	<-ticked
	assert.Len(t, r.all(), 1, "no notification after unsubscribe returned")
}

func TestUnsubscribeWaitsForPendingDelivery(t *testing.T) {
	h := newHarness(t)

	var r recorder
	unsubscribe := h.p.Subscribe(r.observe)

	h.p.mu.Lock()
	obs := h.p.observers[0]
	h.p.mu.Unlock()

	// Holding the delivery lock stands in for a tick that already passed
	// the liveness check.
	obs.mu.Lock()
	done := make(chan struct{})
	go func() {
		unsubscribe()
		close(done)
	}()

	isDone := func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	assert.Never(t, isDone, 50*time.Millisecond, 5*time.Millisecond)
	obs.mu.Unlock()
	assert.Eventually(t, isDone, time.Second, 5*time.Millisecond)
	assert.Equal(t, Idle, h.p.State())
}

func TestObserverFaultIsIsolated(t *testing.T) {
	h := newHarness(t)

	var before, after recorder
	h.p.Subscribe(before.observe)
	faulty := false
	h.p.Subscribe(func(gamepad.DeviceState) {
		if faulty {
			panic("observer failed")
		}
	})
	h.p.Subscribe(after.observe)

	faulty = true
	h.tick()
	h.tick()

	assert.Len(t, before.all(), 3)
	assert.Len(t, after.all(), 3)
	assert.Equal(t, Polling, h.p.State())

	errs := h.reported()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, errors.HasCode(err, ErrObserverFault))
		assert.Contains(t, err.Error(), "observer failed")
	}
}

func TestMalformedSnapshotReportedOnceAndRecovers(t *testing.T) {
	h := newHarness(t)

	var r recorder
	h.p.Subscribe(r.observe)
	h.src.setButton(2, true)
	h.tick()
	good := r.last()

	h.src.setRaw(gamepad.Snapshot{Axes: make([]float64, 2)}, nil)
	h.tick()
	h.tick()
	h.tick()

	errs := h.reported()
	require.Len(t, errs, 1, "a failure streak is reported once")
	assert.True(t, errors.HasCode(errs[0], ErrSample))
	assert.True(t, errors.HasCode(errs[0], gamepad.ErrMalformedSnapshot))
	assert.Len(t, r.all(), 2, "failed ticks publish nothing")
	assert.Equal(t, good, h.p.Current())

	status := h.p.Status()
	assert.Equal(t, 3, status.ConsecutiveFailures)
	assert.NotEmpty(t, status.LastError)
	assert.Equal(t, Polling, status.State)

	// The source recovers; edges continue from the last good state.
	src := newFakeSource()
	src.raw.Buttons[2] = gamepad.ButtonRecord{Held: true, Value: 1}
	h.src.setRaw(src.raw, nil)
	h.tick()

	assert.Len(t, r.all(), 3)
	assert.Equal(t, gamepad.Button{Held: true}, r.last().Buttons.A)
	assert.Zero(t, h.p.Status().ConsecutiveFailures)

	// A new streak is reported again.
	h.src.setRaw(gamepad.Snapshot{}, nil)
	h.tick()
	assert.Len(t, h.reported(), 2)
}

func TestRepeatedFailuresWarnPeriodically(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warn", true)
	t.Cleanup(func() { logger.InitWithWriter(os.Stdout, "info", false) })

	h := newHarness(t)
	clock := time.Unix(0, 0)
	h.p.now = func() time.Time { return clock }

	h.p.Subscribe(func(gamepad.DeviceState) {})
	h.src.setRaw(gamepad.Snapshot{}, assert.AnError)

	warnings := func() int { return strings.Count(buf.String(), "Tick still failing") }

	h.tick()
	assert.Zero(t, warnings(), "the first failure is reported as an error")

	clock = clock.Add(time.Second)
	h.tick()
	assert.Zero(t, warnings())

	clock = clock.Add(failureLogInterval)
	h.tick()
	assert.Equal(t, 1, warnings())

	clock = clock.Add(time.Second)
	h.tick()
	assert.Equal(t, 1, warnings())

	clock = clock.Add(failureLogInterval)
	h.tick()
	assert.Equal(t, 2, warnings())
	assert.Contains(t, buf.String(), "failed_ticks=5")
	assert.Len(t, h.reported(), 1)
}

func TestSourceErrorReported(t *testing.T) {
	h := newHarness(t)

	var r recorder
	h.p.Subscribe(r.observe)
	h.src.setRaw(gamepad.Snapshot{}, assert.AnError)
	h.tick()

	errs := h.reported()
	require.Len(t, errs, 1)
	assert.True(t, errors.HasCode(errs[0], ErrSourceRead))
	assert.ErrorIs(t, errs[0], assert.AnError)
	assert.Len(t, r.all(), 1)
}

func TestSetDeadzone(t *testing.T) {
	h := newHarness(t)

	var r recorder
	h.p.Subscribe(r.observe)
	h.src.setAxis(1, 0.1)

	h.tick()
	assert.Equal(t, 0.1, r.last().Left.Stick.Y)

	require.NoError(t, h.p.SetDeadzone(0.2))
	h.tick()
	assert.Zero(t, r.last().Left.Stick.Y)

	err := h.p.SetDeadzone(2)
	assert.True(t, errors.HasCode(err, ErrInvalidDeadzone))
	assert.InDelta(t, 0.2, h.p.Deadzone(), 0)
}

func TestCloseStopsAndRejectsSubscribers(t *testing.T) {
	h := newHarness(t)

	var r recorder
	h.p.Subscribe(r.observe)
	require.NoError(t, h.p.Close())
	require.NoError(t, h.p.Close())

	assert.Equal(t, Idle, h.p.State())
	assert.True(t, h.tickers[0].isStopped())

	var late recorder
	unsubscribe := h.p.Subscribe(late.observe)
	unsubscribe()
	assert.Empty(t, late.all())
	assert.Equal(t, 1, h.tickerCount())

	errs := h.reported()
	require.Len(t, errs, 1)
	assert.True(t, errors.HasCode(errs[0], ErrClosed))
}

func TestTickerDrivesTicks(t *testing.T) {
	h := newHarness(t)

	states := make(chan gamepad.DeviceState, 4)
	h.p.Subscribe(func(s gamepad.DeviceState) { states <- s })
	<-states // initial

	h.src.setButton(8, true)
	h.tickers[0].ch <- time.Now()

	select {
	case s := <-states:
		assert.True(t, s.Buttons.Back.JustPressed)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestRealTicker(t *testing.T) {
	src := newFakeSource()
	p, err := New(src, WithRate(200))
	require.NoError(t, err)
	defer p.Close()

	states := make(chan gamepad.DeviceState, 16)
	unsubscribe := p.Subscribe(func(s gamepad.DeviceState) {
		select {
		case states <- s:
		default:
		}
	})
	<-states

	select {
	case <-states:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a real tick")
	}

	unsubscribe()
	assert.Equal(t, Idle, p.State())
}
