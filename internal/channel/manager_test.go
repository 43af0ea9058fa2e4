package channel_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"podwatch/internal/channel"
)

var errTransportClosed = errors.New("transport closed")

type fakeTransport struct {
	frames     chan []byte
	closed     chan struct{}
	once       sync.Once
	closeCalls atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case frame := <-t.frames:
		return frame, nil
	case <-t.closed:
		return nil, errTransportClosed
	}
}

func (t *fakeTransport) Close() error {
	t.closeCalls.Add(1)
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) Push(data []byte) {
	t.frames <- data
}

func (t *fakeTransport) Fail() {
	t.once.Do(func() { close(t.closed) })
}

// scriptDialer replays a fixed sequence of dial outcomes (nil = success).
// Outcomes beyond the script succeed.
type scriptDialer struct {
	mu         sync.Mutex
	outcomes   []error
	transports []*fakeTransport
	dials      int
	dialed     chan struct{}
	block      chan struct{}
}

func newScriptDialer(outcomes ...error) *scriptDialer {
	return &scriptDialer{outcomes: outcomes, dialed: make(chan struct{}, 64)}
}

func (d *scriptDialer) Dial(ctx context.Context, token string) (channel.Transport, error) {
	d.mu.Lock()
	idx := d.dials
	d.dials++
	var outcome error
	if idx < len(d.outcomes) {
		outcome = d.outcomes[idx]
	}
	block := d.block
	d.mu.Unlock()

	defer func() { d.dialed <- struct{}{} }()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if outcome != nil {
		return nil, outcome
	}

	transport := newFakeTransport()
	d.mu.Lock()
	d.transports = append(d.transports, transport)
	d.mu.Unlock()
	return transport, nil
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *scriptDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.transports) {
		return nil
	}
	return d.transports[i]
}

type scheduledRetry struct {
	delay time.Duration
	fn    func()
}

// timerRecorder captures scheduled reconnects so tests can fire them
// deterministically instead of depending on real timing.
type timerRecorder struct {
	mu        sync.Mutex
	scheduled []scheduledRetry
}

func (r *timerRecorder) afterFunc(d time.Duration, fn func()) *time.Timer {
	r.mu.Lock()
	r.scheduled = append(r.scheduled, scheduledRetry{delay: d, fn: fn})
	r.mu.Unlock()
	return time.AfterFunc(time.Hour, func() {})
}

func (r *timerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scheduled)
}

func (r *timerRecorder) fire(t *testing.T, i int) {
	t.Helper()
	r.mu.Lock()
	if i >= len(r.scheduled) {
		r.mu.Unlock()
		t.Fatalf("no scheduled retry at index %d", i)
	}
	entry := r.scheduled[i]
	r.mu.Unlock()
	entry.fn()
}

func (r *timerRecorder) delay(t *testing.T, i int) time.Duration {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.scheduled) {
		t.Fatalf("no scheduled retry at index %d", i)
	}
	return r.scheduled[i].delay
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func testPolicy() channel.RetryPolicy {
	return channel.RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, BackoffFactor: 2}
}

func TestSignInEstablishesConnection(t *testing.T) {
	dialer := newScriptDialer()
	mgr := channel.NewManager(dialer, testPolicy())
	defer mgr.Close()

	if mgr.State() != channel.StateIdle {
		t.Fatalf("expected idle before sign-in, got %s", mgr.State())
	}

	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never reached connected")

	if dialer.dialCount() != 1 {
		t.Fatalf("expected exactly one handshake, got %d", dialer.dialCount())
	}
}

func TestSignInWithSameTokenIsDebounced(t *testing.T) {
	dialer := newScriptDialer()
	mgr := channel.NewManager(dialer, testPolicy())
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never reached connected")
	mgr.SignIn("tok-1")
	mgr.SignIn("tok-1")

	time.Sleep(20 * time.Millisecond)
	if dialer.dialCount() != 1 {
		t.Fatalf("duplicate sign-in must not redial, got %d dials", dialer.dialCount())
	}
}

func TestFramesDeliveredInOrder(t *testing.T) {
	dialer := newScriptDialer()
	mgr := channel.NewManager(dialer, testPolicy())
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never reached connected")

	transport := dialer.transport(0)
	transport.Push([]byte("one"))
	transport.Push([]byte("two"))
	transport.Push([]byte("three"))

	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-mgr.Frames():
			if string(got.Data) != want {
				t.Fatalf("out of order: got %q want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %q", want)
		}
	}
}

func TestBufferedFramesTurnStaleOnSignOut(t *testing.T) {
	dialer := newScriptDialer()
	mgr := channel.NewManager(dialer, testPolicy())
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never reached connected")
	transport := dialer.transport(0)

	transport.Push([]byte("one"))
	waitFor(t, func() bool { return len(mgr.Frames()) == 1 }, "frame never buffered")
	live := <-mgr.Frames()
	if mgr.Stale(live) {
		t.Fatal("frame from the live session reported stale")
	}

	transport.Push([]byte("two"))
	transport.Push([]byte("three"))
	waitFor(t, func() bool { return len(mgr.Frames()) == 2 }, "frames never buffered")

	mgr.SignOut()

	for i := 0; i < 2; i++ {
		select {
		case frame := <-mgr.Frames():
			if !mgr.Stale(frame) {
				t.Fatalf("frame %d from ended session not reported stale", i)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out draining buffered frames")
		}
	}
}

func TestSignOutTearsDownIdempotently(t *testing.T) {
	dialer := newScriptDialer()
	mgr := channel.NewManager(dialer, testPolicy())
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never reached connected")
	transport := dialer.transport(0)

	mgr.SignOut()
	mgr.SignOut()

	if mgr.State() != channel.StateIdle {
		t.Fatalf("expected idle after sign-out, got %s", mgr.State())
	}
	if transport.closeCalls.Load() == 0 {
		t.Fatal("expected transport to be closed")
	}
	time.Sleep(20 * time.Millisecond)
	if dialer.dialCount() != 1 {
		t.Fatalf("sign-out must not trigger dials, got %d", dialer.dialCount())
	}
}

func TestReadFailureSchedulesBackedOffRetries(t *testing.T) {
	dialer := newScriptDialer(nil, errors.New("boom"))
	recorder := &timerRecorder{}
	mgr := channel.NewManager(dialer, testPolicy(), channel.WithAfterFunc(recorder.afterFunc))
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never reached connected")

	dialer.transport(0).Fail()
	waitFor(t, func() bool { return recorder.count() == 1 }, "retry never scheduled")
	if mgr.State() != channel.StateDisconnected {
		t.Fatalf("expected disconnected, got %s", mgr.State())
	}
	if got := recorder.delay(t, 0); got != 100*time.Millisecond {
		t.Fatalf("unexpected first delay: %s", got)
	}

	// First retry dials and fails, backing off further.
	recorder.fire(t, 0)
	waitFor(t, func() bool { return recorder.count() == 2 }, "second retry never scheduled")
	if got := recorder.delay(t, 1); got != 200*time.Millisecond {
		t.Fatalf("expected doubled delay, got %s", got)
	}

	// Second retry succeeds and resets the backoff sequence.
	recorder.fire(t, 1)
	waitFor(t, mgr.IsConnected, "manager never reconnected")
	if dialer.dialCount() != 3 {
		t.Fatalf("expected 3 dials, got %d", dialer.dialCount())
	}
}

func TestExhaustedRetriesStayDisconnected(t *testing.T) {
	boom := errors.New("refused")
	dialer := newScriptDialer(boom, boom, boom)
	recorder := &timerRecorder{}
	mgr := channel.NewManager(dialer, testPolicy(), channel.WithAfterFunc(recorder.afterFunc))
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, func() bool { return recorder.count() == 1 }, "first retry never scheduled")
	recorder.fire(t, 0)
	waitFor(t, func() bool { return recorder.count() == 2 }, "second retry never scheduled")
	recorder.fire(t, 1)

	// Third consecutive failure exhausts maxAttempts=3: no further retry.
	waitFor(t, func() bool { return dialer.dialCount() == 3 }, "third dial never happened")
	time.Sleep(20 * time.Millisecond)
	if recorder.count() != 2 {
		t.Fatalf("expected no retry after exhaustion, got %d scheduled", recorder.count())
	}
	if mgr.IsConnected() {
		t.Fatal("expected IsConnected to report degraded connectivity")
	}
	if mgr.State() != channel.StateDisconnected {
		t.Fatalf("expected disconnected, got %s", mgr.State())
	}

	// A fresh sign-out/sign-in cycle resets the counter and tries again.
	mgr.SignOut()
	mgr.SignIn("tok-1")
	waitFor(t, mgr.IsConnected, "manager never connected after reset")
	if dialer.dialCount() != 4 {
		t.Fatalf("expected 4 dials, got %d", dialer.dialCount())
	}
}

func TestStaleRetryAfterSignOutDoesNothing(t *testing.T) {
	dialer := newScriptDialer(errors.New("boom"))
	recorder := &timerRecorder{}
	mgr := channel.NewManager(dialer, testPolicy(), channel.WithAfterFunc(recorder.afterFunc))
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, func() bool { return recorder.count() == 1 }, "retry never scheduled")

	mgr.SignOut()
	recorder.fire(t, 0)

	time.Sleep(20 * time.Millisecond)
	if dialer.dialCount() != 1 {
		t.Fatalf("stale retry must not dial, got %d", dialer.dialCount())
	}
	if mgr.State() != channel.StateIdle {
		t.Fatalf("expected idle, got %s", mgr.State())
	}
}

func TestLateHandshakeAfterSignOutIsDiscarded(t *testing.T) {
	dialer := newScriptDialer()
	dialer.block = make(chan struct{})
	mgr := channel.NewManager(dialer, testPolicy())
	defer mgr.Close()

	mgr.SignIn("tok-1")
	waitFor(t, func() bool { return dialer.dialCount() == 1 }, "dial never started")

	mgr.SignOut()
	close(dialer.block)

	select {
	case <-dialer.dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("dial never resolved")
	}

	waitFor(t, func() bool {
		transport := dialer.transport(0)
		// Either the dial was cancelled (no transport) or the late transport
		// was closed on arrival.
		return transport == nil || transport.closeCalls.Load() > 0
	}, "late transport was not discarded")
	if mgr.State() != channel.StateIdle {
		t.Fatalf("expected idle, got %s", mgr.State())
	}
}

func TestAuthRejectionReportsAndGoesIdle(t *testing.T) {
	dialer := newScriptDialer(channel.ErrUnauthorized)
	var authErrors atomic.Int32
	mgr := channel.NewManager(dialer, testPolicy(), channel.WithOnAuthError(func() {
		authErrors.Add(1)
	}))
	defer mgr.Close()

	mgr.SignIn("tok-expired")
	waitFor(t, func() bool { return authErrors.Load() == 1 }, "auth error callback never fired")

	if mgr.State() != channel.StateIdle {
		t.Fatalf("expected idle after credential rejection, got %s", mgr.State())
	}
	time.Sleep(20 * time.Millisecond)
	if dialer.dialCount() != 1 {
		t.Fatalf("credential rejection must not retry, got %d dials", dialer.dialCount())
	}
}
