package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"podwatch/internal/config"
	"podwatch/internal/logging"
)

const (
	frameBuffer      = 64
	maxRetryInterval = 2 * time.Minute
)

// RetryPolicy bounds the reconnect behavior after connectivity failures.
type RetryPolicy struct {
	// MaxAttempts stops retrying after this many consecutive failures.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// BackoffFactor multiplies the delay per attempt.
	BackoffFactor float64
}

// PolicyFromConfig derives the retry policy from channel configuration.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   cfg.Channel.MaxAttempts,
		BaseDelay:     time.Duration(cfg.Channel.BaseDelayMS) * time.Millisecond,
		BackoffFactor: cfg.Channel.BackoffFactor,
	}
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.BackoffFactor
	bo.RandomizationFactor = 0
	bo.MaxInterval = maxRetryInterval
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// Option customizes manager construction.
type Option func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.NewComponentLogger(logger, "channel")
	}
}

// WithOnAuthError registers a callback invoked when the backend rejects the
// session credential during a handshake. The manager has already torn the
// connection down when the callback fires.
func WithOnAuthError(fn func()) Option {
	return func(m *Manager) { m.onAuthError = fn }
}

// WithAfterFunc replaces the retry timer source. Tests use this to fire
// scheduled reconnects deterministically.
func WithAfterFunc(fn func(time.Duration, func()) *time.Timer) Option {
	return func(m *Manager) { m.afterFunc = fn }
}

// Manager owns the push-channel connection lifecycle for one session at a
// time. All transitions are serialized under an internal mutex, so rapid
// sign-in/out toggling can never leave two live transports.
type Manager struct {
	dialer Dialer
	policy RetryPolicy
	logger *slog.Logger

	frames    chan Frame
	done      chan struct{}
	closeOnce sync.Once

	state atomic.Int32

	afterFunc   func(time.Duration, func()) *time.Timer
	onAuthError func()

	mu         sync.Mutex
	signedIn   bool
	token      string
	generation uint64
	transport  Transport
	retryTimer *time.Timer
	attempts   int
	bo         backoff.BackOff
	dialCtx    context.Context
	dialCancel context.CancelFunc
}

// NewManager builds a manager in the idle state.
func NewManager(dialer Dialer, policy RetryPolicy, opts ...Option) *Manager {
	m := &Manager{
		dialer:    dialer,
		policy:    policy,
		logger:    logging.NewComponentLogger(nil, "channel"),
		frames:    make(chan Frame, frameBuffer),
		done:      make(chan struct{}),
		afterFunc: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Frame is one inbound message tagged with the connection that produced it.
// The tag lets consumers notice frames that were buffered before a teardown.
type Frame struct {
	generation uint64
	Data       []byte
}

// Frames returns the ordered inbound message stream. The channel is never
// closed; consumers should select against Done. The buffer is shared across
// sign-ins, so consumers must check Stale before acting on a frame.
func (m *Manager) Frames() <-chan Frame {
	return m.frames
}

// Stale reports whether the frame was produced by a connection that has
// since been torn down. Stale frames must be discarded: their session ended
// and the job cache no longer belongs to them.
func (m *Manager) Stale(f Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.signedIn || f.generation != m.generation
}

// Done is closed when the manager is closed for good.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether the transport is currently established. It
// stays false after the retry budget is exhausted, which is the persistent
// degraded-connectivity signal consumers observe.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// SignIn starts a connection for the given credential. Signing in again with
// the same token is a no-op; a different token tears the old connection down
// first.
func (m *Manager) SignIn(token string) {
	m.mu.Lock()
	if m.signedIn && m.token == token {
		m.mu.Unlock()
		return
	}
	if m.signedIn {
		m.teardownLocked()
	}
	m.signedIn = true
	m.token = token
	m.generation++
	m.attempts = 0
	m.bo = m.policy.newBackOff()
	m.dialCtx, m.dialCancel = context.WithCancel(context.Background())

	gen := m.generation
	ctx := m.dialCtx
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	go m.connect(ctx, gen)
}

// SignOut releases the transport, cancels any pending dial or retry, and
// returns to idle. Safe to call repeatedly and from any state.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()
}

// Close tears the connection down and marks the manager finished. The job
// cache owned by the caller is deliberately untouched; Close is the
// "owner went away" path, not a sign-out.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
	m.SignOut()
}

// teardownLocked is idempotent: it is the single path for sign-out, auth
// rejection, and close.
func (m *Manager) teardownLocked() {
	m.generation++
	m.signedIn = false
	m.token = ""
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
	m.attempts = 0
	m.setStateLocked(StateIdle)
}

func (m *Manager) connect(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if !m.signedIn || gen != m.generation {
		m.mu.Unlock()
		return
	}
	token := m.token
	attemptID := uuid.NewString()
	m.mu.Unlock()

	m.logger.Debug("dialing channel", logging.String("attempt_id", attemptID))
	transport, err := m.dialer.Dial(ctx, token)

	m.mu.Lock()
	if !m.signedIn || gen != m.generation {
		m.mu.Unlock()
		// The session ended while the handshake was in flight; a late
		// transport must not be installed.
		if err == nil {
			_ = transport.Close()
		}
		return
	}

	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			m.logger.Warn("credential rejected during handshake", logging.Error(err))
			cb := m.onAuthError
			m.teardownLocked()
			m.mu.Unlock()
			if cb != nil {
				go cb()
			}
			return
		}
		m.scheduleRetryLocked(gen, err)
		m.mu.Unlock()
		return
	}

	m.transport = transport
	m.attempts = 0
	m.bo.Reset()
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	go m.readLoop(gen, transport)
}

func (m *Manager) scheduleRetryLocked(gen uint64, cause error) {
	m.attempts++
	m.setStateLocked(StateDisconnected)

	if m.policy.MaxAttempts > 0 && m.attempts >= m.policy.MaxAttempts {
		m.logger.Warn("reconnect attempts exhausted; real-time updates unavailable",
			logging.Int(logging.FieldAttempt, m.attempts),
			logging.Error(cause))
		return
	}

	delay := m.bo.NextBackOff()
	if delay == backoff.Stop {
		m.logger.Warn("backoff stopped; real-time updates unavailable", logging.Error(cause))
		return
	}

	m.logger.Debug("scheduling reconnect",
		logging.Int(logging.FieldAttempt, m.attempts),
		logging.Duration("delay", delay),
		logging.Error(cause))
	m.retryTimer = m.afterFunc(delay, func() { m.retry(gen) })
}

// retry fires from the scheduled timer. A timer that outlives its session
// (generation changed) does nothing.
func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if !m.signedIn || gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	ctx := m.dialCtx
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.connect(ctx, gen)
}

func (m *Manager) readLoop(gen uint64, transport Transport) {
	for {
		data, err := transport.ReadMessage()
		if err != nil {
			m.mu.Lock()
			if !m.signedIn || gen != m.generation || m.transport != transport {
				// Teardown already ran; the read failure is just the closed
				// transport reporting in.
				m.mu.Unlock()
				return
			}
			m.transport = nil
			_ = transport.Close()
			m.scheduleRetryLocked(gen, err)
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		live := m.signedIn && gen == m.generation
		m.mu.Unlock()
		if !live {
			return
		}

		select {
		case m.frames <- Frame{generation: gen, Data: data}:
		case <-m.done:
			return
		}
	}
}

func (m *Manager) setStateLocked(next State) {
	prev := State(m.state.Swap(int32(next)))
	if prev != next {
		m.logger.Debug("state changed",
			logging.String(logging.FieldState, next.String()),
			logging.String("from", prev.String()))
	}
}
