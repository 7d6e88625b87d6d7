package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

type SessionConfig struct {
	// ImmediateAttempts bounds one initialization sequence before a deferred retry is scheduled.
	ImmediateAttempts int
	AttemptDelay      time.Duration
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	// AccessorAttempts bounds the GetClient loop that sits on top of initialization.
	AccessorAttempts int
	AccessorDelay    time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ImmediateAttempts: 5,
		AttemptDelay:      500 * time.Millisecond,
		BaseBackoff:       time.Second,
		MaxBackoff:        time.Minute,
		AccessorAttempts:  3,
		AccessorDelay:     time.Second,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	defaults := DefaultSessionConfig()
	if c.ImmediateAttempts <= 0 {
		c.ImmediateAttempts = defaults.ImmediateAttempts
	}
	if c.AttemptDelay < 0 {
		c.AttemptDelay = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaults.BaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.AccessorAttempts <= 0 {
		c.AccessorAttempts = defaults.AccessorAttempts
	}
	if c.AccessorDelay < 0 {
		c.AccessorDelay = 0
	}
	return c
}

type GetClientOptions struct {
	// Timeout bounds the whole accessor loop. Zero means no bound beyond the attempt count.
	Timeout time.Duration
	// Force discards a cached client and initializes a fresh one.
	Force bool
}

type SessionSnapshot struct {
	State        domain.SessionState
	Initializing bool
	LastError    error
	Client       ports.SessionClient
	Owner        common.Address
	NextBackoff  time.Duration
	RetryPending bool
}

// initCall is shared by every caller waiting on the same initialization.
type initCall struct {
	done   chan struct{}
	client ports.SessionClient
	err    error
}

// SessionManager owns the single current smart account client for the
// authenticated owner.
type SessionManager struct {
	auth      ports.AuthProvider
	factory   ports.ClientFactory
	scheduler ports.Scheduler
	observer  ports.SessionObserver
	logger    logrus.FieldLogger
	cfg       SessionConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	client     ports.SessionClient
	owner      common.Address
	inflight   *initCall
	lastErr    error
	backoff    *Backoff
	retry      ports.Timer
	retrySeq   uint64
	generation uint64
	closed     bool
}

func NewSessionManager(auth ports.AuthProvider, factory ports.ClientFactory, scheduler ports.Scheduler, observer ports.SessionObserver, logger logrus.FieldLogger, cfg SessionConfig) *SessionManager {
	if scheduler == nil {
		scheduler = ports.SystemScheduler{}
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = discardLogger()
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		auth:      auth,
		factory:   factory,
		scheduler: scheduler,
		observer:  observer,
		logger:    logger.WithField("component", "session"),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		backoff:   NewBackoff(cfg.BaseBackoff, cfg.MaxBackoff),
	}
}

// GetClient returns the current client, initializing or joining an in-flight
// initialization as needed. It fails with domain.ErrClientUnavailable once its
// own attempts or opts.Timeout are exhausted.
func (m *SessionManager) GetClient(ctx context.Context, opts GetClientOptions) (ports.SessionClient, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	force := opts.Force
	var lastErr error
	for attempt := 1; attempt <= m.cfg.AccessorAttempts; attempt++ {
		client, err := m.ensure(ctx, force)
		force = false
		if client != nil {
			return client, nil
		}
		if errors.Is(err, domain.ErrSessionClosed) {
			return nil, err
		}
		// Neither a client nor an error: the owner wallet is missing, and
		// another attempt cannot change that.
		if err == nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrClientUnavailable, domain.ErrNoOwnerWallet)
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil || attempt == m.cfg.AccessorAttempts {
			break
		}
		if err := sleepContext(ctx, m.cfg.AccessorDelay); err != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = m.LastError()
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if lastErr == nil {
		return nil, domain.ErrClientUnavailable
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrClientUnavailable, lastErr)
}

// OnAuthChanged applies a new auth state. Losing a prerequisite or switching
// owner drops the client, invalidates the descriptor, cancels any pending
// retry and resets the backoff.
func (m *SessionManager) OnAuthChanged(state ports.AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	owner := state.Owner()
	satisfied := state.Satisfied()
	if owner != m.owner || (!satisfied && m.hasSessionLocked()) {
		m.resetLocked(owner)
	}

	if satisfied && m.client == nil && m.inflight == nil && m.retry == nil {
		m.startLocked()
	}
}

// HandleFocus re-attempts initialization when nothing is held or running.
func (m *SessionManager) HandleFocus(ctx context.Context) {
	m.mu.Lock()
	idle := !m.closed && m.client == nil && m.inflight == nil
	m.mu.Unlock()
	if !idle {
		return
	}

	state, err := m.auth.Current(ctx)
	if err != nil {
		m.logger.WithError(err).Debug("read auth state on focus")
		return
	}
	if !state.Satisfied() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.client != nil || m.inflight != nil {
		return
	}
	m.startLocked()
}

// Close cancels any pending retry. No state changes after Close returns.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.closed = true
	m.generation++
	m.stopRetryLocked()
	m.cancel()
}

func (m *SessionManager) Snapshot() SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := SessionSnapshot{
		Initializing: m.inflight != nil,
		LastError:    m.lastErr,
		Client:       m.client,
		Owner:        m.owner,
		NextBackoff:  m.backoff.Peek(),
		RetryPending: m.retry != nil,
	}

	switch {
	case m.closed:
		snapshot.State = domain.SessionClosed
	case m.client != nil:
		snapshot.State = domain.SessionReady
	case m.inflight != nil:
		snapshot.State = domain.SessionInitializing
	case m.lastErr != nil:
		snapshot.State = domain.SessionRetrying
	default:
		snapshot.State = domain.SessionUninitialized
	}

	return snapshot
}

func (m *SessionManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *SessionManager) CurrentClient() ports.SessionClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

func (m *SessionManager) IsInitializing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight != nil
}

func (m *SessionManager) ensure(ctx context.Context, force bool) (ports.SessionClient, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	if m.client != nil {
		if !force && m.liveLocked() {
			client := m.client
			m.mu.Unlock()
			return client, nil
		}
		m.client = nil
	}
	call := m.startLocked()
	m.mu.Unlock()

	select {
	case <-call.done:
		return call.client, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *SessionManager) liveLocked() bool {
	return m.owner == (common.Address{}) || m.client.Owner() == m.owner
}

func (m *SessionManager) hasSessionLocked() bool {
	return m.client != nil || m.inflight != nil || m.retry != nil || m.lastErr != nil
}

func (m *SessionManager) startLocked() *initCall {
	if m.inflight != nil {
		return m.inflight
	}

	m.stopRetryLocked()
	call := &initCall{done: make(chan struct{})}
	m.inflight = call
	go m.run(call, m.generation)
	return call
}

func (m *SessionManager) run(call *initCall, generation uint64) {
	client, err := m.initialize(generation)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(call.done)

	if m.closed {
		call.err = domain.ErrSessionClosed
		return
	}
	if m.inflight == call {
		m.inflight = nil
	}
	if generation != m.generation {
		call.err = domain.ErrSessionInvalidated
		return
	}

	call.client, call.err = client, err
	switch {
	case client != nil:
		m.client = client
		m.owner = client.Owner()
		m.lastErr = nil
		m.backoff.Reset()
		m.stopRetryLocked()
		m.observer.ClientReady()
		m.logger.WithFields(logrus.Fields{
			"owner":   client.Owner().Hex(),
			"account": client.Address().Hex(),
		}).Info("smart account client ready")
	case err != nil:
		m.lastErr = err
		m.scheduleRetryLocked()
	}
}

// initialize runs the bounded immediate attempts. A nil client with a nil
// error means the prerequisites are not met yet.
func (m *SessionManager) initialize(generation uint64) (ports.SessionClient, error) {
	var lastErr error
	for attempt := 1; attempt <= m.cfg.ImmediateAttempts; attempt++ {
		if !m.isCurrent(generation) {
			return nil, domain.ErrSessionInvalidated
		}

		client, err := m.attempt()
		if !m.isCurrent(generation) {
			return nil, domain.ErrSessionInvalidated
		}
		if err == nil {
			if client != nil {
				m.observer.InitAttempt(nil)
			}
			return client, nil
		}

		m.observer.InitAttempt(err)
		lastErr = err
		m.logger.WithError(err).WithField("attempt", attempt).Warn("smart account client initialization failed")

		if attempt < m.cfg.ImmediateAttempts {
			if err := sleepContext(m.ctx, m.cfg.AttemptDelay); err != nil {
				return nil, domain.ErrSessionClosed
			}
		}
	}

	return nil, lastErr
}

func (m *SessionManager) attempt() (ports.SessionClient, error) {
	state, err := m.auth.Current(m.ctx)
	if err != nil {
		return nil, fmt.Errorf("read auth state: %w", err)
	}
	if !state.Satisfied() {
		m.logger.WithFields(logrus.Fields{
			"ready":         state.Ready,
			"authenticated": state.Authenticated,
			"wallet":        state.Wallet != nil,
		}).Debug("smart account prerequisites not met")
		return nil, nil
	}

	client, err := m.factory.NewClient(m.ctx, state.Wallet)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrClientIncomplete
	}

	return client, nil
}

func (m *SessionManager) isCurrent(generation uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && generation == m.generation
}

func (m *SessionManager) scheduleRetryLocked() {
	m.stopRetryLocked()

	delay := m.backoff.Next()
	seq := m.retrySeq
	m.retry = m.scheduler.AfterFunc(delay, func() {
		m.fireRetry(seq)
	})
	m.observer.RetryScheduled(delay)
	m.logger.WithError(m.lastErr).WithField("delay", delay.String()).Info("smart account client retry scheduled")
}

func (m *SessionManager) fireRetry(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || seq != m.retrySeq {
		return
	}
	m.retry = nil
	if m.client != nil || m.inflight != nil {
		return
	}
	m.startLocked()
}

// stopRetryLocked also invalidates a callback whose timer already fired.
func (m *SessionManager) stopRetryLocked() {
	m.retrySeq++
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *SessionManager) resetLocked(owner common.Address) {
	previous := m.owner

	m.generation++
	m.client = nil
	m.inflight = nil
	m.lastErr = nil
	m.stopRetryLocked()
	m.backoff.Reset()
	m.owner = owner

	if previous != (common.Address{}) {
		m.factory.Invalidate(previous)
	}
	if previous != owner {
		m.logger.WithFields(logrus.Fields{
			"previous": previous.Hex(),
			"owner":    owner.Hex(),
		}).Info("session owner changed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
