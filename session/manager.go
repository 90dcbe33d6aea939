// Package session tracks in-flight requests per client connection for the
// streaming transports. Each WebSocket connection and gRPC stream owns one
// Session; closing the session cancels every request still in flight so the
// pipeline stops doing work nobody will read.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/metric"
)

// Manager tracks sessions by ID. One Manager serves one transport adapter
// and labels its gauges with that adapter's component name.
type Manager struct {
	component string
	logger    *slog.Logger
	metrics   *metric.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session

	inFlight atomic.Int64
}

// NewManager creates a session manager for the named component. Metrics and
// logger are optional.
func NewManager(component string, metrics *metric.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		component: component,
		logger:    logger,
		metrics:   metrics,
		sessions:  make(map[string]*Session),
	}
}

// Open registers a session under the given ID and returns it. Opening an ID
// that is already registered returns the existing session.
func (m *Manager) Open(sessionID string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		return s
	}
	s := &Session{
		id:       sessionID,
		manager:  m,
		inflight: make(map[string]context.CancelFunc),
	}
	m.sessions[sessionID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.recordOpenSessions(count)
	return s
}

// Get returns the session registered under the given ID.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Close tears down the session: every in-flight request context is cancelled
// and the session rejects further tracking. The cancelled request IDs are
// returned so the adapter can forward best-effort pipeline cancellation.
// Closing an unknown session returns nil.
func (m *Manager) Close(sessionID string) []string {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	cancelled := s.close()
	m.recordOpenSessions(count)
	if len(cancelled) > 0 {
		m.logger.Debug("session closed with requests in flight",
			"session_id", sessionID,
			"cancelled", len(cancelled))
	}
	return cancelled
}

// CloseAll tears down every open session, returning all cancelled request
// IDs. Used during adapter shutdown.
func (m *Manager) CloseAll() []string {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var cancelled []string
	for _, s := range open {
		cancelled = append(cancelled, s.close()...)
	}
	m.recordOpenSessions(0)
	return cancelled
}

// OpenCount returns the number of open sessions.
func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// InFlightCount returns the number of requests in flight across all sessions.
func (m *Manager) InFlightCount() int {
	return int(m.inFlight.Load())
}

func (m *Manager) recordOpenSessions(count int) {
	if m.metrics != nil {
		m.metrics.RecordOpenSessions(m.component, count)
	}
}

func (m *Manager) trackInFlight(delta int64) {
	total := m.inFlight.Add(delta)
	if m.metrics != nil {
		m.metrics.RecordInFlightRequests(m.component, int(total))
	}
}

// Session owns the set of request IDs in flight on one client connection,
// each paired with its context cancel. All methods are safe for concurrent
// use by the per-request goroutines of that connection.
type Session struct {
	id      string
	manager *Manager

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	closed   bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Track registers a request and its cancel function. Fails with
// errors.ErrSessionClosed once the session has been closed; a request ID
// already tracked on this session is rejected as a duplicate.
func (s *Session) Track(requestID string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.WrapInvalid(
			fmt.Errorf("%w: session %s", errors.ErrSessionClosed, s.id),
			"Session", "Track", "register request")
	}
	if _, ok := s.inflight[requestID]; ok {
		return errors.WrapInvalid(
			fmt.Errorf("request %s already in flight on session %s", requestID, s.id),
			"Session", "Track", "register request")
	}

	s.inflight[requestID] = cancel
	s.manager.trackInFlight(1)
	return nil
}

// Complete removes the request from the in-flight set. Returns
// errors.ErrSessionClosed when the session closed before the response
// arrived, and errors.ErrSessionNotFound when the request is not tracked
// (already completed or cancelled). In both cases the caller drops the
// response.
func (s *Session) Complete(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(requestID)
}

func (s *Session) completeLocked(requestID string) error {
	if s.closed {
		return errors.WrapInvalid(
			fmt.Errorf("%w: session %s", errors.ErrSessionClosed, s.id),
			"Session", "Complete", "finish request")
	}
	if _, ok := s.inflight[requestID]; !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: request %s on session %s", errors.ErrSessionNotFound, requestID, s.id),
			"Session", "Complete", "finish request")
	}

	delete(s.inflight, requestID)
	s.manager.trackInFlight(-1)
	return nil
}

// Deliver completes the request and runs emit while the session is still
// open, serializing emissions on this session. When the session has closed,
// or the request is no longer tracked, emit is not called and the tracking
// error is returned so the caller can drop the response.
//
// emit must not call back into the session.
func (s *Session) Deliver(requestID string, emit func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.completeLocked(requestID); err != nil {
		return err
	}
	return emit()
}

// InFlight returns the number of requests currently tracked on the session.
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// close cancels all in-flight requests and marks the session closed,
// returning the cancelled request IDs.
func (s *Session) close() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	cancelled := make([]string, 0, len(s.inflight))
	for requestID, cancel := range s.inflight {
		cancel()
		cancelled = append(cancelled, requestID)
	}
	if n := len(s.inflight); n > 0 {
		s.manager.trackInFlight(int64(-n))
	}
	s.inflight = nil
	return cancelled
}
