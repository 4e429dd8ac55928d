package server

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamdiar/clustering"
	"github.com/kbukum/streamdiar/diarization"
	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/observability"
)

// PipelineFactory builds the pipeline backing a new session.
type PipelineFactory func(sessionID string) (*diarization.Pipeline, error)

// Session serializes access to one diarization pipeline.
type Session struct {
	mu        sync.Mutex
	id        string
	pipeline  *diarization.Pipeline
	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanoseconds
}

// SessionSnapshot is the read-only view of a session.
type SessionSnapshot struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Config    diarization.Settings `json:"config"`
	Speakers  []clustering.Speaker `json:"speakers"`
	Processed int                  `json:"processed"`
	Buffered  int                  `json:"buffered"`
	Windows   int                  `json:"overlapping_windows"`
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Process runs one batch through the session pipeline.
func (s *Session) Process(ctx context.Context, chunks []diarization.Chunk) ([]diarization.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.pipeline.Process(ctx, chunks)
}

// Reset clears the session's speakers and buffered chunks.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pipeline.Reset()
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:        s.id,
		CreatedAt: s.createdAt,
		Config:    s.pipeline.Config(),
		Speakers:  s.pipeline.Speakers(),
		Processed: s.pipeline.Processed(),
		Buffered:  s.pipeline.BufferLen(),
		Windows:   s.pipeline.NumOverlappingWindows(),
	}
}

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// SessionManager owns the live sessions of a server. Different sessions
// run concurrently; calls on one session are serialized.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	factory  PipelineFactory
	metrics  *observability.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// NewSessionManager creates a manager holding at most max sessions.
// metrics may be nil.
func NewSessionManager(max int, factory PipelineFactory, metrics *observability.Metrics, log *logger.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		max:      max,
		factory:  factory,
		metrics:  metrics,
		log:      log.WithComponent("sessions"),
		now:      time.Now,
	}
}

// Create starts a new session.
func (m *SessionManager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.max {
		return nil, errors.LimitReached("sessions", m.max)
	}
	p, err := m.factory(id)
	if err != nil {
		return nil, err
	}
	s := &Session{id: id, pipeline: p, createdAt: m.now()}
	s.touch()
	m.sessions[id] = s

	m.metrics.SessionOpened(ctx)
	m.log.Info("session created", logger.Fields(logger.FieldSessionID, id, "active", len(m.sessions)))
	return s, nil
}

// Get returns the session with the given ID.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NotFound("session", id)
	}
	return s, nil
}

// Delete closes the session with the given ID.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return errors.NotFound("session", id)
	}
	m.remove(ctx, id, "deleted")
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session IDs in sorted order.
func (m *SessionManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep closes every session idle for longer than ttl and returns how many
// were closed.
func (m *SessionManager) Sweep(ctx context.Context, ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			m.remove(ctx, id, "expired")
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every ttl/2 until ctx is done.
func (m *SessionManager) Run(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, ttl)
		}
	}
}

// CloseAll closes every session.
func (m *SessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions {
		m.remove(ctx, id, "shutdown")
	}
}

// remove must be called with m.mu held.
func (m *SessionManager) remove(ctx context.Context, id, reason string) {
	delete(m.sessions, id)
	m.metrics.SessionClosed(ctx)
	m.log.Info("session closed", logger.Fields(logger.FieldSessionID, id, "reason", reason, "active", len(m.sessions)))
}
