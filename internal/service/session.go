package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-explorer/internal/metrics"
	"github.com/joeblew999/plat-explorer/internal/panel"
	"github.com/joeblew999/plat-explorer/internal/viewstate"
)

// Session defaults.
const (
	DefaultSessionTTL = 2 * time.Hour
	DefaultMaxSession = 1000
)

// ErrUnknownSession is returned for ids with no live session.
var ErrUnknownSession = eris.New("service: unknown session")

// Session is one browser's explorer state. Dispatches are serialized, so an
// action and the panel pass it triggers finish before the next one starts.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	lastUsed time.Time
	panels   *panel.Synchronizer
	now      func() time.Time
}

// Dispatch applies a and renders the invalidated panels to r.
func (s *Session) Dispatch(ctx context.Context, a viewstate.Action, r panel.Renderer) (viewstate.Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	return s.panels.Dispatch(ctx, a, r)
}

// RenderAll draws every panel to r.
func (s *Session) RenderAll(ctx context.Context, r panel.Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	s.panels.RenderAll(ctx, r)
}

// State returns a snapshot of the session's view state.
func (s *Session) State() viewstate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panels.State()
}

func (s *Session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{ID: s.ID, Created: s.Created, LastUsed: s.lastUsed}
}

func (s *Session) idle() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithTTL expires sessions idle for longer than ttl.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) { s.ttl = ttl }
}

// WithMaxSessions caps live sessions, evicting the least recently used.
func WithMaxSessions(n int) SessionOption {
	return func(s *SessionService) { s.max = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// SessionService keeps one live store and synchronizer per session id.
// Sessions live in memory only.
type SessionService struct {
	data panel.Data
	bus  *EventBus
	log  *zap.Logger
	ttl  time.Duration
	max  int
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a session service over data. bus may be nil.
func NewSessionService(data panel.Data, bus *EventBus, opts ...SessionOption) *SessionService {
	s := &SessionService{
		data:     data,
		bus:      bus,
		log:      zap.L().With(zap.String("component", "sessions")),
		ttl:      DefaultSessionTTL,
		max:      DefaultMaxSession,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session with default view state.
func (s *SessionService) Create() *Session {
	now := s.now()
	sess := &Session{
		ID:       uuid.NewString(),
		Created:  now,
		lastUsed: now,
		panels:   panel.New(s.data),
		now:      s.now,
	}

	s.mu.Lock()
	if s.max > 0 && len(s.sessions) >= s.max {
		s.evictLocked()
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	metrics.Sessions.Inc()
	s.publish(sess.ID, "created")
	s.log.Debug("session created", zap.String("session", sess.ID))
	return sess
}

// Get returns a live session.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSession, "session %q", id)
	}
	return sess, nil
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
func (s *SessionService) GetOrCreate(id string) (*Session, bool) {
	if sess, err := s.Get(id); err == nil {
		return sess, false
	}
	return s.Create(), true
}

// List returns the live sessions, oldest first.
func (s *SessionService) List() []SessionInfo {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Len is the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionService) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	var expired []string

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idle().Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		metrics.Sessions.Dec()
		s.publish(id, "expired")
	}
	if len(expired) > 0 {
		s.log.Info("sessions expired", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// evictLocked drops the least recently used session.
func (s *SessionService) evictLocked() {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.idle().Before(oldest.idle()) {
			oldest = sess
		}
	}
	if oldest == nil {
		return
	}
	delete(s.sessions, oldest.ID)
	metrics.Sessions.Dec()
	s.publish(oldest.ID, "expired")
}

func (s *SessionService) publish(id, action string) {
	if s.bus != nil {
		s.bus.Publish(Event{Kind: KindSession, ID: id, Action: action})
	}
}
