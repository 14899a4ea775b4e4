// Package session hosts state containers for clients of the dashboard.
//
// A session is opened with a container, and identified by a random id.
// Clients refer to their session with a signed token.
// Sessions idle longer than TTL are closed by Sweep.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/glasswall/icap-management-ui/pkg/loop"
	"github.com/glasswall/icap-management-ui/pkg/metrics"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrSessionNotFound is returned for sessions which are closed or never opened.
var ErrSessionNotFound = errors.New("session: not found")

// Container is what a session hosts.
type Container interface {
	// Close cancels operations of the container and waits for them.
	Close()
}

// Session is an opened session.
type Session[C Container] struct {
	Id        uuid.UUID
	Container C

	// Token refers to the session. It expires when the session becomes idle for TTL.
	Token string
}

type entry[C Container] struct {
	container  C
	lastActive time.Time

	// number of holders. held sessions are not swept.
	holders int
}

type settings struct {
	now     func() time.Time
	metrics *metrics.Metrics
	logger  echo.Logger
}

type Option func(*settings) *settings

func WithClock(now func() time.Time) Option {
	return func(s *settings) *settings {
		s.now = now
		return s
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) *settings {
		s.metrics = m
		return s
	}
}

func WithLogger(l echo.Logger) Option {
	return func(s *settings) *settings {
		s.logger = l
		return s
	}
}

// Manager holds sessions of a kind.
type Manager[C Container] struct {
	kind   Kind
	issuer *Issuer
	ttl    time.Duration
	settings

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry[C]
}

func NewManager[C Container](kind Kind, issuer *Issuer, ttl time.Duration, opts ...Option) *Manager[C] {
	s := &settings{now: time.Now}
	for _, opt := range opts {
		s = opt(s)
	}
	return &Manager[C]{
		kind:     kind,
		issuer:   issuer,
		ttl:      ttl,
		settings: *s,
		sessions: map[uuid.UUID]*entry[C]{},
	}
}

func (m *Manager[C]) Kind() Kind {
	return m.kind
}

// Open starts a session hosting c.
func (m *Manager[C]) Open(c C) (Session[C], error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Session[C]{}, err
	}
	now := m.now()
	token, err := m.issuer.Issue(m.kind, id, now.Add(m.ttl))
	if err != nil {
		return Session[C]{}, err
	}

	m.mu.Lock()
	m.sessions[id] = &entry[C]{container: c, lastActive: now}
	m.mu.Unlock()

	m.metrics.SessionOpened(string(m.kind))
	if m.logger != nil {
		m.logger.Infof("session: opened %s session %s", m.kind, id)
	}
	return Session[C]{Id: id, Container: c, Token: token}, nil
}

// Authenticate finds the session of the token, and marks it active.
//
// The returned session carries a refreshed token.
//
// Errors are ErrInvalidToken when the token is not valid for this manager,
// or ErrSessionNotFound when the session has been closed.
func (m *Manager[C]) Authenticate(token string) (Session[C], error) {
	id, err := m.issuer.Verify(m.kind, token)
	if err != nil {
		return Session[C]{}, err
	}

	now := m.now()
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		e.lastActive = now
	}
	m.mu.Unlock()
	if !ok {
		return Session[C]{}, ErrSessionNotFound
	}

	refreshed, err := m.issuer.Issue(m.kind, id, now.Add(m.ttl))
	if err != nil {
		return Session[C]{}, err
	}
	return Session[C]{Id: id, Container: e.container, Token: refreshed}, nil
}

// Hold keeps the session from being swept until release is called.
//
// release marks the session active. It is safe to call release more than once.
func (m *Manager[C]) Hold(id uuid.UUID) (release func(), err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.holders += 1

	once := sync.Once{}
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			e.holders -= 1
			e.lastActive = m.now()
		})
	}, nil
}

// Close closes the session and its container.
func (m *Manager[C]) Close(id uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.close(id, e.container, "closed")
	return nil
}

func (m *Manager[C]) close(id uuid.UUID, c C, why string) {
	c.Close()
	m.metrics.SessionClosed(string(m.kind))
	if m.logger != nil {
		m.logger.Infof("session: %s %s session %s", why, m.kind, id)
	}
}

// Sweep closes sessions idle for TTL or longer, and returns how many are closed.
//
// Held sessions are not closed.
func (m *Manager[C]) Sweep() int {
	deadline := m.now().Add(-m.ttl)

	m.mu.Lock()
	expired := map[uuid.UUID]C{}
	for id, e := range m.sessions {
		if e.holders == 0 && !e.lastActive.After(deadline) {
			expired[id] = e.container
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, c := range expired {
		m.close(id, c, "expired")
	}
	return len(expired)
}

// Run sweeps sessions every interval until ctx is done, then closes all sessions.
func (m *Manager[C]) Run(ctx context.Context, interval time.Duration) {
	defer m.CloseAll()
	loop.Start(ctx, 0, func(context.Context, int) (int, loop.Next) {
		return m.Sweep(), loop.Continue(interval)
	})
}

// CloseAll closes every session.
func (m *Manager[C]) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[uuid.UUID]*entry[C]{}
	m.mu.Unlock()

	for id, e := range all {
		m.close(id, e.container, "closed")
	}
}

// Len returns the number of open sessions.
func (m *Manager[C]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
