package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"horsemarket-web/internal/api"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	sessionLoginCounter          = metrics.GetOrCreateCounter(`session_events_total{type="login"}`)
	sessionLogoutCounter         = metrics.GetOrCreateCounter(`session_events_total{type="logout"}`)
	sessionRefreshCounter        = metrics.GetOrCreateCounter(`session_events_total{type="refreshed"}`)
	sessionExpiredCounter        = metrics.GetOrCreateCounter(`session_events_total{type="expired"}`)
	sessionJanitorRemovedCounter = metrics.GetOrCreateCounter(`session_janitor_removed_total`)
)

type EventType string

const (
	EventLogin     EventType = "login"
	EventLogout    EventType = "logout"
	EventRefreshed EventType = "refreshed"
	// EventExpired is emitted when the identity probe rejects the stored credentials.
	EventExpired EventType = "expired"
)

type Event struct {
	Type      EventType
	SessionID uuid.UUID
	User      *api.User
}

type IdentityClient interface {
	Me(ctx context.Context, creds api.Credentials) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	Logout(ctx context.Context, creds api.Credentials) error
}

// Manager owns the auth state of every browser session. It is created once
// and passed to whatever needs it.
type Manager struct {
	store    Store
	identity IdentityClient
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.RWMutex
	nextSubID   int
	subscribers map[int]func(Event)
}

func NewManager(store Store, identity IdentityClient, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:       store,
		identity:    identity,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every session event. The returned function
// removes the subscription and is safe to call more than once.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(e Event) {
	m.mu.RLock()
	subs := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Load returns the live session identified by the cookie value id.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	s, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, sid); err != nil {
			m.logger.WarnContext(ctx, "Error deleting expired session", "error", err)
		}
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	result, err := m.identity.Login(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}

	now := m.now()
	user := result.User
	s := &Session{
		ID:        uuid.New(),
		Token:     result.Token,
		APICookie: result.Cookie,
		User:      &user,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "User logged in", "sessionId", s.ID.String(), "userId", user.ID)
	sessionLoginCounter.Inc()
	m.emit(Event{Type: EventLogin, SessionID: s.ID, User: s.User})
	return s, nil
}

// Logout ends s. The API logout is best effort; the local session is always removed.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	if err := m.identity.Logout(ctx, s.Credentials()); err != nil {
		m.logger.WarnContext(ctx, "Error logging out at API", "error", err, "sessionId", s.ID.String())
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return err
	}

	sessionLogoutCounter.Inc()
	m.emit(Event{Type: EventLogout, SessionID: s.ID, User: s.User})
	return nil
}

// Refresh probes the identity endpoint. A 401 or 403 clears the identity and
// credentials; other failures leave the session untouched and are returned.
func (m *Manager) Refresh(ctx context.Context, s *Session) (*Session, error) {
	user, err := m.identity.Me(ctx, s.Credentials())
	if err != nil {
		code, ok := api.StatusCode(err)
		if !ok || (code != http.StatusUnauthorized && code != http.StatusForbidden) {
			return s, errors.Wrap(err, "probe identity")
		}

		previous := s.User
		s.User = nil
		s.Token = ""
		s.APICookie = ""
		s.UpdatedAt = m.now()
		if err := m.store.Update(ctx, s); err != nil {
			return s, err
		}
		m.logger.InfoContext(ctx, "Session credentials rejected, identity cleared", "sessionId", s.ID.String())
		sessionExpiredCounter.Inc()
		m.emit(Event{Type: EventExpired, SessionID: s.ID, User: previous})
		return s, nil
	}

	s.User = user
	s.UpdatedAt = m.now()
	s.ExpiresAt = s.UpdatedAt.Add(m.ttl)
	if err := m.store.Update(ctx, s); err != nil {
		return s, err
	}
	sessionRefreshCounter.Inc()
	m.emit(Event{Type: EventRefreshed, SessionID: s.ID, User: user})
	return s, nil
}

// StartJanitor removes expired sessions every interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := m.store.DeleteExpired(ctx, m.now())
				if err != nil {
					m.logger.ErrorContext(ctx, "Error deleting expired sessions", "error", err)
					continue
				}
				if n > 0 {
					m.logger.InfoContext(ctx, "Deleted expired sessions", "count", n)
					sessionJanitorRemovedCounter.Add(int(n))
				}
			case <-ctx.Done():
				m.logger.InfoContext(ctx, "Context done, stopping session janitor")
				return
			}
		}
	}()
}
