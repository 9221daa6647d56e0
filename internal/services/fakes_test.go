package services

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/multierr"

	"github.com/mflix-go/webserver/internal/common"
	"github.com/mflix-go/webserver/internal/models/session"
	"github.com/mflix-go/webserver/internal/models/user"
)

// memStore is an in-memory stand-in for the users and sessions collections, with the same uniqueness rules as the
// MongoDB indexes.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*user.User
	sessions []*session.Session

	deleteSessionsErr error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*user.User)}
}

func (m *memStore) AddUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return user.ErrEmailTaken
	}
	stored := *u
	m.users[u.Email] = &stored
	return nil
}

func (m *memStore) GetUser(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	out := *u
	out.Preferences = maps.Clone(u.Preferences)
	return &out, nil
}

func (m *memStore) UpdateUserPreferences(_ context.Context, email string, prefs map[string]any) error {
	if len(prefs) == 0 {
		return fmt.Errorf("%w: preferences must not be empty", common.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return user.ErrUserNotFound
	}
	if u.Preferences == nil {
		u.Preferences = make(map[string]string)
	}
	for k, v := range prefs {
		u.Preferences[k] = fmt.Sprint(v)
	}
	return nil
}

func (m *memStore) DeleteUser(ctx context.Context, email string) error {
	m.mu.Lock()
	delete(m.users, email)
	m.mu.Unlock()
	_, err := m.DeleteUserSessions(ctx, email)
	return multierr.Append(nil, err)
}

func (m *memStore) CreateUserSession(_ context.Context, userID, jwt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.JWT == jwt {
			return nil
		}
	}
	m.sessions = append(m.sessions, &session.Session{UserID: userID, JWT: jwt})
	return nil
}

func (m *memStore) GetUserSession(_ context.Context, userID string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.JWT != "" {
			out := *s
			return &out, nil
		}
	}
	return nil, session.ErrSessionNotFound
}

func (m *memStore) DeleteUserSessions(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteSessionsErr != nil {
		return 0, m.deleteSessionsErr
	}
	var kept []*session.Session
	var removed int64
	for _, s := range m.sessions {
		if s.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return removed, nil
}

func (m *memStore) sessionsFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AccountEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
