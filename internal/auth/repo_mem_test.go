package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memRepository is an in-memory Repository used by the package tests.
type memRepository struct {
	mu         sync.Mutex
	users      map[string]*User
	sessions   map[int64]*ActiveSession
	nextUserID int64
	nextSessID int64

	// Error injection
	findUserErr    error
	createSessErr  error
	findSessionErr error
	deleteErr      error
}

func newMemRepository() *memRepository {
	return &memRepository{
		users:      make(map[string]*User),
		sessions:   make(map[int64]*ActiveSession),
		nextUserID: 1,
		nextSessID: 1,
	}
}

func (m *memRepository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return nil, ErrUserExists
	}
	user := &User{ID: m.nextUserID, Email: email, PasswordHash: passwordHash}
	m.users[email] = user
	m.nextUserID++
	copied := *user
	return &copied, nil
}

func (m *memRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findUserErr != nil {
		return nil, m.findUserErr
	}
	user, ok := m.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memRepository) CreateSession(ctx context.Context, sess *ActiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createSessErr != nil {
		return m.createSessErr
	}
	sess.ID = m.nextSessID
	m.nextSessID++
	copied := *sess
	m.sessions[copied.ID] = &copied
	return nil
}

// sorted returns sessions matching keep, newest expiry first.
func (m *memRepository) sorted(keep func(*ActiveSession) bool) []*ActiveSession {
	var out []*ActiveSession
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Expiry == nil && b.Expiry == nil:
			return a.ID > b.ID
		case a.Expiry == nil:
			return false
		case b.Expiry == nil:
			return true
		case !a.Expiry.Equal(*b.Expiry):
			return a.Expiry.After(*b.Expiry)
		default:
			return a.ID > b.ID
		}
	})
	return out
}

func (m *memRepository) FindSessionByUsername(ctx context.Context, username string) (*ActiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findSessionErr != nil {
		return nil, m.findSessionErr
	}
	found := m.sorted(func(s *ActiveSession) bool { return s.Username == username })
	if len(found) == 0 {
		return nil, ErrSessionNotFound
	}
	copied := *found[0]
	return &copied, nil
}

func (m *memRepository) FindSessionByToken(ctx context.Context, token string) (*ActiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findSessionErr != nil {
		return nil, m.findSessionErr
	}
	found := m.sorted(func(s *ActiveSession) bool { return s.Token == token })
	if len(found) == 0 {
		return nil, ErrSessionNotFound
	}
	copied := *found[0]
	return &copied, nil
}

func (m *memRepository) DeleteSessionsByToken(ctx context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for id, s := range m.sessions {
		if s.Token == token {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepository) DeleteSession(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, id)
	return nil
}

func (m *memRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for id, s := range m.sessions {
		if s.Expiry != nil && !s.Expiry.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepository) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memRepository) addSession(sess ActiveSession) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.ID = m.nextSessID
	m.nextSessID++
	m.sessions[sess.ID] = &sess
	return sess.ID
}

var _ Repository = (*memRepository)(nil)
