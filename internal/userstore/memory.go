package userstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/edge-landings/api/internal/domain"
)

// Memory keeps users and reset tokens in process-local maps. It is the
// memory-only backend and the fallback mirror of every other backend; it is
// not shared between instances.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	tokens map[string]*domain.ResetToken
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*domain.User),
		tokens: make(map[string]*domain.ResetToken),
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) GetUser(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
	}
	return u.Clone(), nil
}

func (m *Memory) PutUser(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u.Clone()
	return u.Clone(), nil
}

func (m *Memory) ListUsers(context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *Memory) PutResetToken(_ context.Context, t *domain.ResetToken) (*domain.ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.tokens[t.Token] = &c
	return &c, nil
}

func (m *Memory) GetResetToken(_ context.Context, token string) (*domain.ResetToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, fmt.Errorf("reset token: %w", domain.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (m *Memory) DeleteResetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}
