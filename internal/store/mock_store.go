// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
// Setting Err makes every call fail with it.
type MockStore struct {
	mu       sync.RWMutex
	allowed  map[int64]time.Time
	invites  map[string]*InviteCode
	contexts map[int64]string

	Err error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		allowed:  make(map[int64]time.Time),
		invites:  make(map[string]*InviteCode),
		contexts: make(map[int64]string),
	}
}

// FailWith makes subsequent calls return err; nil restores normal behaviour.
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// IsAllowed reports whether userID is on the allow-list.
func (m *MockStore) IsAllowed(ctx context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.allowed[userID]
	return ok, nil
}

// AddAllowedUser inserts userID into the allow-list.
func (m *MockStore) AddAllowedUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.allowed[userID]; ok {
		return ErrAlreadyAllowed
	}
	m.allowed[userID] = time.Now()
	return nil
}

// ListAllowedUsers returns the allow-list, oldest grant first.
func (m *MockStore) ListAllowedUsers(ctx context.Context) ([]*AllowedUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	users := make([]*AllowedUser, 0, len(m.allowed))
	for id, at := range m.allowed {
		users = append(users, &AllowedUser{UserID: id, CreatedAt: at})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].UserID < users[j].UserID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// CreateInvite stores a copy of invite unless the code is taken.
func (m *MockStore) CreateInvite(ctx context.Context, invite *InviteCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.invites[invite.Code]; ok {
		return ErrInviteExists
	}
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}

	// Make a copy to avoid external modification
	c := *invite
	c.Used = false
	m.invites[c.Code] = &c
	return nil
}

// GetInvite retrieves an invite code by value.
func (m *MockStore) GetInvite(ctx context.Context, code string) (*InviteCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	inv, ok := m.invites[code]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *inv
	return &result, nil
}

// RedeemInvite consumes code and allow-lists userID under a single lock.
func (m *MockStore) RedeemInvite(ctx context.Context, code string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	inv, ok := m.invites[code]
	if !ok {
		return ErrInviteNotFound
	}
	if inv.Used {
		return ErrInviteUsed
	}

	now := time.Now()
	inv.Used = true
	inv.UsedBy = &userID
	inv.UsedAt = &now
	if _, ok := m.allowed[userID]; !ok {
		m.allowed[userID] = now
	}
	return nil
}

// GetContext returns the stored payload for userID.
func (m *MockStore) GetContext(ctx context.Context, userID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return "", m.Err
	}
	payload, ok := m.contexts[userID]
	if !ok {
		return "", ErrNotFound
	}
	return payload, nil
}

// SaveContext replaces the payload for userID.
func (m *MockStore) SaveContext(ctx context.Context, userID int64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.contexts[userID] = payload
	return nil
}

// DeleteContext removes the payload for userID.
func (m *MockStore) DeleteContext(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	delete(m.contexts, userID)
	return nil
}

// Ping reports the injected error, if any.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Err
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// ErrMockUnavailable is a convenience error for simulating an unreachable database.
var ErrMockUnavailable = errors.New("mock store unavailable")
