package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/utils"
)

// MemoryAccounts keeps users and refresh tokens in process memory.  It
// backs the memory store driver and offers the same methods as UserRepo
// and TokenRepo.
type MemoryAccounts struct {
	mu      sync.Mutex
	nextID  uint64
	users   map[uint64]model.User
	byEmail map[string]uint64
	tokens  map[string]*model.RefreshToken
	now     func() time.Time
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		users:   make(map[uint64]model.User),
		byEmail: make(map[string]uint64),
		tokens:  make(map[string]*model.RefreshToken),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryAccounts) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, ErrEmailExists
	}
	m.nextID++
	now := m.now()
	m.users[m.nextID] = model.User{
		ID: m.nextID, Email: email, PasswordHash: hash, Role: role,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	m.byEmail[email] = m.nextID
	return m.nextID, nil
}

func (m *MemoryAccounts) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *MemoryAccounts) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryAccounts) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = &model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: exp}
	return nil
}

func (m *MemoryAccounts) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || !t.Usable(m.now()) {
		return 0, ErrRefreshInvalid
	}
	return t.UserID, nil
}

func (m *MemoryAccounts) RevokeByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := m.now()
		t.RevokedAt = &now
	}
	return nil
}

func (m *MemoryAccounts) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}
