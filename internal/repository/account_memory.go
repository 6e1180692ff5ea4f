package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/utils"
)

// MemoryUsers mirrors UserRepo for STORE_DRIVER=memory.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[uint64]model.User
	byEmail map[string]uint64
	nextID  uint64
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[uint64]model.User), byEmail: make(map[string]uint64)}
}

// Create stores a user with a bcrypt hash of password.
func (r *MemoryUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return 0, ErrEmailExists
	}
	r.nextID++
	now := time.Now().UTC()
	r.byID[r.nextID] = model.User{
		ID: r.nextID, Email: email, PasswordHash: hash, Role: role,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	r.byEmail[email] = r.nextID
	return r.nextID, nil
}

func (r *MemoryUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// MemoryTokens mirrors TokenRepo for STORE_DRIVER=memory.
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[string]model.RefreshToken)}
}

func (r *MemoryTokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenHash] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: exp.UTC(), CreatedAt: time.Now().UTC()}
	return nil
}

func (r *MemoryTokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, ErrInvalidRefresh
	}
	return t.UserID, nil
}

func (r *MemoryTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
		r.tokens[tokenHash] = t
	}
	return nil
}

func (r *MemoryTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for h, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.tokens[h] = t
		}
	}
	return nil
}
