package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	insertRefreshSQL = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	selectRefreshSQL = `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1`
	revokeHashSQL    = `UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`
	revokeUserSQL    = `UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`
)

// TokenRepo stores SHA-256 hashes of refresh tokens in MySQL.  The raw
// token never reaches the database.
type TokenRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db, now: time.Now} }

// StoreRefresh records a newly issued refresh token.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx, insertRefreshSQL, userID, tokenHash, exp.UTC()); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh returns the owner of a live token.  Unknown, revoked and
// expired tokens all yield ErrInvalidRefresh.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, selectRefreshSQL, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrInvalidRefresh
	case err != nil:
		return 0, fmt.Errorf("load refresh token: %w", err)
	case revokedAt.Valid, !expiresAt.After(r.now().UTC()):
		return 0, ErrInvalidRefresh
	}
	return userID, nil
}

// RevokeByHash revokes one token.  Revoking an unknown or already revoked
// token is not an error.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, revokeHashSQL, tokenHash)
}

// RevokeAllForUser revokes every live token of the user (logout everywhere).
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.revoke(ctx, revokeUserSQL, userID)
}

func (r *TokenRepo) revoke(ctx context.Context, query string, arg any) error {
	if _, err := r.DB.ExecContext(ctx, query, r.now().UTC(), arg); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
