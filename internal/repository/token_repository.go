package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/equinox/fleet-inspections/internal/model"
)

// TokenRepo persists refresh token records (one bcrypt 'token_hash' per row).
type TokenRepo struct{ DB *sqlx.DB }

// NewTokenRepo creates a repository for refresh tokens.
func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh record.
func (r *TokenRepo) Create(ctx context.Context, t model.RefreshToken) error {
	_, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, updated_at)
		 VALUES (:id, :user_id, :token_hash, :expires_at, :created_at, :updated_at)`, t)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetByID fetches a refresh record.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.GetContext(ctx, &t,
		"SELECT id, user_id, token_hash, expires_at, created_at, updated_at FROM refresh_tokens WHERE id = ? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	return t, nil
}

// Rotate replaces the hash and expiry of record id, but only while it
// still holds oldHash. ErrStale means another rotation got there first.
func (r *TokenRepo) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET token_hash = ?, expires_at = ?, updated_at = ? WHERE id = ? AND token_hash = ?",
		newHash, expiresAt, now, id, oldHash)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

// Delete removes record id. Deleting a missing record yields ErrNotFound.
func (r *TokenRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
