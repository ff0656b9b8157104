package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/equinox/fleet-inspections/internal/model"
)

const userColumns = "id, cedula, password_hash, name, email, phone, role, active, created_at, updated_at"

// UserRepo reads and creates user accounts.
type UserRepo struct{ DB *sqlx.DB }

// NewUserRepo creates a repository for user accounts.
func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByCedula fetches a user by national ID.
func (r *UserRepo) GetByCedula(ctx context.Context, cedula string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE cedula = ? LIMIT 1", cedula)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by cedula: %w", err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// Create inserts u. A duplicate cedula yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO users (id, cedula, password_hash, name, email, phone, role, active, created_at, updated_at)
		 VALUES (:id, :cedula, :password_hash, :name, :email, :phone, :role, :active, :created_at, :updated_at)`, u)
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// List returns every user ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := r.DB.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
