package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/repository"
	"github.com/equinox/fleet-inspections/internal/utils"
	"github.com/equinox/fleet-inspections/internal/validation"
)

// AccountStore reads and creates accounts.
type AccountStore interface {
	GetByCedula(ctx context.Context, cedula string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	List(ctx context.Context) ([]model.User, error)
}

// Users provisions accounts for the seed endpoint and the seed command.
type Users struct {
	store  AccountStore
	hasher *utils.Hasher
	log    *logger.Logger
	now    func() time.Time
}

// NewUsers wires the provisioning service.
func NewUsers(store AccountStore, hasher *utils.Hasher, log *logger.Logger) *Users {
	return &Users{store: store, hasher: hasher, log: log, now: time.Now}
}

// Provision validates and creates an account. When the cedula is taken it
// returns the existing account together with ErrUserExists.
func (s *Users) Provision(ctx context.Context, in validation.NewUser) (model.User, error) {
	in.Normalize()
	if err := validation.User(in).Err(); err != nil {
		return model.User{}, err
	}

	existing, err := s.store.GetByCedula(ctx, in.Cedula)
	if err == nil {
		return existing, ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, fmt.Errorf("look up user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Cedula:       in.Cedula,
		PasswordHash: hash,
		Name:         in.Nombre,
		Email:        optional(in.Email),
		Phone:        optional(in.Telefono),
		Role:         in.Rol,
		Active:       *in.Activo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// created concurrently since the lookup above
			if existing, gerr := s.store.GetByCedula(ctx, in.Cedula); gerr == nil {
				return existing, ErrUserExists
			}
			return model.User{Cedula: in.Cedula, Name: in.Nombre}, ErrUserExists
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user provisioned", "user_id", u.ID, "cedula", u.Cedula, "role", u.Role)
	return u, nil
}

// List returns every account.
func (s *Users) List(ctx context.Context) ([]model.User, error) {
	return s.store.List(ctx)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
