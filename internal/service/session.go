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
)

// UserStore looks up accounts.
type UserStore interface {
	GetByCedula(ctx context.Context, cedula string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// RefreshStore persists refresh records. Rotate must only succeed while
// the record still holds oldHash and return repository.ErrStale otherwise.
type RefreshStore interface {
	Create(ctx context.Context, t model.RefreshToken) error
	GetByID(ctx context.Context, id string) (model.RefreshToken, error)
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, now time.Time) error
	Delete(ctx context.Context, id string) error
}

// TokenSigner issues and checks session tokens.
type TokenSigner interface {
	Sign(u utils.SessionUser, ttl time.Duration) (utils.AccessToken, error)
	Verify(raw string) (*utils.Claims, bool)
}

// SessionOptions holds the lifetimes used by Session.
type SessionOptions struct {
	AccessTTL          time.Duration // token issued at login
	RefreshedAccessTTL time.Duration // token issued by a refresh
	RefreshTTL         time.Duration // refresh record lifetime
	RefreshOnLogin     bool
}

// RefreshCookie is the value of the refreshToken cookie and its expiry.
type RefreshCookie struct {
	Value string
	Exp   time.Time
}

// LoginResult is returned by a successful Login. Refresh is nil when
// refresh issuance at login is disabled.
type LoginResult struct {
	User    model.User
	Access  utils.AccessToken
	Refresh *RefreshCookie
}

// RefreshResult is returned by a successful Refresh.
type RefreshResult struct {
	User    model.User
	Access  utils.AccessToken
	Refresh RefreshCookie
}

// Session implements the login, refresh, logout and introspection flows.
type Session struct {
	users  UserStore
	tokens RefreshStore
	signer TokenSigner
	hasher *utils.Hasher
	opts   SessionOptions
	log    *logger.Logger
	now    func() time.Time
}

// NewSession wires a Session.
func NewSession(users UserStore, tokens RefreshStore, signer TokenSigner, hasher *utils.Hasher, opts SessionOptions, log *logger.Logger) *Session {
	return &Session{
		users:  users,
		tokens: tokens,
		signer: signer,
		hasher: hasher,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
}

// WithClock makes the session read time from now.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

func sessionUser(u model.User) utils.SessionUser {
	return utils.SessionUser{ID: u.ID, Cedula: u.Cedula, Nombre: u.Name, Rol: u.Role}
}

// Login checks credentials and issues a session token and, when enabled,
// a refresh record.
func (s *Session) Login(ctx context.Context, cedula, password string) (LoginResult, error) {
	u, err := s.users.GetByCedula(ctx, cedula)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.Burn(password)
		return LoginResult{}, ErrUserNotFound
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return LoginResult{}, ErrWrongPassword
	}
	if !u.Active {
		return LoginResult{}, ErrUserInactive
	}

	access, err := s.signer.Sign(sessionUser(u), s.opts.AccessTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	res := LoginResult{User: u, Access: access}

	if s.opts.RefreshOnLogin {
		rc, err := s.issueRefresh(ctx, u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		res.Refresh = &rc
	}

	s.log.Info("login successful", "user_id", u.ID, "cedula", u.Cedula)
	return res, nil
}

func (s *Session) issueRefresh(ctx context.Context, userID string) (RefreshCookie, error) {
	secret, err := utils.NewRefreshSecret()
	if err != nil {
		return RefreshCookie{}, fmt.Errorf("generate refresh secret: %w", err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return RefreshCookie{}, fmt.Errorf("hash refresh secret: %w", err)
	}
	now := s.now().UTC()
	rec := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.opts.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return RefreshCookie{}, fmt.Errorf("store refresh token: %w", err)
	}
	return RefreshCookie{Value: utils.EncodeRefreshCookie(rec.ID, secret), Exp: rec.ExpiresAt}, nil
}

// Refresh validates the refresh cookie, rotates its secret and issues a
// short-lived session token.
func (s *Session) Refresh(ctx context.Context, cookie string) (RefreshResult, error) {
	if cookie == "" {
		return RefreshResult{}, ErrNoRefreshToken
	}
	id, secret, ok := utils.ParseRefreshCookie(cookie)
	if !ok {
		return RefreshResult{}, ErrRefreshInvalid
	}

	rec, err := s.tokens.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return RefreshResult{}, ErrRefreshNotFound
	}
	if err != nil {
		return RefreshResult{}, fmt.Errorf("load refresh token: %w", err)
	}

	now := s.now().UTC()
	if rec.Expired(now) {
		if err := s.tokens.Delete(ctx, rec.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("failed to delete expired refresh token", "id", rec.ID, "error", err)
		}
		return RefreshResult{}, ErrRefreshExpired
	}

	if !s.hasher.Verify(rec.TokenHash, secret) {
		return RefreshResult{}, ErrRefreshInvalid
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return RefreshResult{}, ErrRefreshUserNotFound
	}
	if err != nil {
		return RefreshResult{}, fmt.Errorf("load user: %w", err)
	}
	if !u.Active {
		return RefreshResult{}, ErrUserInactive
	}

	newSecret, err := utils.NewRefreshSecret()
	if err != nil {
		return RefreshResult{}, fmt.Errorf("generate refresh secret: %w", err)
	}
	newHash, err := s.hasher.Hash(newSecret)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("hash refresh secret: %w", err)
	}
	exp := now.Add(s.opts.RefreshTTL)

	err = s.tokens.Rotate(ctx, rec.ID, rec.TokenHash, newHash, exp, now)
	if errors.Is(err, repository.ErrStale) {
		// a concurrent refresh already consumed this secret
		return RefreshResult{}, ErrRefreshInvalid
	}
	if err != nil {
		return RefreshResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	access, err := s.signer.Sign(sessionUser(u), s.opts.RefreshedAccessTTL)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign token: %w", err)
	}

	return RefreshResult{
		User:    u,
		Access:  access,
		Refresh: RefreshCookie{Value: utils.EncodeRefreshCookie(rec.ID, newSecret), Exp: exp},
	}, nil
}

// Logout drops the refresh record named by cookie, if any. Session tokens
// are not tracked server-side and stay valid until they expire.
func (s *Session) Logout(ctx context.Context, cookie string) {
	id, _, ok := utils.ParseRefreshCookie(cookie)
	if !ok {
		return
	}
	if err := s.tokens.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("failed to delete refresh token on logout", "id", id, "error", err)
	}
}

// Introspect reports the claims of a session token. It never fails: any
// problem with the token simply means the caller is not authenticated.
func (s *Session) Introspect(token string) (*utils.Claims, bool) {
	if token == "" {
		return nil, false
	}
	return s.signer.Verify(token)
}
