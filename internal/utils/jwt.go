package utils // package utils provides helpers for session tokens, refresh secrets and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/equinox/fleet-inspections/internal/model"
)

// AccessToken represents a signed session token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionUser is the identity bound into a session token.
type SessionUser struct {
	ID     string
	Cedula string
	Nombre string
	Rol    model.Role
}

// Claims is the payload of a session token. Its JSON form is what
// /api/auth/me reports back to the client.
type Claims struct {
	ID     string `json:"id"`
	Cedula string `json:"cedula"`
	Nombre string `json:"nombre"`
	Rol    string `json:"rol"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens with a process-wide secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer for secret using the wall clock.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of s that reads time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	return &Signer{secret: s.secret, now: now}
}

// Sign builds a token for u that expires ttl from now.
func (s *Signer) Sign(u SessionUser, ttl time.Duration) (AccessToken, error) {
	if ttl <= 0 {
		return AccessToken{}, errors.New("token ttl must be positive")
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		ID:     u.ID,
		Cedula: u.Cedula,
		Nombre: u.Nombre,
		Rol:    string(u.Rol),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	// the token carries second precision, keep Exp consistent with it
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm and expiry of raw. Any failure,
// including malformed input, yields false.
func (s *Signer) Verify(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, false
	}
	return claims, true
}
