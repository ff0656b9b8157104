package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/repository"
)

// Users is an in-memory account store with the repository's error contract.
type Users struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func NewUsers(users ...model.User) *Users {
	s := &Users{byID: make(map[string]model.User)}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *Users) GetByCedula(_ context.Context, cedula string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Cedula == cedula {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Users) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Users) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Cedula == u.Cedula {
			return repository.ErrConflict
		}
	}
	s.byID[u.ID] = u
	return nil
}

func (s *Users) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a user, simulating an account removed after login.
func (s *Users) Delete(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// RefreshTokens is an in-memory refresh record store. Rotate is a
// compare-and-swap on the stored hash.
type RefreshTokens struct {
	mu   sync.Mutex
	byID map[string]model.RefreshToken
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byID: make(map[string]model.RefreshToken)}
}

func (s *RefreshTokens) Create(_ context.Context, t model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[t.ID] = t
	return nil
}

func (s *RefreshTokens) GetByID(_ context.Context, id string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *RefreshTokens) Rotate(_ context.Context, id, oldHash, newHash string, expiresAt, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || t.TokenHash != oldHash {
		return repository.ErrStale
	}
	t.TokenHash = newHash
	t.ExpiresAt = expiresAt
	t.UpdatedAt = now
	s.byID[id] = t
	return nil
}

func (s *RefreshTokens) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// Len returns the number of stored records.
func (s *RefreshTokens) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Put overwrites a record, used to age records in tests.
func (s *RefreshTokens) Put(t model.RefreshToken) {
	s.mu.Lock()
	s.byID[t.ID] = t
	s.mu.Unlock()
}

// Inspections is an in-memory inspection store.
type Inspections struct {
	mu    sync.Mutex
	items []model.Inspection
}

func NewInspections() *Inspections { return &Inspections{} }

func (s *Inspections) Create(_ context.Context, in *model.Inspection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *in)
	return nil
}

func (s *Inspections) GetByID(_ context.Context, id string) (model.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.items {
		if in.ID == id {
			return in, nil
		}
	}
	return model.Inspection{}, repository.ErrNotFound
}

func (s *Inspections) List(_ context.Context, f model.InspectionFilter) ([]model.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Inspection{}
	for _, in := range s.items {
		if f.Placa != "" && (in.PlacaVehiculo == nil || *in.PlacaVehiculo != f.Placa) {
			continue
		}
		if f.Cedula != "" && (in.Cedula == nil || *in.Cedula != f.Cedula) {
			continue
		}
		if f.From != nil && in.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !in.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, in)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Inspections) Stats(_ context.Context, now time.Time) (model.InspectionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var st model.InspectionStats
	for _, in := range s.items {
		st.Total++
		if !in.CreatedAt.Before(monthStart) {
			st.ThisMonth++
		}
		if !in.CreatedAt.Before(dayStart) {
			st.Today++
		}
	}
	return st, nil
}

func (s *Inspections) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, in := range s.items {
		if in.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
