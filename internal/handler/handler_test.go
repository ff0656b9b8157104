package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/testutil"
	"github.com/equinox/fleet-inspections/internal/validation"
)

func newContext(e *echo.Echo, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func TestParseFilter(t *testing.T) {
	e := echo.New()

	c, _ := newContext(e, http.MethodGet, "/?placa=%20abc123%20&cedula=987654&desde=2026-02-01&hasta=2026-02-28&limit=20&offset=40")
	f, errs := parseFilter(c)
	require.Empty(t, errs)
	assert.Equal(t, "abc123", f.Placa)
	assert.Equal(t, "987654", f.Cedula)
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *f.To, "hasta is inclusive")
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset)

	c, _ = newContext(e, http.MethodGet, "/?desde=01/02/2026&hasta=x&limit=0&offset=-1")
	_, errs = parseFilter(c)
	fields := make([]string, len(errs))
	for i, fe := range errs {
		fields[i] = fe.Field
	}
	assert.Equal(t, []string{"desde", "hasta", "limit", "offset"}, fields)
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	h := ErrorHandler(testutil.MakeNoopLogger())

	c, rec := newContext(e, http.MethodGet, "/")
	h(echo.NewHTTPError(http.StatusNotFound, "Not Found"), c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	c, rec = newContext(e, http.MethodGet, "/")
	h(errors.New("dial tcp: connection refused"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

type fakeMigrator struct {
	migrated bool
	err      error
}

func (f *fakeMigrator) Migrate(context.Context) error {
	f.migrated = true
	return f.err
}

func (f *fakeMigrator) Tables(context.Context) ([]string, error) {
	if !f.migrated {
		return []string{}, nil
	}
	return []string{"goose_db_version", "inspections", "refresh_tokens", "users"}, nil
}

type fakeProvisioner struct{}

func (fakeProvisioner) Provision(context.Context, validation.NewUser) (model.User, error) {
	return model.User{}, errors.New("database is locked")
}

func (fakeProvisioner) List(context.Context) ([]model.User, error) { return nil, nil }

func TestDevHandler(t *testing.T) {
	e := echo.New()
	db := &fakeMigrator{}
	h := NewDevHandler(fakeProvisioner{}, db, config.TestUser{Cedula: "123456789", Password: "1234"}, testutil.MakeNoopLogger())

	c, rec := newContext(e, http.MethodGet, "/api/setup")
	require.NoError(t, h.Tables(c))
	assert.JSONEq(t, `{"success":true,"tables":[]}`, rec.Body.String())

	c, rec = newContext(e, http.MethodPost, "/api/setup")
	require.NoError(t, h.Setup(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Tablas creadas exitosamente","tables":["goose_db_version","inspections","refresh_tokens","users"]}`, rec.Body.String())

	db.err = errors.New("access denied")
	c, rec = newContext(e, http.MethodPost, "/api/setup")
	require.NoError(t, h.Setup(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	c, rec = newContext(e, http.MethodPost, "/api/auth/seed")
	require.NoError(t, h.Seed(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Error al crear usuario de prueba"}`, rec.Body.String())
}
