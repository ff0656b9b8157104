package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/handler"
	"github.com/equinox/fleet-inspections/internal/middleware"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/ratelimit"
	"github.com/equinox/fleet-inspections/internal/service"
	"github.com/equinox/fleet-inspections/internal/testutil"
	"github.com/equinox/fleet-inspections/internal/utils"
)

const testSecret = "router-test-secret-0123456789abcdefghij"

type app struct {
	e      *echo.Echo
	tokens *testutil.RefreshTokens
	signer *utils.Signer
}

func newApp(t *testing.T, users ...model.User) *app {
	t.Helper()
	log := testutil.MakeNoopLogger()
	cfg := &config.Config{
		Env: "development",
		RateLimit: config.RateLimitConfig{
			Enabled: true, LoginMax: 5, LoginWindow: 15 * time.Minute,
			SubmitMax: 10, SubmitWindow: time.Hour,
		},
		TestUser: config.TestUser{Cedula: "123456789", Password: "1234", Email: "test@equinox.local"},
	}

	userStore := testutil.NewUsers(users...)
	tokens := testutil.NewRefreshTokens()
	signer := utils.NewSigner(testSecret)
	hasher := utils.NewHasher(bcrypt.MinCost)

	sessions := service.NewSession(userStore, tokens, signer, hasher, service.SessionOptions{
		AccessTTL:          7 * 24 * time.Hour,
		RefreshedAccessTTL: 15 * time.Minute,
		RefreshTTL:         30 * 24 * time.Hour,
		RefreshOnLogin:     true,
	}, log)

	lim := ratelimit.NewMemory(ratelimit.WithSweepInterval(0))
	t.Cleanup(func() { _ = lim.Close() })

	e := New(Deps{
		Cfg:         cfg,
		Log:         log,
		Auth:        handler.NewAuthHandler(sessions, false, log),
		Inspections: handler.NewInspectionHandler(service.NewInspections(testutil.NewInspections(), nil, log), log),
		Dev:         handler.NewDevHandler(service.NewUsers(userStore, hasher, log), nil, cfg.TestUser, log),
		Verifier:    signer,
		Limiter:     lim,
	})
	return &app{e: e, tokens: tokens, signer: signer}
}

func conductor(t *testing.T) model.User {
	t.Helper()
	hash, err := utils.HashPassword("1234", bcrypt.MinCost)
	require.NoError(t, err)
	return model.User{ID: "u-1", Cedula: "123456789", PasswordHash: hash, Name: "Conductor de Prueba", Role: model.RoleConductor, Active: true}
}

type reqOpt func(*http.Request)

func fromIP(ip string) reqOpt {
	return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip) }
}

func withCookies(cs ...*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, c := range cs {
			r.AddCookie(c)
		}
	}
}

func (a *app) do(method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginEndToEnd(t *testing.T) {
	a := newApp(t, conductor(t))

	rec := a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`, fromIP("203.0.113.7"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"usuario":{"id":"u-1","nombre":"Conductor de Prueba","cedula":"123456789","rol":"conductor"}}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	tok := cookie(rec, middleware.SessionCookie)
	require.NotNil(t, tok)
	assert.True(t, tok.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, tok.SameSite)
	assert.Equal(t, "/", tok.Path)
	assert.False(t, tok.Secure)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), float64(tok.MaxAge), 5)

	claims, ok := a.signer.Verify(tok.Value)
	require.True(t, ok)
	assert.Equal(t, "conductor", claims.Rol)
	assert.Equal(t, "123456789", claims.Cedula)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	require.NotNil(t, cookie(rec, middleware.RefreshCookie))
}

func TestLoginRateLimited(t *testing.T) {
	a := newApp(t, conductor(t))

	for i := 0; i < 5; i++ {
		rec := a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"9999"}`, fromIP("203.0.113.7"))
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	rec := a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`, fromIP("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`, fromIP("198.51.100.2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginErrors(t *testing.T) {
	a := newApp(t, conductor(t))

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{name: "unknown cedula", body: `{"cedula":"000000","password":"1234"}`, code: http.StatusUnauthorized, want: `{"error":"Usuario no encontrado"}`},
		{name: "wrong password", body: `{"cedula":"123456789","password":"4321"}`, code: http.StatusUnauthorized, want: `{"error":"Contraseña incorrecta"}`},
		{
			name: "schema invalid", body: `{"cedula":"12","password":"1234"}`, code: http.StatusBadRequest,
			want: `{"error":"Datos inválidos","details":[{"field":"cedula","message":"La cédula debe tener al menos 6 caracteres"}]}`,
		},
		{
			name: "password over bcrypt limit", body: `{"cedula":"123456789","password":"` + strings.Repeat("x", 80) + `"}`, code: http.StatusBadRequest,
			want: `{"error":"Datos inválidos","details":[{"field":"password","message":"La contraseña no puede exceder 72 bytes"}]}`,
		},
		{
			name: "malformed json", body: `{"cedula":`, code: http.StatusBadRequest,
			want: `{"error":"Datos inválidos","details":[{"field":"body","message":"JSON inválido"}]}`,
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// distinct clients so the limiter stays out of the way
			rec := a.do(http.MethodPost, "/api/auth/login", tt.body, fromIP("192.0.2."+strconv.Itoa(i+1)))
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Nil(t, cookie(rec, middleware.SessionCookie))
		})
	}
}

func TestMe(t *testing.T) {
	a := newApp(t, conductor(t))

	expired, err := a.signer.WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }).
		Sign(utils.SessionUser{ID: "u-1", Cedula: "123456789", Nombre: "Conductor de Prueba", Rol: model.RoleConductor}, 7*24*time.Hour)
	require.NoError(t, err)

	for name, opts := range map[string][]reqOpt{
		"no cookie": nil,
		"garbage":   {withCookies(&http.Cookie{Name: middleware.SessionCookie, Value: "garbage"})},
		"expired":   {withCookies(&http.Cookie{Name: middleware.SessionCookie, Value: expired.Token})},
	} {
		t.Run(name, func(t *testing.T) {
			rec := a.do(http.MethodGet, "/api/auth/me", "", opts...)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
		})
	}

	t.Run("valid", func(t *testing.T) {
		login := a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`)
		require.Equal(t, http.StatusOK, login.Code)

		rec := a.do(http.MethodGet, "/api/auth/me", "", withCookies(cookie(login, middleware.SessionCookie)))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Authenticated bool           `json:"authenticated"`
			User          map[string]any `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Authenticated)
		assert.Equal(t, "u-1", body.User["id"])
		assert.Equal(t, "conductor", body.User["rol"])
		assert.Contains(t, body.User, "iat")
		assert.Contains(t, body.User, "exp")
	})
}

func TestRefreshAndLogout(t *testing.T) {
	a := newApp(t, conductor(t))

	login := a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`)
	require.Equal(t, http.StatusOK, login.Code)
	first := cookie(login, middleware.RefreshCookie)
	require.NotNil(t, first)

	rec := a.do(http.MethodPost, "/api/auth/refresh", "", withCookies(first))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"usuario":{"id":"u-1","nombre":"Conductor de Prueba","cedula":"123456789","rol":"conductor"}}`, rec.Body.String())
	second := cookie(rec, middleware.RefreshCookie)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)
	access := cookie(rec, middleware.SessionCookie)
	require.NotNil(t, access)
	assert.InDelta(t, (15 * time.Minute).Seconds(), float64(access.MaxAge), 5)

	rec = a.do(http.MethodPost, "/api/auth/refresh", "", withCookies(first))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid refresh token"}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/refresh", "")
	assert.JSONEq(t, `{"error":"No refresh token"}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/logout", "", withCookies(second))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	for _, name := range []string{middleware.SessionCookie, middleware.RefreshCookie} {
		c := cookie(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
	assert.Zero(t, a.tokens.Len())

	rec = a.do(http.MethodPost, "/api/auth/refresh", "", withCookies(second))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Refresh token not found"}`, rec.Body.String())
}

func TestInspectionsAPI(t *testing.T) {
	a := newApp(t, conductor(t))

	rec := a.do(http.MethodGet, "/api/inspecciones", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No autorizado"}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/inspecciones", `{"placaVehiculo":"ABC123","cedula":"123456789","categorias":["C2"],"kilometraje":[{"dia":"lunes","km":120}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Inspección guardada exitosamente", created.Message)

	rec = a.do(http.MethodPost, "/api/inspecciones", `{"categorias":"C2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/inspecciones", `{"anio":"20266"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Máximo 4 caracteres")

	login := a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`)
	require.Equal(t, http.StatusOK, login.Code)
	session := withCookies(cookie(login, middleware.SessionCookie))

	rec = a.do(http.MethodGet, "/api/inspecciones?placa=ABC123", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, []any{"C2"}, list[0]["categorias"])

	rec = a.do(http.MethodGet, "/api/inspecciones?desde=ayer", "", session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/inspecciones/stats", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":1,"esteMes":1,"hoy":1}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/inspecciones/"+created.ID, "", session)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodGet, "/api/inspecciones/missing", "", session)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodDelete, "/api/inspecciones/"+created.ID, "", session)
	assert.Equal(t, http.StatusForbidden, rec.Code, "conductors cannot delete")

	admin, err := a.signer.Sign(utils.SessionUser{ID: "a-1", Cedula: "999999", Nombre: "Admin", Rol: model.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	adminSession := withCookies(&http.Cookie{Name: middleware.SessionCookie, Value: admin.Token})
	rec = a.do(http.MethodDelete, "/api/inspecciones/"+created.ID, "", adminSession)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodDelete, "/api/inspecciones/"+created.ID, "", adminSession)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitRateLimited(t *testing.T) {
	a := newApp(t)
	for i := 0; i < 10; i++ {
		rec := a.do(http.MethodPost, "/api/inspecciones", `{}`, fromIP("203.0.113.9"))
		require.Equal(t, http.StatusCreated, rec.Code, "submission %d", i+1)
	}
	rec := a.do(http.MethodPost, "/api/inspecciones", `{}`, fromIP("203.0.113.9"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSeedThenLogin(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/api/auth/seed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Usuario de prueba creado exitosamente","usuario":{"cedula":"123456789","nombre":"Conductor de Prueba"}}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/seed", "")
	assert.JSONEq(t, `{"message":"Usuario de prueba ya existe","usuario":{"cedula":"123456789","nombre":"Conductor de Prueba"}}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/auth/seed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(http.MethodPost, "/api/auth/login", `{"cedula":"123456789","password":"1234"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
