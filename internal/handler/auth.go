package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/middleware"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/service"
	"github.com/equinox/fleet-inspections/internal/utils"
	"github.com/equinox/fleet-inspections/internal/validation"
)

// dbTimeout bounds the datastore work of a single request.
const dbTimeout = 5 * time.Second

// Sessions is the session lifecycle used by AuthHandler.
type Sessions interface {
	Login(ctx context.Context, cedula, password string) (service.LoginResult, error)
	Refresh(ctx context.Context, cookie string) (service.RefreshResult, error)
	Logout(ctx context.Context, cookie string)
	Introspect(token string) (*utils.Claims, bool)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Sessions Sessions
	Secure   bool // mark cookies Secure (production)
	Log      *logger.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks cookies Secure.
func NewAuthHandler(s Sessions, secure bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{Sessions: s, Secure: secure, Log: log}
}

type usuario struct {
	ID     string     `json:"id"`
	Nombre string     `json:"nombre"`
	Cedula string     `json:"cedula"`
	Rol    model.Role `json:"rol"`
}

func toUsuario(u model.User) usuario {
	return usuario{ID: u.ID, Nombre: u.Name, Cedula: u.Cedula, Rol: u.Role}
}

type sessionResp struct {
	Success bool    `json:"success"`
	Usuario usuario `json:"usuario"`
}

func (h *AuthHandler) setCookie(c echo.Context, name, value string, exp time.Time) {
	maxAge := int(time.Until(exp).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login checks credentials and sets the session cookie (and the refresh
// cookie when refresh issuance is enabled).
func (h *AuthHandler) Login(c echo.Context) error {
	var req validation.Credentials
	if err := c.Bind(&req); err != nil {
		return invalidJSON(c)
	}
	if errs := validation.Login(req); len(errs) > 0 {
		return invalidData(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Sessions.Login(ctx, req.Cedula, req.Password)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Usuario no encontrado"})
	case errors.Is(err, service.ErrWrongPassword):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Contraseña incorrecta"})
	case errors.Is(err, service.ErrUserInactive):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Usuario inactivo"})
	case err != nil:
		h.Log.Error("login failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al procesar la solicitud"})
	}

	h.setCookie(c, middleware.SessionCookie, res.Access.Token, res.Access.Exp)
	if res.Refresh != nil {
		h.setCookie(c, middleware.RefreshCookie, res.Refresh.Value, res.Refresh.Exp)
	}
	return c.JSON(http.StatusOK, sessionResp{Success: true, Usuario: toUsuario(res.User)})
}

// Refresh rotates the refresh cookie and issues a short-lived session token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var raw string
	if ck, err := c.Cookie(middleware.RefreshCookie); err == nil {
		raw = ck.Value
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Sessions.Refresh(ctx, raw)
	if err != nil {
		msg, known := refreshErrors[unwrapRefresh(err)]
		if !known {
			h.Log.Error("refresh failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error en refresh"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
	}

	h.setCookie(c, middleware.RefreshCookie, res.Refresh.Value, res.Refresh.Exp)
	h.setCookie(c, middleware.SessionCookie, res.Access.Token, res.Access.Exp)
	return c.JSON(http.StatusOK, sessionResp{Success: true, Usuario: toUsuario(res.User)})
}

var refreshErrors = map[error]string{
	service.ErrNoRefreshToken:      "No refresh token",
	service.ErrRefreshInvalid:      "Invalid refresh token",
	service.ErrRefreshNotFound:     "Refresh token not found",
	service.ErrRefreshExpired:      "Refresh token expired",
	service.ErrRefreshUserNotFound: "Usuario no encontrado",
	service.ErrUserInactive:        "Usuario inactivo",
}

func unwrapRefresh(err error) error {
	for sentinel := range refreshErrors {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

// Logout clears both cookies and drops the refresh record. Issued session
// tokens stay valid until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(middleware.RefreshCookie); err == nil && ck.Value != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
		defer cancel()
		h.Sessions.Logout(ctx, ck.Value)
	}
	h.clearCookie(c, middleware.SessionCookie)
	h.clearCookie(c, middleware.RefreshCookie)
	h.Log.Info("user logged out")
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me reports the caller's session. It always answers 200.
func (h *AuthHandler) Me(c echo.Context) error {
	var raw string
	if ck, err := c.Cookie(middleware.SessionCookie); err == nil {
		raw = ck.Value
	}
	claims, ok := h.Sessions.Introspect(raw)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"authenticated": true, "user": claims})
}
