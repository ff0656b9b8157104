package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/utils"
)

// Cookie names carrying the session token and the refresh record.
const (
	SessionCookie = "token"
	RefreshCookie = "refreshToken"
)

// TokenVerifier checks a session token.
type TokenVerifier interface {
	Verify(raw string) (*utils.Claims, bool)
}

// CookieAuth validates the session token cookie and stores the user id,
// role and claims in the context. Requests without a valid token get 401.
func CookieAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookie)
			if err != nil || ck.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "No autorizado"})
			}
			claims, ok := v.Verify(ck.Value)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "No autorizado"})
			}
			setSession(c, claims)
			return next(c)
		}
	}
}

// OptionalSession behaves like CookieAuth but lets guests through.
func OptionalSession(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
				if claims, ok := v.Verify(ck.Value); ok {
					setSession(c, claims)
				}
			}
			return next(c)
		}
	}
}
