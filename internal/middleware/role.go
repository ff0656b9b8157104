package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/model"
)

// RequireRole aborts with 403 unless the session role stored by CookieAuth
// is one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Acceso denegado"})
			}
			return next(c)
		}
	}
}

// DevOnly blocks development endpoints unless allowed is true.
func DevOnly(allowed bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if allowed {
			return next
		}
		return func(c echo.Context) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Endpoint disabled in production"})
		}
	}
}
