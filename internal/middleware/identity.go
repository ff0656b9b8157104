package middleware

// identity.go holds the helpers that name the caller of a request: the
// client identifier used for rate limiting and the session values stored
// in the Echo context by CookieAuth.

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/utils"
)

// Context keys set by CookieAuth and OptionalSession.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

// UnknownClient is the identifier shared by every request that carries no
// forwarding header.
const UnknownClient = "unknown"

// ClientIdentifier derives the rate limit identifier of r: the first hop of
// X-Forwarded-For, then X-Real-IP, else UnknownClient.
func ClientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownClient
}

// UserID returns the id of the authenticated user, or "" for guests.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// SessionClaims returns the verified session claims, if any.
func SessionClaims(c echo.Context) (*utils.Claims, bool) {
	cl, ok := c.Get(ctxClaims).(*utils.Claims)
	return cl, ok && cl != nil
}

func setSession(c echo.Context, cl *utils.Claims) {
	c.Set(ctxUserID, cl.ID)
	c.Set(ctxRole, cl.Rol)
	c.Set(ctxClaims, cl)
}
