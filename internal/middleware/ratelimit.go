package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/ratelimit"
)

// RateLimit counts requests per client identifier under rule and answers
// 429 with Retry-After once the window's budget is spent. With debug set
// every decision is logged and the counter key is exposed in
// X-RateLimit-Key.
func RateLimit(l ratelimit.Limiter, rule ratelimit.Rule, debug bool, log *logger.Logger) echo.MiddlewareFunc {
	return rateLimit(l, rule, debug, log, time.Now)
}

func rateLimit(l ratelimit.Limiter, rule ratelimit.Rule, debug bool, log *logger.Logger, now func() time.Time) echo.MiddlewareFunc {
	limit := strconv.Itoa(rule.MaxRequests)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ClientIdentifier(c.Request())
			key := rule.Key(id)
			res := l.Check(c.Request().Context(), key, rule.MaxRequests, rule.Window)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if debug {
				h.Set("X-RateLimit-Key", key)
				log.Debug("rate limit check", "key", key, "allowed", res.Allowed, "remaining", res.Remaining, "reset", res.ResetTime)
			}

			if !res.Allowed {
				secs := retryAfter(res.ResetTime, now())
				h.Set("Retry-After", strconv.Itoa(secs))
				log.Warn("rate limit exceeded", "rule", rule.Name, "client", id, "retry_after", secs)
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "Too many requests, please try again later",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// retryAfter is the number of whole seconds until reset, rounded up.
func retryAfter(reset, now time.Time) int {
	secs := int(math.Ceil(reset.Sub(now).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}
