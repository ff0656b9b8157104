package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/equinox/fleet-inspections/internal/logger"
)

// RequestLogger writes one access log record per request to log.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if id := UserID(c); id != "" {
				attrs = append(attrs, "user_id", id)
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				level = slog.LevelError
			} else if v.Status >= 500 {
				level = slog.LevelError
			}
			log.Log(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
