package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/validation"
)

func invalidData(c echo.Context, errs validation.Errors) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "Datos inválidos", "details": errs})
}

func invalidJSON(c echo.Context) error {
	return invalidData(c, validation.Errors{{Field: "body", Message: "JSON inválido"}})
}

// ErrorHandler writes errors that escape handlers as {"error": "..."} and
// logs server side failures. 5xx details never reach the client.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "Error interno del servidor"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				if s, ok := he.Message.(string); ok {
					msg = s
				} else {
					msg = http.StatusText(code)
				}
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("unhandled error", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, echo.Map{"error": msg})
		}
		if werr != nil {
			log.Error("failed to write error response", "error", werr)
		}
	}
}
