package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/middleware"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/repository"
	"github.com/equinox/fleet-inspections/internal/validation"
)

// InspectionService is the inspection use case behind InspectionHandler.
type InspectionService interface {
	Submit(ctx context.Context, in *model.Inspection, submittedBy string) (string, error)
	List(ctx context.Context, f model.InspectionFilter) ([]model.Inspection, error)
	Get(ctx context.Context, id string) (model.Inspection, error)
	Stats(ctx context.Context) (model.InspectionStats, error)
	Delete(ctx context.Context, id string) error
}

// InspectionHandler serves /api/inspecciones.
type InspectionHandler struct {
	Svc InspectionService
	Log *logger.Logger
}

// NewInspectionHandler creates an InspectionHandler.
func NewInspectionHandler(svc InspectionService, log *logger.Logger) *InspectionHandler {
	return &InspectionHandler{Svc: svc, Log: log}
}

const dateLayout = "2006-01-02"

// Submit stores a public inspection form. A valid session cookie, if
// present, is recorded as the submitter.
func (h *InspectionHandler) Submit(c echo.Context) error {
	var in model.Inspection
	if err := c.Bind(&in); err != nil {
		if errors.Is(err, model.ErrNotArray) {
			return invalidData(c, validation.Errors{{Field: "body", Message: "categorias y kilometraje deben ser listas"}})
		}
		return invalidJSON(c)
	}
	if errs := validation.Inspection(&in); len(errs) > 0 {
		return invalidData(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Svc.Submit(ctx, &in, middleware.UserID(c))
	if err != nil {
		h.Log.Error("failed to store inspection", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al guardar la inspección"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "Inspección guardada exitosamente"})
}

// List returns inspections, newest first, filtered by the placa, cedula,
// desde, hasta, limit and offset query parameters. hasta is inclusive.
func (h *InspectionHandler) List(c echo.Context) error {
	f, errs := parseFilter(c)
	if len(errs) > 0 {
		return invalidData(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	out, err := h.Svc.List(ctx, f)
	if err != nil {
		h.Log.Error("failed to list inspections", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al obtener las inspecciones"})
	}
	return c.JSON(http.StatusOK, out)
}

func parseFilter(c echo.Context) (model.InspectionFilter, validation.Errors) {
	var (
		f    model.InspectionFilter
		errs validation.Errors
	)
	f.Placa = strings.TrimSpace(c.QueryParam("placa"))
	f.Cedula = strings.TrimSpace(c.QueryParam("cedula"))

	if v := c.QueryParam("desde"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			errs = append(errs, validation.FieldError{Field: "desde", Message: "Fecha inválida (AAAA-MM-DD)"})
		} else {
			f.From = &d
		}
	}
	if v := c.QueryParam("hasta"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			errs = append(errs, validation.FieldError{Field: "hasta", Message: "Fecha inválida (AAAA-MM-DD)"})
		} else {
			end := d.AddDate(0, 0, 1)
			f.To = &end
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, validation.FieldError{Field: "limit", Message: "Debe ser un número positivo"})
		} else {
			f.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, validation.FieldError{Field: "offset", Message: "Debe ser un número positivo"})
		} else {
			f.Offset = n
		}
	}
	return f, errs
}

// Stats returns the dashboard counters.
func (h *InspectionHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	st, err := h.Svc.Stats(ctx)
	if err != nil {
		h.Log.Error("failed to load inspection stats", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al obtener las estadísticas"})
	}
	return c.JSON(http.StatusOK, st)
}

// Get returns one inspection.
func (h *InspectionHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	in, err := h.Svc.Get(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Inspección no encontrada"})
	}
	if err != nil {
		h.Log.Error("failed to load inspection", "id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al obtener la inspección"})
	}
	return c.JSON(http.StatusOK, in)
}

// Delete removes one inspection.
func (h *InspectionHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	err := h.Svc.Delete(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Inspección no encontrada"})
	}
	if err != nil {
		h.Log.Error("failed to delete inspection", "id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al eliminar la inspección"})
	}
	return c.NoContent(http.StatusNoContent)
}
