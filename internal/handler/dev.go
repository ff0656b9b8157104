package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/service"
	"github.com/equinox/fleet-inspections/internal/validation"
)

// Provisioner creates and lists accounts.
type Provisioner interface {
	Provision(ctx context.Context, in validation.NewUser) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// Migrator applies the schema and reports the tables present.
type Migrator interface {
	Migrate(ctx context.Context) error
	Tables(ctx context.Context) ([]string, error)
}

// DevHandler serves the development helpers under /api/auth/seed and
// /api/setup. Routes are gated by middleware.DevOnly.
type DevHandler struct {
	Users    Provisioner
	DB       Migrator
	TestUser config.TestUser
	Log      *logger.Logger
}

// NewDevHandler creates a DevHandler seeding testUser.
func NewDevHandler(users Provisioner, db Migrator, testUser config.TestUser, log *logger.Logger) *DevHandler {
	return &DevHandler{Users: users, DB: db, TestUser: testUser, Log: log}
}

// TestUserName is the display name of the seeded account.
const TestUserName = "Conductor de Prueba"

// Seed creates the configured test account unless it already exists.
func (h *DevHandler) Seed(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.Provision(ctx, validation.NewUser{
		Cedula:   h.TestUser.Cedula,
		Password: h.TestUser.Password,
		Nombre:   TestUserName,
		Email:    h.TestUser.Email,
		Rol:      model.RoleConductor,
	})
	switch {
	case errors.Is(err, service.ErrUserExists):
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Usuario de prueba ya existe",
			"usuario": echo.Map{"cedula": u.Cedula, "nombre": u.Name},
		})
	case err != nil:
		h.Log.Error("failed to seed test user", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al crear usuario de prueba"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Usuario de prueba creado exitosamente",
		"usuario": echo.Map{"cedula": u.Cedula, "nombre": u.Name},
	})
}

type userRow struct {
	ID        string     `json:"id"`
	Cedula    string     `json:"cedula"`
	Nombre    string     `json:"nombre"`
	Rol       model.Role `json:"rol"`
	Activo    bool       `json:"activo"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ListUsers returns every account without password hashes.
func (h *DevHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Error("failed to list users", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al obtener usuarios"})
	}
	out := make([]userRow, 0, len(users))
	for _, u := range users {
		out = append(out, userRow{ID: u.ID, Cedula: u.Cedula, Nombre: u.Name, Rol: u.Role, Activo: u.Active, CreatedAt: u.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

// Setup applies pending migrations.
func (h *DevHandler) Setup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.DB.Migrate(ctx); err != nil {
		h.Log.Error("migration failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al crear tablas"})
	}
	tables, err := h.DB.Tables(ctx)
	if err != nil {
		h.Log.Error("failed to list tables", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al crear tablas"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Tablas creadas exitosamente",
		"tables":  tables,
	})
}

// Tables lists the tables in the database.
func (h *DevHandler) Tables(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tables, err := h.DB.Tables(ctx)
	if err != nil {
		h.Log.Error("failed to list tables", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error al conectar con la base de datos"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "tables": tables})
}
