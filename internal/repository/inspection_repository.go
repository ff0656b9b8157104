package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/equinox/fleet-inspections/internal/model"
)

// inspectionColumns lists every column of the inspections table in
// insertion order.
var inspectionColumns = []string{
	"id", "created_at", "updated_at",
	"codigo", "version", "fecha_edicion", "fecha_inspeccion_desde", "fecha_inspeccion_hasta", "mes", "anio",
	"soat_estado", "soat_vencimiento", "revision_tecnica_estado", "revision_tecnica_vencimiento",
	"poliza_estado", "poliza_vencimiento", "licencia_estado", "licencia_vencimiento", "categorias",
	"nombre_conductor", "cedula", "edad", "arl", "eps", "fondo_pension", "rh",
	"placa_vehiculo", "marca_vehiculo", "linea_vehiculo", "modelo_vehiculo",
	"placa_remolque", "marca_remolque", "clase_remolque", "modelo_remolque",
	"horas_dormir", "kilometraje", "toma_medicacion", "ansiedad_estres", "problemas_visuales", "estado_salud",
	"submitted_by",
}

var (
	inspectionSelect = "SELECT " + strings.Join(inspectionColumns, ", ") + " FROM inspections"
	inspectionInsert = "INSERT INTO inspections (" + strings.Join(inspectionColumns, ", ") +
		") VALUES (:" + strings.Join(inspectionColumns, ", :") + ")"
)

// DefaultListLimit caps listings that do not ask for a page size.
const DefaultListLimit = 100

// MaxListLimit is the largest page the listing serves.
const MaxListLimit = 500

// InspectionRepo stores submitted inspection forms.
type InspectionRepo struct{ DB *sqlx.DB }

// NewInspectionRepo creates a repository for inspection forms.
func NewInspectionRepo(db *sqlx.DB) *InspectionRepo { return &InspectionRepo{DB: db} }

// Create inserts in. The caller assigns ID and timestamps.
func (r *InspectionRepo) Create(ctx context.Context, in *model.Inspection) error {
	if _, err := r.DB.NamedExecContext(ctx, inspectionInsert, in); err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}
	return nil
}

// GetByID fetches one inspection.
func (r *InspectionRepo) GetByID(ctx context.Context, id string) (model.Inspection, error) {
	var in model.Inspection
	err := r.DB.GetContext(ctx, &in, inspectionSelect+" WHERE id = ? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Inspection{}, ErrNotFound
	}
	if err != nil {
		return model.Inspection{}, fmt.Errorf("get inspection: %w", err)
	}
	return in, nil
}

// List returns inspections matching f, newest first.
func (r *InspectionRepo) List(ctx context.Context, f model.InspectionFilter) ([]model.Inspection, error) {
	where, args := inspectionWhere(f)

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(f.Offset, 0)

	q := inspectionSelect + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	out := []model.Inspection{}
	if err := r.DB.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	return out, nil
}

func inspectionWhere(f model.InspectionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Placa != "" {
		conds = append(conds, "placa_vehiculo = ?")
		args = append(args, strings.ToUpper(f.Placa))
	}
	if f.Cedula != "" {
		conds = append(conds, "cedula = ?")
		args = append(args, f.Cedula)
	}
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Stats counts all inspections, those of the current month and those of
// the current day, with now in UTC.
func (r *InspectionRepo) Stats(ctx context.Context, now time.Time) (model.InspectionStats, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var s model.InspectionStats
	err := r.DB.GetContext(ctx, &s,
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(created_at >= ?), 0) AS this_month,
		        COALESCE(SUM(created_at >= ?), 0) AS today
		 FROM inspections`, monthStart, dayStart)
	if err != nil {
		return model.InspectionStats{}, fmt.Errorf("inspection stats: %w", err)
	}
	return s, nil
}

// Delete removes one inspection.
func (r *InspectionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM inspections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
