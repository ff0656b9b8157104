package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotArray is returned when a list field is given a JSON value that is
// not an array.
var ErrNotArray = errors.New("expected a JSON array")

// JSONList is a free-form JSON array stored in a TEXT column.
type JSONList []any

// UnmarshalJSON accepts an array or null.
func (l *JSONList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) == 0 || b[0] != '[' {
		return ErrNotArray
	}
	var items []any
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// MarshalJSON renders a nil list as an empty array.
func (l JSONList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(l))
}

// Value implements driver.Valuer.
func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]any(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *JSONList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode JSONList: %w", err)
	}
	*l = items
	return nil
}

// Inspection is one submitted pre-operational vehicle inspection form. All
// form fields are optional free text; the two list fields hold whatever
// array the client sent.
type Inspection struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// header
	Codigo               *string `db:"codigo" json:"codigo,omitempty" validate:"omitempty,max=50"`
	Version              *string `db:"version" json:"version,omitempty" validate:"omitempty,max=20"`
	FechaEdicion         *string `db:"fecha_edicion" json:"fechaEdicion,omitempty" validate:"omitempty,max=20"`
	FechaInspeccionDesde *string `db:"fecha_inspeccion_desde" json:"fechaInspeccionDesde,omitempty" validate:"omitempty,max=20"`
	FechaInspeccionHasta *string `db:"fecha_inspeccion_hasta" json:"fechaInspeccionHasta,omitempty" validate:"omitempty,max=20"`
	Mes                  *string `db:"mes" json:"mes,omitempty" validate:"omitempty,max=20"`
	Anio                 *string `db:"anio" json:"anio,omitempty" validate:"omitempty,max=4"`

	// documents
	SoatEstado                 *string  `db:"soat_estado" json:"soatEstado,omitempty" validate:"omitempty,max=20"`
	SoatVencimiento            *string  `db:"soat_vencimiento" json:"soatVencimiento,omitempty" validate:"omitempty,max=20"`
	RevisionTecnicaEstado      *string  `db:"revision_tecnica_estado" json:"revisionTecnicaEstado,omitempty" validate:"omitempty,max=20"`
	RevisionTecnicaVencimiento *string  `db:"revision_tecnica_vencimiento" json:"revisionTecnicaVencimiento,omitempty" validate:"omitempty,max=20"`
	PolizaEstado               *string  `db:"poliza_estado" json:"polizaEstado,omitempty" validate:"omitempty,max=20"`
	PolizaVencimiento          *string  `db:"poliza_vencimiento" json:"polizaVencimiento,omitempty" validate:"omitempty,max=20"`
	LicenciaEstado             *string  `db:"licencia_estado" json:"licenciaEstado,omitempty" validate:"omitempty,max=20"`
	LicenciaVencimiento        *string  `db:"licencia_vencimiento" json:"licenciaVencimiento,omitempty" validate:"omitempty,max=20"`
	Categorias                 JSONList `db:"categorias" json:"categorias"`

	// driver
	NombreConductor *string `db:"nombre_conductor" json:"nombreConductor,omitempty" validate:"omitempty,max=100"`
	Cedula          *string `db:"cedula" json:"cedula,omitempty" validate:"omitempty,max=20"`
	Edad            *string `db:"edad" json:"edad,omitempty" validate:"omitempty,max=3"`
	Arl             *string `db:"arl" json:"arl,omitempty" validate:"omitempty,max=100"`
	Eps             *string `db:"eps" json:"eps,omitempty" validate:"omitempty,max=100"`
	FondoPension    *string `db:"fondo_pension" json:"fondoPension,omitempty" validate:"omitempty,max=100"`
	Rh              *string `db:"rh" json:"rh,omitempty" validate:"omitempty,max=10"`

	// vehicle and trailer
	PlacaVehiculo  *string `db:"placa_vehiculo" json:"placaVehiculo,omitempty" validate:"omitempty,max=20"`
	MarcaVehiculo  *string `db:"marca_vehiculo" json:"marcaVehiculo,omitempty" validate:"omitempty,max=50"`
	LineaVehiculo  *string `db:"linea_vehiculo" json:"lineaVehiculo,omitempty" validate:"omitempty,max=50"`
	ModeloVehiculo *string `db:"modelo_vehiculo" json:"modeloVehiculo,omitempty" validate:"omitempty,max=20"`
	PlacaRemolque  *string `db:"placa_remolque" json:"placaRemolque,omitempty" validate:"omitempty,max=20"`
	MarcaRemolque  *string `db:"marca_remolque" json:"marcaRemolque,omitempty" validate:"omitempty,max=50"`
	ClaseRemolque  *string `db:"clase_remolque" json:"claseRemolque,omitempty" validate:"omitempty,max=50"`
	ModeloRemolque *string `db:"modelo_remolque" json:"modeloRemolque,omitempty" validate:"omitempty,max=20"`

	// fitness
	HorasDormir       *string  `db:"horas_dormir" json:"horasDormir,omitempty" validate:"omitempty,max=10"`
	Kilometraje       JSONList `db:"kilometraje" json:"kilometraje"`
	TomaMedicacion    *string  `db:"toma_medicacion" json:"tomaMedicacion,omitempty" validate:"omitempty,max=10"`
	AnsiedadEstres    *string  `db:"ansiedad_estres" json:"ansiedadEstres,omitempty" validate:"omitempty,max=10"`
	ProblemasVisuales *string  `db:"problemas_visuales" json:"problemasVisuales,omitempty" validate:"omitempty,max=10"`
	EstadoSalud       *string  `db:"estado_salud" json:"estadoSalud,omitempty" validate:"omitempty,max=20"`

	SubmittedBy *string `db:"submitted_by" json:"submittedBy,omitempty"`
}

// InspectionFilter narrows the dashboard listing. Zero values mean no
// restriction; From and To compare against the submission time.
type InspectionFilter struct {
	Placa  string
	Cedula string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// InspectionStats are the dashboard counters.
type InspectionStats struct {
	Total     int64 `db:"total" json:"total"`
	ThisMonth int64 `db:"this_month" json:"esteMes"`
	Today     int64 `db:"today" json:"hoy"`
}
