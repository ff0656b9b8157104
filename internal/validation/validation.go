// Package validation checks request payloads and reports every failing
// field at once, the way the API returns them under "details". Rules are
// declared as `validate` struct tags and checked with go-playground/validator.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/equinox/fleet-inspections/internal/model"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is a list of field errors. A nil or empty list means valid.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when it is empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

// maxBytes limits the encoded length of a string, unlike max which counts
// characters.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// messages holds the user-facing text per field and tag. Tags missing
// here fall back to genericMessage.
var messages = map[string]string{
	"cedula.min":        "La cédula debe tener al menos 6 caracteres",
	"cedula.max":        "La cédula no puede exceder 20 caracteres",
	"cedula.number":     "La cédula solo puede contener números",
	"password.min":      "La contraseña debe tener al menos 4 caracteres",
	"password.max":      "La contraseña no puede exceder 100 caracteres",
	"password.maxbytes": "La contraseña no puede exceder 72 bytes",
	"nombre.min":        "El nombre debe tener al menos 2 caracteres",
	"nombre.max":        "El nombre no puede exceder 100 caracteres",
	"email.email":       "Email inválido",
	"telefono.max":      "Teléfono inválido",
	"rol.oneof":         "Rol inválido",
}

func genericMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return "Máximo " + fe.Param() + " caracteres"
	case "min":
		return "Mínimo " + fe.Param() + " caracteres"
	}
	return "Valor inválido"
}

// Struct validates v against its `validate` tags.
func Struct(v any) Errors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "body", Message: "Datos inválidos"}}
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = genericMessage(fe)
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// Credentials is the login request body.
type Credentials struct {
	Cedula   string `json:"cedula" validate:"min=6,max=20,number"`
	Password string `json:"password" validate:"min=4,max=100,maxbytes=72"`
}

// Login validates login credentials.
func Login(c Credentials) Errors {
	return Struct(c)
}

// NewUser is the input for provisioning an account.
type NewUser struct {
	Cedula   string     `json:"cedula" yaml:"cedula" validate:"min=6,max=20,number"`
	Password string     `json:"password" yaml:"password" validate:"min=4,max=100,maxbytes=72"`
	Nombre   string     `json:"nombre" yaml:"nombre" validate:"min=2,max=100"`
	Email    string     `json:"email,omitempty" yaml:"email" validate:"omitempty,email"`
	Telefono string     `json:"telefono,omitempty" yaml:"telefono" validate:"max=20"`
	Rol      model.Role `json:"rol,omitempty" yaml:"rol" validate:"oneof=conductor admin supervisor"`
	Activo   *bool      `json:"activo,omitempty" yaml:"activo"`
}

// Normalize fills defaults: role conductor and active true.
func (u *NewUser) Normalize() {
	u.Cedula = strings.TrimSpace(u.Cedula)
	u.Nombre = strings.TrimSpace(u.Nombre)
	u.Email = strings.TrimSpace(u.Email)
	u.Telefono = strings.TrimSpace(u.Telefono)
	if u.Rol == "" {
		u.Rol = model.RoleConductor
	}
	if u.Activo == nil {
		active := true
		u.Activo = &active
	}
}

// User validates a NewUser after Normalize.
func User(u NewUser) Errors {
	return Struct(u)
}

// Inspection validates the free-text fields of a submitted form against
// their column sizes.
func Inspection(in *model.Inspection) Errors {
	return Struct(in)
}
