package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/repository"
)

var validate = validator.New()

// insNumber captures the whole digit run after each "ins".
var insNumber = regexp.MustCompile(`(?i)ins([0-9]+)`)

const forbiddenChars = `<>&"'\/|;:*?`

// minLengthFields must have at least three characters in a complete registro.
var minLengthFields = []string{
	"nombre", "status", "observaciones", "flota", "uso", "encargado", "region",
	"departamento", "ciudad", "direccion", "id_servicio", "tecnologia", "cmts_olt", "mac_sn",
}

// NombreMatchesNumero reports whether nombre carries the inspector number:
// "ins<n>" not followed by another digit, or "ins0<n>" for single-digit numbers.
func NombreMatchesNumero(nombre string, numero int64) bool {
	if numero <= 0 {
		return false
	}
	n := strconv.FormatInt(numero, 10)
	for _, m := range insNumber.FindAllStringSubmatch(nombre, -1) {
		if m[1] == n || (numero < 10 && m[1] == "0"+n) {
			return true
		}
	}
	return false
}

// ValidCelular reports whether celular holds exactly ten digits once
// separators are stripped.
func ValidCelular(celular string) bool {
	digits := 0
	for _, r := range celular {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits == 10
}

// ValidCorreo reports whether correo looks like an email address.
func ValidCorreo(correo string) bool {
	return validate.Var(correo, "required,email") == nil
}

// validateRegistro checks the field rules of r. complete additionally applies
// the rules of the create/update API: every text field has at least three
// characters and correo is required. CSV rows are checked with complete=false.
func validateRegistro(r models.Registro, complete bool) *inspector.ValidationError {
	verr := &inspector.ValidationError{}

	if r.NumeroInspector <= 0 {
		verr.Add("numero_inspector", "El número de inspector debe ser mayor que 0")
	} else if strings.TrimSpace(r.Nombre) != "" && !NombreMatchesNumero(r.Nombre, r.NumeroInspector) {
		verr.Add("nombre", fmt.Sprintf("El nombre debe contener 'ins%d'", r.NumeroInspector))
	}

	for _, f := range []struct{ name, value string }{{"nombre", r.Nombre}, {"status", r.Status}} {
		if strings.TrimSpace(f.value) == "" {
			verr.Add(f.name, fmt.Sprintf("El campo '%s' es requerido y no puede estar vacío", f.name))
			continue
		}
		if i := strings.IndexAny(f.value, forbiddenChars); i >= 0 {
			verr.Add(f.name, fmt.Sprintf("El campo '%s' no puede contener el carácter '%c'", f.name, f.value[i]))
		}
	}

	if complete {
		for _, col := range minLengthFields {
			v, _ := r.Field(col)
			v = strings.TrimSpace(v)
			if v == "" && (col == "nombre" || col == "status") {
				continue // already reported as required
			}
			if utf8.RuneCountInString(v) < 3 {
				verr.Add(col, fmt.Sprintf("El campo '%s' debe tener al menos 3 caracteres", col))
			}
		}
	}

	if r.Celular != "" && !ValidCelular(r.Celular) {
		verr.Add("celular", fmt.Sprintf("El celular '%s' debe tener exactamente 10 dígitos", r.Celular))
	} else if r.Celular == "" && complete {
		verr.Add("celular", "El celular es requerido")
	}

	if r.Correo != "" && !ValidCorreo(r.Correo) {
		verr.Add("correo", fmt.Sprintf("El correo '%s' no tiene un formato de email válido", r.Correo))
	} else if r.Correo == "" && complete {
		verr.Add("correo", "El correo es requerido")
	}

	return verr
}

// checkDuplicates adds an error for each unique column r shares with another
// registro. excludeID is the registro being updated.
func checkDuplicates(ctx context.Context, repo *repository.Registros, r models.Registro, excludeID int64, verr *inspector.ValidationError) error {
	if r.NumeroInspector > 0 {
		taken, err := repo.NumeroInspectorTaken(ctx, r.NumeroInspector, excludeID)
		if err != nil {
			return err
		}
		if taken {
			verr.Add("numero_inspector", fmt.Sprintf("Ya existe un registro con numero_inspector=%d", r.NumeroInspector))
		}
	}
	if r.Nombre != "" {
		taken, err := repo.NombreTaken(ctx, r.Nombre, excludeID)
		if err != nil {
			return err
		}
		if taken {
			verr.Add("nombre", fmt.Sprintf("Ya existe un registro con nombre='%s'", r.Nombre))
		}
	}
	return nil
}
