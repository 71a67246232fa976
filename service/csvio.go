package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
)

const utf8BOM = "\ufeff"

// candidate CSV separators, in detection order.
var separators = []rune{',', ';', '\t', '|'}

// requiredUploadColumns must be present in every uploaded file.
var requiredUploadColumns = []string{"numero_inspector", "nombre", "status"}

// headerAliases maps accepted upload headers onto column names.
var headerAliases = map[string]string{
	"Número de inspector": "numero_inspector",
	"Número Inspector":    "numero_inspector",
	"Numero de inspector": "numero_inspector",
	"Numero Inspector":    "numero_inspector",
	"Número":              "numero_inspector",
	"Numero":              "numero_inspector",

	"Nombre": "nombre",
	"Name":   "nombre",

	"Status":              "status",
	"Estado":              "status",
	"Estado del registro": "status",

	"Observaciones": "observaciones",
	"Observación":   "observaciones",
	"Observacion":   "observaciones",

	"Región": "region",
	"Region": "region",

	"Flota": "flota",

	"Encargado":  "encargado",
	"Supervisor": "encargado",

	"Celular":  "celular",
	"Teléfono": "celular",
	"Telefono": "celular",
	"Phone":    "celular",

	"Correo": "correo",
	"Email":  "correo",
	"E-mail": "correo",

	"Dirección": "direccion",
	"Direccion": "direccion",
	"Address":   "direccion",

	"Uso": "uso",
	"Use": "uso",

	"Departamento": "departamento",
	"Depto":        "departamento",

	"Ciudad": "ciudad",
	"City":   "ciudad",

	"Tecnología": "tecnologia",
	"Tecnologia": "tecnologia",
	"Technology": "tecnologia",

	"CMTS/OLT": "cmts_olt",
	"CMTS OLT": "cmts_olt",
	"CMTS":     "cmts_olt",

	"ID Servicio":    "id_servicio",
	"ID de Servicio": "id_servicio",
	"Id Servicio":    "id_servicio",
	"Service ID":     "id_servicio",

	"MAC/SN":        "mac_sn",
	"MAC SN":        "mac_sn",
	"MAC":           "mac_sn",
	"Serial Number": "mac_sn",

	"UUID": "uuid",
}

// ErrCSVFormat is returned when an upload cannot be read as CSV.
var ErrCSVFormat = errors.New("formato CSV no válido")

// RowError describes one rejected cell of an upload.
type RowError struct {
	Fila    int    `json:"fila"`
	Columna string `json:"columna"`
	Valor   string `json:"valor"`
	Error   string `json:"error"`
}

// UploadError rejects a whole upload. It wraps inspector.ErrValidation.
type UploadError struct {
	Message string     `json:"error"`
	Errores []RowError `json:"errores,omitempty"`
}

func (e *UploadError) Error() string {
	if len(e.Errores) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %d errores", e.Message, len(e.Errores))
}

func (e *UploadError) Unwrap() error { return inspector.ErrValidation }

// WriteRegistrosCSV writes regs as CSV. The labelled form starts with a UTF-8
// BOM and uses display headers; the raw form uses column names and includes id.
func WriteRegistrosCSV(w io.Writer, regs []models.Registro, labelled bool) error {
	var cols, header []string
	if labelled {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
		for _, l := range models.DisplayLabels {
			cols = append(cols, l.Column)
			header = append(header, l.Label)
		}
	} else {
		cols = models.RegistroColumns
		header = models.RegistroColumns
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for i := range regs {
		for j, col := range cols {
			row[j], _ = regs[i].Field(col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseRegistrosCSV reads an upload into registros. Row-level problems are
// collected into an *UploadError rather than stopping at the first one.
func ParseRegistrosCSV(data []byte) ([]models.Registro, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	sep, ok := detectSeparator(data)
	if !ok {
		return nil, fmt.Errorf("%w: no se pudo detectar el separador (coma, punto y coma, tabulador o barra)", ErrCSVFormat)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCSVFormat, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: archivo vacío", ErrCSVFormat)
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col := cleanHeader(h)
		if alias, ok := headerAliases[col]; ok {
			col = alias
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}

	var missing []string
	for _, col := range requiredUploadColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &UploadError{Message: "Faltan columnas requeridas: " + strings.Join(missing, ", ")}
	}

	rows := records[1:]
	if dups := duplicateValues(rows, index["numero_inspector"]); len(dups) > 0 {
		return nil, &UploadError{Message: "Hay valores duplicados en la columna 'Número de inspector': " + strings.Join(dups, ", ")}
	}

	labels := make(map[string]string, len(models.DisplayLabels))
	for _, l := range models.DisplayLabels {
		labels[l.Column] = l.Label
	}

	regs := make([]models.Registro, 0, len(rows))
	var rowErrs []RowError
	for i, rec := range rows {
		fila := i + 2
		cell := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		if isBlank(rec) {
			continue
		}

		reg := models.Registro{
			Nombre:        cell("nombre"),
			Observaciones: cell("observaciones"),
			Status:        cell("status"),
			Region:        cell("region"),
			Flota:         cell("flota"),
			Encargado:     cell("encargado"),
			Celular:       cell("celular"),
			Correo:        cell("correo"),
			Direccion:     cell("direccion"),
			Uso:           cell("uso"),
			Departamento:  cell("departamento"),
			Ciudad:        cell("ciudad"),
			Tecnologia:    cell("tecnologia"),
			CmtsOlt:       cell("cmts_olt"),
			IDServicio:    cell("id_servicio"),
			MacSN:         cell("mac_sn"),
		}
		if v := cell("uuid"); v != "" {
			reg.UUID = &v
		}

		numero, ok := parseNumero(cell("numero_inspector"))
		if !ok {
			rowErrs = append(rowErrs, RowError{Fila: fila, Columna: labels["numero_inspector"], Valor: cell("numero_inspector"), Error: "Debe ser numérico"})
			continue
		}
		reg.NumeroInspector = numero

		if verr := validateRegistro(reg, false); len(verr.Errors) > 0 {
			for _, fe := range verr.Errors {
				v, _ := reg.Field(fe.Field)
				rowErrs = append(rowErrs, RowError{Fila: fila, Columna: labels[fe.Field], Valor: v, Error: fe.Message})
			}
			continue
		}
		regs = append(regs, reg)
	}

	if len(rowErrs) > 0 {
		return nil, &UploadError{Message: "Errores de validación por columna", Errores: rowErrs}
	}
	return regs, nil
}

// detectSeparator returns the first candidate that splits the header into at
// least two columns.
func detectSeparator(data []byte) (rune, bool) {
	line, err := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, false
	}
	for _, sep := range separators {
		r := csv.NewReader(strings.NewReader(line))
		r.Comma = sep
		r.LazyQuotes = true
		header, err := r.Read()
		if err == nil && len(header) >= 2 {
			return sep, true
		}
	}
	return 0, false
}

func cleanHeader(h string) string {
	h = strings.ReplaceAll(h, utf8BOM, "")
	h = strings.ReplaceAll(h, "\u200b", "")
	return strings.TrimSpace(h)
}

// parseNumero accepts integers, tolerating a ".0" suffix left by spreadsheets.
func parseNumero(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

func duplicateValues(rows [][]string, idx int) []string {
	seen := make(map[string]int, len(rows))
	var dups []string
	for _, rec := range rows {
		if idx >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[idx])
		if v == "" {
			continue
		}
		seen[v]++
		if seen[v] == 2 {
			dups = append(dups, v)
		}
	}
	return dups
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Importer replaces the registros table with the contents of an upload.
type Importer struct {
	registros *Registros
	maxSize   int64
}

// NewImporter creates an Importer. maxSize bounds the upload in bytes; zero disables the bound.
func NewImporter(registros *Registros, maxSize int64) *Importer {
	return &Importer{registros: registros, maxSize: maxSize}
}

// Upload parses data and, when every row is valid, replaces all registros with it.
func (im *Importer) Upload(ctx context.Context, actor string, data []byte) (int, error) {
	if im.maxSize > 0 && int64(len(data)) > im.maxSize {
		return 0, &UploadError{Message: fmt.Sprintf("El archivo excede el tamaño máximo de %d bytes", im.maxSize)}
	}
	regs, err := ParseRegistrosCSV(data)
	if err != nil {
		return 0, err
	}
	return im.registros.Replace(ctx, actor, regs)
}
