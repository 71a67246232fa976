package models

import "strconv"

// Registro is one inspection record.
type Registro struct {
	ID              int64   `db:"id" json:"id"`
	NumeroInspector int64   `db:"numero_inspector" json:"numero_inspector"`
	UUID            *string `db:"uuid" json:"uuid"`
	Nombre          string  `db:"nombre" json:"nombre"`
	Observaciones   string  `db:"observaciones" json:"observaciones"`
	Status          string  `db:"status" json:"status"`
	Region          string  `db:"region" json:"region"`
	Flota           string  `db:"flota" json:"flota"`
	Encargado       string  `db:"encargado" json:"encargado"`
	Celular         string  `db:"celular" json:"celular"`
	Correo          string  `db:"correo" json:"correo"`
	Direccion       string  `db:"direccion" json:"direccion"`
	Uso             string  `db:"uso" json:"uso"`
	Departamento    string  `db:"departamento" json:"departamento"`
	Ciudad          string  `db:"ciudad" json:"ciudad"`
	Tecnologia      string  `db:"tecnologia" json:"tecnologia"`
	CmtsOlt         string  `db:"cmts_olt" json:"cmts_olt"`
	IDServicio      string  `db:"id_servicio" json:"id_servicio"`
	MacSN           string  `db:"mac_sn" json:"mac_sn"`
}

// RegistroColumns lists every filterable and sortable column in table order.
var RegistroColumns = []string{
	"id", "numero_inspector", "uuid", "nombre", "observaciones", "status", "region", "flota",
	"encargado", "celular", "correo", "direccion", "uso", "departamento",
	"ciudad", "tecnologia", "cmts_olt", "id_servicio", "mac_sn",
}

// DistinctColumns lists the columns whose distinct values may be queried.
var DistinctColumns = []string{
	"numero_inspector", "nombre", "observaciones", "status", "region",
	"flota", "encargado", "celular", "correo", "direccion", "uso",
	"departamento", "ciudad", "tecnologia", "cmts_olt", "id_servicio", "mac_sn",
}

// DisplayLabels maps columns to the headers used by the labelled CSV export.
var DisplayLabels = []struct {
	Column string
	Label  string
}{
	{"numero_inspector", "Número de inspector"},
	{"uuid", "UUID"},
	{"nombre", "Nombre"},
	{"observaciones", "Observaciones"},
	{"status", "Status"},
	{"region", "Región"},
	{"flota", "Flota"},
	{"encargado", "Encargado"},
	{"celular", "Celular"},
	{"correo", "Correo"},
	{"direccion", "Dirección"},
	{"uso", "Uso"},
	{"departamento", "Departamento"},
	{"ciudad", "Ciudad"},
	{"tecnologia", "Tecnología"},
	{"cmts_olt", "CMTS/OLT"},
	{"id_servicio", "ID Servicio"},
	{"mac_sn", "MAC/SN"},
}

// IsRegistroColumn reports whether col names a registros column.
func IsRegistroColumn(col string) bool {
	for _, c := range RegistroColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Field returns the string form of the named column, and false for unknown columns.
func (r *Registro) Field(col string) (string, bool) {
	switch col {
	case "id":
		return strconv.FormatInt(r.ID, 10), true
	case "numero_inspector":
		return strconv.FormatInt(r.NumeroInspector, 10), true
	case "uuid":
		return deref(r.UUID), true
	case "nombre":
		return r.Nombre, true
	case "observaciones":
		return r.Observaciones, true
	case "status":
		return r.Status, true
	case "region":
		return r.Region, true
	case "flota":
		return r.Flota, true
	case "encargado":
		return r.Encargado, true
	case "celular":
		return r.Celular, true
	case "correo":
		return r.Correo, true
	case "direccion":
		return r.Direccion, true
	case "uso":
		return r.Uso, true
	case "departamento":
		return r.Departamento, true
	case "ciudad":
		return r.Ciudad, true
	case "tecnologia":
		return r.Tecnologia, true
	case "cmts_olt":
		return r.CmtsOlt, true
	case "id_servicio":
		return r.IDServicio, true
	case "mac_sn":
		return r.MacSN, true
	}
	return "", false
}

// RegistroPatch holds a partial update. Nil fields are left unchanged.
type RegistroPatch struct {
	NumeroInspector *int64  `json:"numero_inspector"`
	UUID            *string `json:"uuid"`
	Nombre          *string `json:"nombre"`
	Observaciones   *string `json:"observaciones"`
	Status          *string `json:"status"`
	Region          *string `json:"region"`
	Flota           *string `json:"flota"`
	Encargado       *string `json:"encargado"`
	Celular         *string `json:"celular"`
	Correo          *string `json:"correo"`
	Direccion       *string `json:"direccion"`
	Uso             *string `json:"uso"`
	Departamento    *string `json:"departamento"`
	Ciudad          *string `json:"ciudad"`
	Tecnologia      *string `json:"tecnologia"`
	CmtsOlt         *string `json:"cmts_olt"`
	IDServicio      *string `json:"id_servicio"`
	MacSN           *string `json:"mac_sn"`
}

// Apply returns a copy of r with every set field of p written over it.
func (p RegistroPatch) Apply(r Registro) Registro {
	if p.NumeroInspector != nil {
		r.NumeroInspector = *p.NumeroInspector
	}
	if p.UUID != nil {
		v := *p.UUID
		r.UUID = &v
	}
	setString(&r.Nombre, p.Nombre)
	setString(&r.Observaciones, p.Observaciones)
	setString(&r.Status, p.Status)
	setString(&r.Region, p.Region)
	setString(&r.Flota, p.Flota)
	setString(&r.Encargado, p.Encargado)
	setString(&r.Celular, p.Celular)
	setString(&r.Correo, p.Correo)
	setString(&r.Direccion, p.Direccion)
	setString(&r.Uso, p.Uso)
	setString(&r.Departamento, p.Departamento)
	setString(&r.Ciudad, p.Ciudad)
	setString(&r.Tecnologia, p.Tecnologia)
	setString(&r.CmtsOlt, p.CmtsOlt)
	setString(&r.IDServicio, p.IDServicio)
	setString(&r.MacSN, p.MacSN)
	return r
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
