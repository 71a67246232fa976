package models

import "strconv"

// FieldChange is one field whose value differs between two versions of a record.
type FieldChange struct {
	Field string `json:"campo"`
	Old   string `json:"valor_anterior"`
	New   string `json:"valor_nuevo"`
}

type differ []FieldChange

func (d *differ) str(field, old, new string) {
	if old != new {
		*d = append(*d, FieldChange{Field: field, Old: old, New: new})
	}
}

func (d *differ) int(field string, old, new int64) {
	if old != new {
		*d = append(*d, FieldChange{Field: field, Old: strconv.FormatInt(old, 10), New: strconv.FormatInt(new, 10)})
	}
}

func (d *differ) bool(field string, old, new bool) {
	if old != new {
		*d = append(*d, FieldChange{Field: field, Old: strconv.FormatBool(old), New: strconv.FormatBool(new)})
	}
}

// DiffRegistro lists the fields that differ between old and new, in column order.
// ID is not compared.
func DiffRegistro(old, new Registro) []FieldChange {
	var d differ
	d.int("numero_inspector", old.NumeroInspector, new.NumeroInspector)
	d.str("uuid", deref(old.UUID), deref(new.UUID))
	d.str("nombre", old.Nombre, new.Nombre)
	d.str("observaciones", old.Observaciones, new.Observaciones)
	d.str("status", old.Status, new.Status)
	d.str("region", old.Region, new.Region)
	d.str("flota", old.Flota, new.Flota)
	d.str("encargado", old.Encargado, new.Encargado)
	d.str("celular", old.Celular, new.Celular)
	d.str("correo", old.Correo, new.Correo)
	d.str("direccion", old.Direccion, new.Direccion)
	d.str("uso", old.Uso, new.Uso)
	d.str("departamento", old.Departamento, new.Departamento)
	d.str("ciudad", old.Ciudad, new.Ciudad)
	d.str("tecnologia", old.Tecnologia, new.Tecnologia)
	d.str("cmts_olt", old.CmtsOlt, new.CmtsOlt)
	d.str("id_servicio", old.IDServicio, new.IDServicio)
	d.str("mac_sn", old.MacSN, new.MacSN)
	return d
}

// DiffUsuario lists the profile fields that differ between old and new.
// Password hashes and timestamps are not compared.
func DiffUsuario(old, new Usuario) []FieldChange {
	var d differ
	d.str("username", old.Username, new.Username)
	d.str("email", old.Email, new.Email)
	d.str("nombre", old.Nombre, new.Nombre)
	d.str("apellido", old.Apellido, new.Apellido)
	d.str("rol", old.Rol, new.Rol)
	d.str("foto_perfil", old.FotoPerfil, new.FotoPerfil)
	d.bool("activo", old.Activo, new.Activo)
	return d
}
