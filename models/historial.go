package models

import "time"

// Actions recorded in HistorialCambio.
const (
	AccionCreacion    = "creacion"
	AccionEdicion     = "edicion"
	AccionEliminacion = "eliminacion"
)

// Actions recorded in HistorialUsuario, in addition to the ones above.
const (
	AccionActivacion          = "activacion"
	AccionDesactivacion       = "desactivacion"
	AccionRestablecerPassword = "restablecer_password"
	AccionCambioPassword      = "cambio_password"
	AccionEdicionPerfil       = "edicion_perfil"
)

// HistorialCambio is one audited change to a registro.
type HistorialCambio struct {
	ID              int64     `db:"id" json:"id"`
	NumeroInspector int64     `db:"numero_inspector" json:"numero_inspector"`
	Fecha           time.Time `db:"fecha" json:"fecha"`
	Usuario         string    `db:"usuario" json:"usuario"`
	Accion          string    `db:"accion" json:"accion"`
	Campo           string    `db:"campo" json:"campo"`
	ValorAnterior   string    `db:"valor_anterior" json:"valor_anterior"`
	ValorNuevo      string    `db:"valor_nuevo" json:"valor_nuevo"`
	Descripcion     string    `db:"descripcion" json:"descripcion"`
}

// HistorialUsuario is one audited change to a usuario, made by an admin.
type HistorialUsuario struct {
	ID            int64     `db:"id" json:"id"`
	UsuarioID     int64     `db:"usuario_id" json:"usuario_id"`
	Fecha         time.Time `db:"fecha" json:"fecha"`
	Admin         string    `db:"admin_que_realizo_cambio" json:"admin_que_realizo_cambio"`
	Accion        string    `db:"accion" json:"accion"`
	Campo         string    `db:"campo" json:"campo"`
	ValorAnterior string    `db:"valor_anterior" json:"valor_anterior"`
	ValorNuevo    string    `db:"valor_nuevo" json:"valor_nuevo"`
	Descripcion   string    `db:"descripcion" json:"descripcion"`
}
