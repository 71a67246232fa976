package repository

import (
	"context"
	"time"

	"github.com/huykn/inspector/models"
	"github.com/jmoiron/sqlx"
)

const cambioColumns = `id, numero_inspector, fecha, usuario, accion, campo, valor_anterior, valor_nuevo, descripcion`

const usuarioCambioColumns = `id, usuario_id, fecha, admin_que_realizo_cambio, accion, campo, valor_anterior, valor_nuevo, descripcion`

// Historial reads and writes the audit tables.
type Historial struct {
	q sqlx.ExtContext
}

// NewHistorial creates a repository over db or a transaction.
func NewHistorial(q sqlx.ExtContext) *Historial {
	return &Historial{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Historial) WithTx(tx *sqlx.Tx) *Historial {
	return &Historial{q: tx}
}

// AddCambios records registro changes.
func (r *Historial) AddCambios(ctx context.Context, cambios ...models.HistorialCambio) error {
	for _, c := range cambios {
		c.Fecha = c.Fecha.UTC()
		_, err := sqlx.NamedExecContext(ctx, r.q, `INSERT INTO historial_cambios
	(numero_inspector, fecha, usuario, accion, campo, valor_anterior, valor_nuevo, descripcion)
VALUES (:numero_inspector, :fecha, :usuario, :accion, :campo, :valor_anterior, :valor_nuevo, :descripcion)`, c)
		if err != nil {
			return wrap("add historial cambio", err)
		}
	}
	return nil
}

// CambiosSince returns the changes of one inspector at or after since, newest first.
func (r *Historial) CambiosSince(ctx context.Context, numeroInspector int64, since time.Time) ([]models.HistorialCambio, error) {
	cambios := []models.HistorialCambio{}
	err := sqlx.SelectContext(ctx, r.q, &cambios, r.q.Rebind("SELECT "+cambioColumns+
		" FROM historial_cambios WHERE numero_inspector = ? AND fecha >= ? ORDER BY fecha DESC, id DESC"),
		numeroInspector, since.UTC())
	return cambios, wrap("list historial", err)
}

// AllCambios returns every registro change, newest first.
func (r *Historial) AllCambios(ctx context.Context) ([]models.HistorialCambio, error) {
	cambios := []models.HistorialCambio{}
	err := sqlx.SelectContext(ctx, r.q, &cambios, "SELECT "+cambioColumns+" FROM historial_cambios ORDER BY fecha DESC, id DESC")
	return cambios, wrap("list all historial", err)
}

// AddUsuarioCambios records usuario changes.
func (r *Historial) AddUsuarioCambios(ctx context.Context, cambios ...models.HistorialUsuario) error {
	for _, c := range cambios {
		c.Fecha = c.Fecha.UTC()
		_, err := sqlx.NamedExecContext(ctx, r.q, `INSERT INTO historial_usuarios
	(usuario_id, fecha, admin_que_realizo_cambio, accion, campo, valor_anterior, valor_nuevo, descripcion)
VALUES (:usuario_id, :fecha, :admin_que_realizo_cambio, :accion, :campo, :valor_anterior, :valor_nuevo, :descripcion)`, c)
		if err != nil {
			return wrap("add historial usuario", err)
		}
	}
	return nil
}

// UsuarioCambios returns the changes made to one usuario, newest first.
func (r *Historial) UsuarioCambios(ctx context.Context, usuarioID int64) ([]models.HistorialUsuario, error) {
	cambios := []models.HistorialUsuario{}
	err := sqlx.SelectContext(ctx, r.q, &cambios, r.q.Rebind("SELECT "+usuarioCambioColumns+
		" FROM historial_usuarios WHERE usuario_id = ? ORDER BY fecha DESC, id DESC"), usuarioID)
	return cambios, wrap("list historial usuario", err)
}

// DeleteUsuarioCambios removes the audit trail of a deleted usuario.
func (r *Historial) DeleteUsuarioCambios(ctx context.Context, usuarioID int64) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM historial_usuarios WHERE usuario_id = ?"), usuarioID)
	return wrap("delete historial usuario", err)
}
