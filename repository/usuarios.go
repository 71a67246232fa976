package repository

import (
	"context"

	"github.com/huykn/inspector/models"
	"github.com/jmoiron/sqlx"
)

const usuarioColumns = `id, username, email, password_hash, nombre, apellido, rol, foto_perfil, activo, fecha_creacion`

// Usuarios reads and writes the usuarios table.
type Usuarios struct {
	q sqlx.ExtContext
}

// NewUsuarios creates a repository over db or a transaction.
func NewUsuarios(q sqlx.ExtContext) *Usuarios {
	return &Usuarios{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Usuarios) WithTx(tx *sqlx.Tx) *Usuarios {
	return &Usuarios{q: tx}
}

// Get returns the usuario with the given id.
func (r *Usuarios) Get(ctx context.Context, id int64) (models.Usuario, error) {
	var u models.Usuario
	err := sqlx.GetContext(ctx, r.q, &u, r.q.Rebind("SELECT "+usuarioColumns+" FROM usuarios WHERE id = ?"), id)
	return u, wrap("get usuario", err)
}

// GetByLogin returns the usuario whose username or email equals login.
func (r *Usuarios) GetByLogin(ctx context.Context, login string) (models.Usuario, error) {
	var u models.Usuario
	err := sqlx.GetContext(ctx, r.q, &u,
		r.q.Rebind("SELECT "+usuarioColumns+" FROM usuarios WHERE username = ? OR email = ? ORDER BY id LIMIT 1"), login, login)
	return u, wrap("get usuario by login", err)
}

// GetByUsername returns the usuario with the given username.
func (r *Usuarios) GetByUsername(ctx context.Context, username string) (models.Usuario, error) {
	var u models.Usuario
	err := sqlx.GetContext(ctx, r.q, &u, r.q.Rebind("SELECT "+usuarioColumns+" FROM usuarios WHERE username = ?"), username)
	return u, wrap("get usuario by username", err)
}

// List returns usuarios ordered by id. With activeOnly, deactivated accounts are skipped.
func (r *Usuarios) List(ctx context.Context, activeOnly bool) ([]models.Usuario, error) {
	query := "SELECT " + usuarioColumns + " FROM usuarios"
	var args []any
	if activeOnly {
		query += " WHERE activo = ?"
		args = append(args, true)
	}
	query += " ORDER BY id ASC"

	users := []models.Usuario{}
	err := sqlx.SelectContext(ctx, r.q, &users, r.q.Rebind(query), args...)
	return users, wrap("list usuarios", err)
}

// Count returns the number of usuarios.
func (r *Usuarios) Count(ctx context.Context) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM usuarios")
	return n, wrap("count usuarios", err)
}

// Taken reports whether another usuario already has username or email.
// excludeID skips the usuario being updated; zero excludes nothing.
func (r *Usuarios) Taken(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM usuarios WHERE (username = ? OR email = ?)"
	args := []any{username, email}
	if excludeID != 0 {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(query), args...); err != nil {
		return false, wrap("check usuario", err)
	}
	return n > 0, nil
}

// Create inserts u and returns its new id.
func (r *Usuarios) Create(ctx context.Context, u models.Usuario) (int64, error) {
	u.FechaCreacion = u.FechaCreacion.UTC()
	query, args, err := r.q.BindNamed(`INSERT INTO usuarios (username, email, password_hash, nombre, apellido, rol, foto_perfil, activo, fecha_creacion)
VALUES (:username, :email, :password_hash, :nombre, :apellido, :rol, :foto_perfil, :activo, :fecha_creacion)
RETURNING id`, u)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&id)
	return id, wrap("create usuario", err)
}

// Update overwrites the profile columns of the usuario with u.ID.
// The password hash is changed only through SetPassword.
func (r *Usuarios) Update(ctx context.Context, u models.Usuario) error {
	query, args, err := r.q.BindNamed(`UPDATE usuarios SET username = :username, email = :email, nombre = :nombre,
	apellido = :apellido, rol = :rol, foto_perfil = :foto_perfil, activo = :activo
WHERE id = :id`, u)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("update usuario", err)
	}
	return requireRow("update usuario", res.RowsAffected)
}

// SetPassword replaces the password hash of the usuario with id.
func (r *Usuarios) SetPassword(ctx context.Context, id int64, hash string) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("UPDATE usuarios SET password_hash = ? WHERE id = ?"), hash, id)
	if err != nil {
		return wrap("set password", err)
	}
	return requireRow("set password", res.RowsAffected)
}

// Delete removes the usuario with id.
func (r *Usuarios) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM usuarios WHERE id = ?"), id)
	if err != nil {
		return wrap("delete usuario", err)
	}
	return requireRow("delete usuario", res.RowsAffected)
}
