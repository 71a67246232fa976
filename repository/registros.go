package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
	"github.com/jmoiron/sqlx"
)

const registroColumns = `id, numero_inspector, uuid, nombre, observaciones, status, region, flota,
	encargado, celular, correo, direccion, uso, departamento, ciudad, tecnologia, cmts_olt, id_servicio, mac_sn`

const insertRegistro = `INSERT INTO registros (numero_inspector, uuid, nombre, observaciones, status, region, flota,
	encargado, celular, correo, direccion, uso, departamento, ciudad, tecnologia, cmts_olt, id_servicio, mac_sn)
VALUES (:numero_inspector, :uuid, :nombre, :observaciones, :status, :region, :flota,
	:encargado, :celular, :correo, :direccion, :uso, :departamento, :ciudad, :tecnologia, :cmts_olt, :id_servicio, :mac_sn)
RETURNING id`

const updateRegistro = `UPDATE registros SET numero_inspector = :numero_inspector, uuid = :uuid, nombre = :nombre,
	observaciones = :observaciones, status = :status, region = :region, flota = :flota, encargado = :encargado,
	celular = :celular, correo = :correo, direccion = :direccion, uso = :uso, departamento = :departamento,
	ciudad = :ciudad, tecnologia = :tecnologia, cmts_olt = :cmts_olt, id_servicio = :id_servicio, mac_sn = :mac_sn
WHERE id = :id`

// Registros reads and writes the registros table.
type Registros struct {
	q sqlx.ExtContext
}

// NewRegistros creates a repository over db or a transaction.
func NewRegistros(q sqlx.ExtContext) *Registros {
	return &Registros{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Registros) WithTx(tx *sqlx.Tx) *Registros {
	return &Registros{q: tx}
}

// Get returns the registro with the given id.
func (r *Registros) Get(ctx context.Context, id int64) (models.Registro, error) {
	var reg models.Registro
	err := sqlx.GetContext(ctx, r.q, &reg, r.q.Rebind("SELECT "+registroColumns+" FROM registros WHERE id = ?"), id)
	return reg, wrap("get registro", err)
}

// List returns one filtered, sorted page of registros.
func (r *Registros) List(ctx context.Context, p ListParams) ([]models.Registro, error) {
	p = p.Normalize()
	where, args, err := whereClause(p.Filters)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + registroColumns + " FROM registros" + where + orderClause(p.SortBy, p.SortDir) + " LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	regs := []models.Registro{}
	if err := sqlx.SelectContext(ctx, r.q, &regs, r.q.Rebind(query), args...); err != nil {
		return nil, wrap("list registros", err)
	}
	return regs, nil
}

// All returns every registro ordered by id.
func (r *Registros) All(ctx context.Context) ([]models.Registro, error) {
	regs := []models.Registro{}
	err := sqlx.SelectContext(ctx, r.q, &regs, "SELECT "+registroColumns+" FROM registros ORDER BY id ASC")
	return regs, wrap("list all registros", err)
}

// Count returns the number of registros matching filters.
func (r *Registros) Count(ctx context.Context, filters map[string]string) (int64, error) {
	where, args, err := whereClause(filters)
	if err != nil {
		return 0, err
	}
	var n int64
	err = sqlx.GetContext(ctx, r.q, &n, r.q.Rebind("SELECT COUNT(*) FROM registros"+where), args...)
	return n, wrap("count registros", err)
}

// Distinct returns the ordered distinct non-null values of col, optionally
// restricted to values containing search.
func (r *Registros) Distinct(ctx context.Context, col, search string) ([]string, error) {
	if !isDistinctColumn(col) {
		return nil, inspector.NewValidationError("col", fmt.Sprintf("columna no permitida: %q", col))
	}

	query := "SELECT DISTINCT " + col + " FROM registros WHERE " + col + " IS NOT NULL"
	var args []any
	if search != "" {
		query += " AND LOWER(CAST(" + col + " AS TEXT)) LIKE LOWER(?)"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY " + col

	values := []string{}
	err := sqlx.SelectContext(ctx, r.q, &values, r.q.Rebind(query), args...)
	return values, wrap("distinct "+col, err)
}

// Create inserts reg and returns its new id.
func (r *Registros) Create(ctx context.Context, reg models.Registro) (int64, error) {
	query, args, err := r.q.BindNamed(insertRegistro, reg)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&id)
	return id, wrap("create registro", err)
}

// Update overwrites every column of the registro with reg.ID.
func (r *Registros) Update(ctx context.Context, reg models.Registro) error {
	query, args, err := r.q.BindNamed(updateRegistro, reg)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("update registro", err)
	}
	return requireRow("update registro", res.RowsAffected)
}

// Delete removes the registro with the given id.
func (r *Registros) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM registros WHERE id = ?"), id)
	if err != nil {
		return wrap("delete registro", err)
	}
	return requireRow("delete registro", res.RowsAffected)
}

// DeleteAll empties the table and returns how many rows were removed.
func (r *Registros) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM registros")
	if err != nil {
		return 0, wrap("delete all registros", err)
	}
	return res.RowsAffected()
}

// NumeroInspectorTaken reports whether another registro already uses numero.
// excludeID skips the registro being updated; zero excludes nothing.
func (r *Registros) NumeroInspectorTaken(ctx context.Context, numero, excludeID int64) (bool, error) {
	return r.exists(ctx, "numero_inspector = ?", numero, excludeID)
}

// NombreTaken reports whether another registro already uses nombre.
func (r *Registros) NombreTaken(ctx context.Context, nombre string, excludeID int64) (bool, error) {
	return r.exists(ctx, "nombre = ?", nombre, excludeID)
}

func (r *Registros) exists(ctx context.Context, cond string, value any, excludeID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM registros WHERE " + cond
	args := []any{value}
	if excludeID != 0 {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(query), args...); err != nil {
		return false, wrap("check "+strings.Fields(cond)[0], err)
	}
	return n > 0, nil
}

func isDistinctColumn(col string) bool {
	for _, c := range models.DistinctColumns {
		if c == col {
			return true
		}
	}
	return false
}

func requireRow(op string, rowsAffected func() (int64, error)) error {
	n, err := rowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, inspector.ErrNotFound)
	}
	return nil
}
