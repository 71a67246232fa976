package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/storage"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := storage.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(db))
	return db
}

func registro(n int64, region string) models.Registro {
	return models.Registro{
		NumeroInspector: n,
		Nombre:          fmt.Sprintf("ins%d-%s", n, region),
		Observaciones:   "sin novedad",
		Status:          "activo",
		Region:          region,
		Flota:           "flota",
		Encargado:       "perez",
		Celular:         "5512345678",
		Correo:          "perez@example.com",
		Direccion:       "calle 1",
		Uso:             "Residencial",
		Departamento:    "ventas",
		Ciudad:          "monterrey",
		Tecnologia:      "fibra",
		CmtsOlt:         "olt",
		IDServicio:      "svc",
		MacSN:           "AA:BB",
	}
}

func seed(t *testing.T, repo *Registros, regs ...models.Registro) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(regs))
	for _, r := range regs {
		id, err := repo.Create(context.Background(), r)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRegistrosCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistros(newTestDB(t))

	uid := "7d0c1f2a-0000-4000-8000-000000000001"
	r := registro(12, "norte")
	r.UUID = &uid
	id, err := repo.Create(ctx, r)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	r.ID = id
	assert.Equal(t, r, got)

	got.Region = "sur"
	require.NoError(t, repo.Update(ctx, got))
	got2, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sur", got2.Region)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, inspector.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), inspector.ErrNotFound)

	missing := registro(99, "x")
	missing.ID = 12345
	assert.ErrorIs(t, repo.Update(ctx, missing), inspector.ErrNotFound)
}

func TestRegistrosUniqueConstraint(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistros(newTestDB(t))

	seed(t, repo, registro(12, "norte"))

	dup := registro(12, "sur")
	_, err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, inspector.ErrConflict)
}

func TestRegistrosListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistros(newTestDB(t))
	seed(t, repo, registro(10, "Norte"), registro(2, "norte-bajo"), registro(33, "Sur"))

	regs, err := repo.List(ctx, ListParams{Filters: map[string]string{"region": "NORTE"}})
	require.NoError(t, err)
	assert.Len(t, regs, 2, "contains match is case-insensitive")

	regs, err = repo.List(ctx, ListParams{Filters: map[string]string{"region": ExactPrefix + "Norte"}})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, int64(10), regs[0].NumeroInspector)

	regs, err = repo.List(ctx, ListParams{Filters: map[string]string{"numero_inspector": ExactPrefix + "3"}})
	require.NoError(t, err)
	assert.Empty(t, regs, "exact match on 3 must not match 33")

	// Same value on several columns is a global search: OR.
	regs, err = repo.List(ctx, ListParams{Filters: map[string]string{"region": "sur", "nombre": "sur"}})
	require.NoError(t, err)
	assert.Len(t, regs, 1)
	regs, err = repo.List(ctx, ListParams{Filters: map[string]string{"region": "3", "numero_inspector": "3"}})
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	// Different values: AND.
	regs, err = repo.List(ctx, ListParams{Filters: map[string]string{"region": "norte", "numero_inspector": "2"}})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, int64(2), regs[0].NumeroInspector)

	_, err = repo.List(ctx, ListParams{Filters: map[string]string{"velocidad": "x"}})
	assert.ErrorIs(t, err, inspector.ErrValidation)
}

func TestRegistrosListSortAndPaginate(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistros(newTestDB(t))
	seed(t, repo, registro(10, "a"), registro(2, "b"), registro(33, "c"))

	regs, err := repo.List(ctx, ListParams{SortBy: "numero_inspector", SortDir: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []int64{33, 10, 2}, numeros(regs), "numeric, not lexicographic")

	regs, err = repo.List(ctx, ListParams{SortBy: "numero_inspector"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 10, 33}, numeros(regs))

	regs, err = repo.List(ctx, ListParams{SortBy: "velocidad; DROP TABLE registros", SortDir: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 2, 33}, numeros(regs), "unknown column sorts by id asc")

	regs, err = repo.List(ctx, ListParams{SortBy: "id", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 33}, numeros(regs))

	p := ListParams{Limit: 1000, Offset: -5}.Normalize()
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, DefaultLimit, ListParams{}.Normalize().Limit)
}

func numeros(regs []models.Registro) []int64 {
	out := make([]int64, len(regs))
	for i, r := range regs {
		out[i] = r.NumeroInspector
	}
	return out
}

func TestRegistrosCountAndDistinct(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistros(newTestDB(t))
	seed(t, repo, registro(10, "norte"), registro(2, "norte"), registro(33, "sur"))

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.Count(ctx, map[string]string{"region": "norte"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	values, err := repo.Distinct(ctx, "region", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"norte", "sur"}, values)

	values, err = repo.Distinct(ctx, "region", "SU")
	require.NoError(t, err)
	assert.Equal(t, []string{"sur"}, values)

	values, err = repo.Distinct(ctx, "numero_inspector", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "10", "33"}, values)

	_, err = repo.Distinct(ctx, "id", "")
	assert.ErrorIs(t, err, inspector.ErrValidation)
}

func TestRegistrosTaken(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistros(newTestDB(t))
	ids := seed(t, repo, registro(10, "norte"))

	taken, err := repo.NumeroInspectorTaken(ctx, 10, 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.NumeroInspectorTaken(ctx, 10, ids[0])
	require.NoError(t, err)
	assert.False(t, taken, "the registro being updated is excluded")

	taken, err = repo.NombreTaken(ctx, "ins10-norte", 0)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestRegistrosReplaceInTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRegistros(db)
	seed(t, repo, registro(10, "norte"), registro(11, "norte"))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	txRepo := repo.WithTx(tx)
	removed, err := txRepo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	_, err = txRepo.Create(ctx, registro(50, "sur"))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "rollback restores the table")
}

func TestUsuariosRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUsuarios(newTestDB(t))

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	u := models.Usuario{Username: "ana", Email: "ana@example.com", PasswordHash: "h", Rol: models.RolAdmin, Activo: true, FechaCreacion: now}
	id, err := repo.Create(ctx, u)
	require.NoError(t, err)

	got, err := repo.GetByLogin(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, got.FechaCreacion.Equal(now))
	assert.True(t, got.Activo)

	got, err = repo.GetByLogin(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)

	_, err = repo.Create(ctx, models.Usuario{Username: "ana", Email: "otra@example.com", PasswordHash: "h", Rol: models.RolUser, FechaCreacion: now})
	assert.ErrorIs(t, err, inspector.ErrConflict)

	id2, err := repo.Create(ctx, models.Usuario{Username: "beto", Email: "beto@example.com", PasswordHash: "h", Rol: models.RolUser, FechaCreacion: now})
	require.NoError(t, err)

	got.Activo = false
	require.NoError(t, repo.Update(ctx, got))
	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id2, active[0].ID)
	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	taken, err := repo.Taken(ctx, "beto", "x@example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.Taken(ctx, "beto", "beto@example.com", id2)
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, repo.SetPassword(ctx, id2, "h2"))
	b, err := repo.GetByUsername(ctx, "beto")
	require.NoError(t, err)
	assert.Equal(t, "h2", b.PasswordHash)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, id2))
	_, err = repo.Get(ctx, id2)
	assert.ErrorIs(t, err, inspector.ErrNotFound)
}

func TestHistorialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewHistorial(newTestDB(t))

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AddCambios(ctx,
		models.HistorialCambio{NumeroInspector: 7, Fecha: now.AddDate(0, 0, -20), Usuario: "ana", Accion: models.AccionCreacion},
		models.HistorialCambio{NumeroInspector: 7, Fecha: now.AddDate(0, 0, -3), Usuario: "ana", Accion: models.AccionEdicion, Campo: "region", ValorAnterior: "a", ValorNuevo: "b"},
		models.HistorialCambio{NumeroInspector: 7, Fecha: now.Add(-time.Hour), Usuario: "ana", Accion: models.AccionEdicion, Campo: "status"},
		models.HistorialCambio{NumeroInspector: 8, Fecha: now, Usuario: "ana", Accion: models.AccionCreacion},
	))

	cambios, err := repo.CambiosSince(ctx, 7, now.AddDate(0, 0, -15))
	require.NoError(t, err)
	require.Len(t, cambios, 2)
	assert.Equal(t, "status", cambios[0].Campo, "newest first")
	assert.Equal(t, "region", cambios[1].Campo)

	all, err := repo.AllCambios(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(8), all[0].NumeroInspector)

	require.NoError(t, repo.AddUsuarioCambios(ctx,
		models.HistorialUsuario{UsuarioID: 1, Fecha: now.Add(-time.Minute), Admin: "root", Accion: models.AccionCreacion},
		models.HistorialUsuario{UsuarioID: 1, Fecha: now, Admin: "root", Accion: models.AccionDesactivacion},
	))
	uc, err := repo.UsuarioCambios(ctx, 1)
	require.NoError(t, err)
	require.Len(t, uc, 2)
	assert.Equal(t, models.AccionDesactivacion, uc[0].Accion)

	require.NoError(t, repo.DeleteUsuarioCambios(ctx, 1))
	uc, err = repo.UsuarioCambios(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, uc)
}

func TestRegistrosDatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRegistros(sqlx.NewDb(db, "sqlmock"))

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registros")).WillReturnError(boom)
	_, err = repo.Count(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registros WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.Get(context.Background(), 7)
	assert.ErrorIs(t, err, inspector.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM registros WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 7), inspector.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
