package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/huykn/inspector/auth"
	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/repository"
	"github.com/huykn/inspector/storage"
)

type testEnv struct {
	db        *sqlx.DB
	cache     *cache.TaggedCache
	queries   *Queries
	registros *Registros
	usuarios  *Usuarios
	importer  *Importer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(db))

	opts := cache.DefaultOptions()
	opts.CleanupInterval = 0
	c, err := cache.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	inv := NewInvalidator(c, nil)
	regs := NewRegistros(db, inv, nil)
	return &testEnv{
		db:        db,
		cache:     c,
		queries:   NewQueries(c, repository.NewRegistros(db), repository.NewHistorial(db), QueriesConfig{Enabled: true}),
		registros: regs,
		usuarios:  NewUsuarios(db, UsuariosConfig{Hasher: auth.NewHasher(4)}),
		importer:  NewImporter(regs, 1<<20),
	}
}

func validRegistro(n int64) models.Registro {
	return models.Registro{
		NumeroInspector: n,
		Nombre:          fmt.Sprintf("Equipo ins%d norte", n),
		Observaciones:   "sin novedad",
		Status:          "activo",
		Region:          "norte",
		Flota:           "flota a",
		Encargado:       "perez",
		Celular:         "55 1234 5678",
		Correo:          "perez@example.com",
		Direccion:       "calle 1",
		Uso:             "Residencial",
		Departamento:    "ventas",
		Ciudad:          "monterrey",
		Tecnologia:      "fibra",
		CmtsOlt:         "olt-1",
		IDServicio:      "svc-1",
		MacSN:           "AA-BB-CC",
	}
}
