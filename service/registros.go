package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/repository"
)

// Registros performs registro writes: validation, the write itself and its
// history rows in one transaction, then cache invalidation.
type Registros struct {
	db          *sqlx.DB
	registros   *repository.Registros
	historial   *repository.Historial
	invalidator *Invalidator
	logger      cache.Logger
	now         func() time.Time
}

// NewRegistros creates the registro write service.
func NewRegistros(db *sqlx.DB, invalidator *Invalidator, logger cache.Logger) *Registros {
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}
	return &Registros{
		db:          db,
		registros:   repository.NewRegistros(db),
		historial:   repository.NewHistorial(db),
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates and inserts r on behalf of actor. A missing uuid is generated.
func (s *Registros) Create(ctx context.Context, actor string, r models.Registro) (models.Registro, error) {
	r.ID = 0
	if r.UUID == nil || *r.UUID == "" {
		id := uuid.NewString()
		r.UUID = &id
	}

	verr := validateRegistro(r, true)
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		regs := s.registros.WithTx(tx)
		if err := checkDuplicates(ctx, regs, r, 0, verr); err != nil {
			return err
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		id, err := regs.Create(ctx, r)
		if err != nil {
			return err
		}
		r.ID = id

		return s.historial.WithTx(tx).AddCambios(ctx, models.HistorialCambio{
			NumeroInspector: r.NumeroInspector,
			Fecha:           s.now(),
			Usuario:         actor,
			Accion:          models.AccionCreacion,
			Descripcion:     "Registro creado",
		})
	})
	if err != nil {
		return models.Registro{}, err
	}

	s.logger.Info("registro created", "id", r.ID, "usuario", actor)
	s.invalidator.RegistrosChanged(ctx, r.ID)
	return r, nil
}

// Update applies patch to the registro with id and records one history row per
// changed field.
func (s *Registros) Update(ctx context.Context, actor string, id int64, patch models.RegistroPatch) (models.Registro, error) {
	var updated models.Registro
	var changes []models.FieldChange

	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		regs := s.registros.WithTx(tx)
		current, err := regs.Get(ctx, id)
		if err != nil {
			return err
		}

		updated = patch.Apply(current)
		verr := validateRegistro(updated, true)
		if err := checkDuplicates(ctx, regs, updated, id, verr); err != nil {
			return err
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		changes = models.DiffRegistro(current, updated)
		if len(changes) == 0 {
			return nil
		}
		if err := regs.Update(ctx, updated); err != nil {
			return err
		}

		now := s.now()
		rows := make([]models.HistorialCambio, len(changes))
		for i, c := range changes {
			rows[i] = models.HistorialCambio{
				NumeroInspector: updated.NumeroInspector,
				Fecha:           now,
				Usuario:         actor,
				Accion:          models.AccionEdicion,
				Campo:           c.Field,
				ValorAnterior:   c.Old,
				ValorNuevo:      c.New,
				Descripcion:     fmt.Sprintf("Cambio en campo '%s'", c.Field),
			}
		}
		return s.historial.WithTx(tx).AddCambios(ctx, rows...)
	})
	if err != nil {
		return models.Registro{}, err
	}

	if len(changes) > 0 {
		s.logger.Info("registro updated", "id", id, "usuario", actor, "changes", len(changes))
		s.invalidator.RegistrosChanged(ctx, id)
	}
	return updated, nil
}

// Delete removes the registro with id, keeping a JSON snapshot in its history.
func (s *Registros) Delete(ctx context.Context, actor string, id int64) error {
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		regs := s.registros.WithTx(tx)
		current, err := regs.Get(ctx, id)
		if err != nil {
			return err
		}
		snapshot, err := json.Marshal(current)
		if err != nil {
			return err
		}
		if err := regs.Delete(ctx, id); err != nil {
			return err
		}
		return s.historial.WithTx(tx).AddCambios(ctx, models.HistorialCambio{
			NumeroInspector: current.NumeroInspector,
			Fecha:           s.now(),
			Usuario:         actor,
			Accion:          models.AccionEliminacion,
			ValorAnterior:   string(snapshot),
			Descripcion:     "Registro eliminado",
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("registro deleted", "id", id, "usuario", actor)
	s.invalidator.RegistrosChanged(ctx, id)
	return nil
}

// Replace swaps the whole table for regs in one transaction.
// regs are expected to be validated already.
func (s *Registros) Replace(ctx context.Context, actor string, regs []models.Registro) (int, error) {
	var removed int64
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := s.registros.WithTx(tx)
		var err error
		if removed, err = repo.DeleteAll(ctx); err != nil {
			return err
		}
		for i, r := range regs {
			if _, err := repo.Create(ctx, r); err != nil {
				return fmt.Errorf("fila %d: %w", i+2, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("registros replaced", "usuario", actor, "removed", removed, "inserted", len(regs))
	s.invalidator.RegistrosChanged(ctx)
	return len(regs), nil
}

// HistoryExport returns every registro change, newest first. It is not cached.
func (s *Registros) HistoryExport(ctx context.Context) ([]models.HistorialCambio, error) {
	return s.historial.AllCambios(ctx)
}
