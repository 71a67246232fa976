package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/auth"
	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/repository"
)

// DefaultPasswordMinLength is used when UsuariosConfig leaves it unset.
const DefaultPasswordMinLength = 8

// NewUsuario is the input of Register and Create.
type NewUsuario struct {
	Username   string
	Email      string
	Password   string
	Nombre     string
	Apellido   string
	Rol        string
	FotoPerfil string
}

// UsuariosConfig configures the account service.
type UsuariosConfig struct {
	Hasher            auth.Hasher
	PasswordMinLength int
	Logger            cache.Logger
}

// Usuarios manages accounts, credentials and the account audit trail.
// Account writes do not touch the query cache.
type Usuarios struct {
	db        *sqlx.DB
	usuarios  *repository.Usuarios
	historial *repository.Historial
	hasher    auth.Hasher
	minLength int
	logger    cache.Logger
	now       func() time.Time
}

// NewUsuarios creates the account service.
func NewUsuarios(db *sqlx.DB, cfg UsuariosConfig) *Usuarios {
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = DefaultPasswordMinLength
	}
	if cfg.Logger == nil {
		cfg.Logger = cache.NewNoOpLogger()
	}
	return &Usuarios{
		db:        db,
		usuarios:  repository.NewUsuarios(db),
		historial: repository.NewHistorial(db),
		hasher:    cfg.Hasher,
		minLength: cfg.PasswordMinLength,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Register creates a self-service account. The first account ever created is
// an admin; every later one is a plain user regardless of the requested role.
func (s *Usuarios) Register(ctx context.Context, in NewUsuario) (models.Usuario, error) {
	in.Rol = models.RolUser
	return s.create(ctx, in.Username, in)
}

// Create creates an account on behalf of admin. The first account ever created
// is forced to admin.
func (s *Usuarios) Create(ctx context.Context, admin string, in NewUsuario) (models.Usuario, error) {
	if in.Rol == "" {
		in.Rol = models.RolUser
	}
	return s.create(ctx, admin, in)
}

func (s *Usuarios) create(ctx context.Context, actor string, in NewUsuario) (models.Usuario, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	verr := &inspector.ValidationError{}
	if utf8.RuneCountInString(in.Username) < 3 {
		verr.Add("username", "El nombre de usuario debe tener al menos 3 caracteres")
	}
	if !ValidCorreo(in.Email) {
		verr.Add("email", "El correo electrónico no es válido")
	}
	if !models.ValidRol(in.Rol) {
		verr.Add("rol", fmt.Sprintf("Rol no válido: %q", in.Rol))
	}
	s.checkPassword(in.Password, verr)
	if err := verr.OrNil(); err != nil {
		return models.Usuario{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Usuario{}, err
	}

	u := models.Usuario{
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  hash,
		Nombre:        in.Nombre,
		Apellido:      in.Apellido,
		Rol:           in.Rol,
		FotoPerfil:    in.FotoPerfil,
		Activo:        true,
		FechaCreacion: s.now().UTC(),
	}

	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := s.usuarios.WithTx(tx)
		taken, err := users.Taken(ctx, u.Username, u.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return inspector.NewValidationError("username", "El username o email ya está registrado")
		}

		n, err := users.Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			u.Rol = models.RolAdmin
		}

		if u.ID, err = users.Create(ctx, u); err != nil {
			return err
		}
		return s.historial.WithTx(tx).AddUsuarioCambios(ctx, models.HistorialUsuario{
			UsuarioID:   u.ID,
			Fecha:       s.now(),
			Admin:       actor,
			Accion:      models.AccionCreacion,
			Descripcion: "Usuario creado con rol " + u.Rol,
		})
	})
	if err != nil {
		return models.Usuario{}, err
	}

	s.logger.Info("usuario created", "id", u.ID, "username", u.Username, "rol", u.Rol)
	return u, nil
}

// Authenticate checks a username or email and password pair.
// Unknown users and bad passwords both return inspector.ErrUnauthorized.
func (s *Usuarios) Authenticate(ctx context.Context, login, password string) (models.Usuario, error) {
	u, err := s.usuarios.GetByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, inspector.ErrNotFound) {
		return models.Usuario{}, inspector.ErrUnauthorized
	}
	if err != nil {
		return models.Usuario{}, err
	}
	if !s.hasher.Check(password, u.PasswordHash) {
		return models.Usuario{}, inspector.ErrUnauthorized
	}
	if !u.Activo {
		return models.Usuario{}, inspector.ErrInactiveUser
	}
	return u, nil
}

// Get returns the account with id.
func (s *Usuarios) Get(ctx context.Context, id int64) (models.Usuario, error) {
	return s.usuarios.Get(ctx, id)
}

// List returns accounts; activeOnly skips deactivated ones.
func (s *Usuarios) List(ctx context.Context, activeOnly bool) ([]models.Usuario, error) {
	return s.usuarios.List(ctx, activeOnly)
}

// UpdateProfile lets a user change their own nombre and email.
func (s *Usuarios) UpdateProfile(ctx context.Context, id int64, nombre, email string) (models.Usuario, error) {
	patch := models.UsuarioPatch{Nombre: &nombre, Email: &email}
	return s.update(ctx, "", id, patch, models.AccionEdicionPerfil)
}

// Update applies an admin's changes to the account with id and records one
// history row per changed field.
func (s *Usuarios) Update(ctx context.Context, admin string, id int64, patch models.UsuarioPatch) (models.Usuario, error) {
	return s.update(ctx, admin, id, patch, models.AccionEdicion)
}

// ToggleActive flips the active flag of the account with id.
func (s *Usuarios) ToggleActive(ctx context.Context, admin string, id int64) (models.Usuario, error) {
	var updated models.Usuario
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := s.usuarios.WithTx(tx)
		u, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		updated = u
		updated.Activo = !u.Activo
		if err := users.Update(ctx, updated); err != nil {
			return err
		}

		accion, desc := models.AccionActivacion, "Usuario activado"
		if !updated.Activo {
			accion, desc = models.AccionDesactivacion, "Usuario deshabilitado"
		}
		return s.historial.WithTx(tx).AddUsuarioCambios(ctx, models.HistorialUsuario{
			UsuarioID:     id,
			Fecha:         s.now(),
			Admin:         admin,
			Accion:        accion,
			Campo:         "activo",
			ValorAnterior: fmt.Sprint(u.Activo),
			ValorNuevo:    fmt.Sprint(updated.Activo),
			Descripcion:   desc,
		})
	})
	return updated, err
}

func (s *Usuarios) update(ctx context.Context, actor string, id int64, patch models.UsuarioPatch, accion string) (models.Usuario, error) {
	var updated models.Usuario
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := s.usuarios.WithTx(tx)
		current, err := users.Get(ctx, id)
		if err != nil {
			return err
		}
		if actor == "" {
			actor = current.Username
		}

		updated = patch.Apply(current)
		verr := &inspector.ValidationError{}
		if utf8.RuneCountInString(strings.TrimSpace(updated.Username)) < 3 {
			verr.Add("username", "El nombre de usuario debe tener al menos 3 caracteres")
		}
		if !ValidCorreo(updated.Email) {
			verr.Add("email", "El correo electrónico no es válido")
		}
		if !models.ValidRol(updated.Rol) {
			verr.Add("rol", fmt.Sprintf("Rol no válido: %q", updated.Rol))
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		changes := models.DiffUsuario(current, updated)
		if len(changes) == 0 {
			return nil
		}
		taken, err := users.Taken(ctx, updated.Username, updated.Email, id)
		if err != nil {
			return err
		}
		if taken {
			return inspector.NewValidationError("email", "El username o email ya está en uso")
		}
		if err := users.Update(ctx, updated); err != nil {
			return err
		}

		now := s.now()
		rows := make([]models.HistorialUsuario, len(changes))
		for i, c := range changes {
			rows[i] = models.HistorialUsuario{
				UsuarioID:     id,
				Fecha:         now,
				Admin:         actor,
				Accion:        accion,
				Campo:         c.Field,
				ValorAnterior: c.Old,
				ValorNuevo:    c.New,
				Descripcion:   fmt.Sprintf("Campo %s modificado", c.Field),
			}
		}
		return s.historial.WithTx(tx).AddUsuarioCambios(ctx, rows...)
	})
	if err != nil {
		return models.Usuario{}, err
	}
	return updated, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Usuarios) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.usuarios.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Check(current, u.PasswordHash) {
		return inspector.NewValidationError("current_password", "La contraseña actual es incorrecta")
	}
	if current == next {
		return inspector.NewValidationError("new_password", "La nueva contraseña debe ser diferente a la actual")
	}
	return s.setPassword(ctx, u, next, u.Username, models.AccionCambioPassword, "Contraseña cambiada por el usuario")
}

// ResetPassword sets a new password for the account with id on behalf of admin.
func (s *Usuarios) ResetPassword(ctx context.Context, admin string, id int64, next string) error {
	u, err := s.usuarios.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u, next, admin, models.AccionRestablecerPassword, "Contraseña restablecida por administrador")
}

func (s *Usuarios) setPassword(ctx context.Context, u models.Usuario, password, actor, accion, desc string) error {
	verr := &inspector.ValidationError{}
	s.checkPassword(password, verr)
	if err := verr.OrNil(); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.usuarios.WithTx(tx).SetPassword(ctx, u.ID, hash); err != nil {
			return err
		}
		return s.historial.WithTx(tx).AddUsuarioCambios(ctx, models.HistorialUsuario{
			UsuarioID:   u.ID,
			Fecha:       s.now(),
			Admin:       actor,
			Accion:      accion,
			Descripcion: desc,
		})
	})
}

// Delete removes the account with id together with its history.
func (s *Usuarios) Delete(ctx context.Context, admin string, id int64) error {
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.historial.WithTx(tx).DeleteUsuarioCambios(ctx, id); err != nil {
			return err
		}
		return s.usuarios.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("usuario deleted", "id", id, "admin", admin)
	return nil
}

// History returns the audit trail of the account with id, newest first.
func (s *Usuarios) History(ctx context.Context, id int64) ([]models.HistorialUsuario, error) {
	if _, err := s.usuarios.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.historial.UsuarioCambios(ctx, id)
}

func (s *Usuarios) checkPassword(password string, verr *inspector.ValidationError) {
	if utf8.RuneCountInString(password) < s.minLength {
		verr.Add("password", fmt.Sprintf("La contraseña debe tener al menos %d caracteres", s.minLength))
	}
}
