package models

import "time"

// Roles.
const (
	RolAdmin = "admin"
	RolUser  = "user"
)

// Usuario is an account allowed to use the API.
type Usuario struct {
	ID            int64     `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Nombre        string    `db:"nombre" json:"nombre"`
	Apellido      string    `db:"apellido" json:"apellido"`
	Rol           string    `db:"rol" json:"rol"`
	FotoPerfil    string    `db:"foto_perfil" json:"foto_perfil"`
	Activo        bool      `db:"activo" json:"activo"`
	FechaCreacion time.Time `db:"fecha_creacion" json:"fecha_creacion"`
}

// IsAdmin reports whether u has the admin role.
func (u *Usuario) IsAdmin() bool { return u.Rol == RolAdmin }

// ValidRol reports whether rol is a known role.
func ValidRol(rol string) bool { return rol == RolAdmin || rol == RolUser }

// UsuarioPatch holds a partial profile update. Nil fields are left unchanged.
type UsuarioPatch struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	Nombre     *string `json:"nombre"`
	Apellido   *string `json:"apellido"`
	Rol        *string `json:"rol"`
	FotoPerfil *string `json:"foto_perfil"`
	Activo     *bool   `json:"activo"`
}

// Apply returns a copy of u with every set field of p written over it.
func (p UsuarioPatch) Apply(u Usuario) Usuario {
	setString(&u.Username, p.Username)
	setString(&u.Email, p.Email)
	setString(&u.Nombre, p.Nombre)
	setString(&u.Apellido, p.Apellido)
	setString(&u.Rol, p.Rol)
	setString(&u.FotoPerfil, p.FotoPerfil)
	if p.Activo != nil {
		u.Activo = *p.Activo
	}
	return u
}
