package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huykn/inspector/auth"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/service"
)

type registerRequest struct {
	Username   string `json:"username" binding:"required,username"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	Nombre     string `json:"nombre"`
	Apellido   string `json:"apellido"`
	FotoPerfil string `json:"foto_perfil"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type profileRequest struct {
	Nombre string `json:"nombre" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// userSummary is the account view returned alongside tokens and profile edits.
func userSummary(u models.Usuario) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"rol":      u.Rol,
		"foto":     u.FotoPerfil,
	}
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos de registro no válidos: "+err.Error())
		return
	}

	u, err := s.Usuarios.Register(c.Request.Context(), service.NewUsuario{
		Username:   strings.TrimSpace(req.Username),
		Email:      strings.TrimSpace(req.Email),
		Password:   req.Password,
		Nombre:     req.Nombre,
		Apellido:   req.Apellido,
		FotoPerfil: req.FotoPerfil,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Usuario registrado correctamente",
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"rol":      u.Rol,
	})
}

// login accepts JSON or an OAuth2 password form. The username field may hold an email.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Usuario y contraseña son obligatorios")
		return
	}

	u, err := s.Usuarios.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	token, err := s.Tokens.Issue(u)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(s.Tokens.TTL().Seconds()),
		"user":         userSummary(u),
	})
}

// currentUser loads the caller's account. Deactivated accounts are rejected.
func (s *Server) currentUser(c *gin.Context) (models.Usuario, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "No autenticado"})
		return models.Usuario{}, false
	}
	u, err := s.Usuarios.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		s.respondError(c, err)
		return models.Usuario{}, false
	}
	if !u.Activo {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Usuario deshabilitado"})
		return models.Usuario{}, false
	}
	return u, true
}

func (s *Server) me(c *gin.Context) {
	u, ok := s.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"nombre":   u.Nombre,
		"apellido": u.Apellido,
		"rol":      u.Rol,
		"foto":     u.FotoPerfil,
		"activo":   u.Activo,
	})
}

func (s *Server) editProfile(c *gin.Context) {
	u, ok := s.currentUser(c)
	if !ok {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos de perfil no válidos: "+err.Error())
		return
	}

	updated, err := s.Usuarios.UpdateProfile(c.Request.Context(), u.ID, strings.TrimSpace(req.Nombre), strings.TrimSpace(req.Email))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Perfil actualizado correctamente",
		"user":    userSummary(updated),
	})
}

func (s *Server) changePassword(c *gin.Context) {
	u, ok := s.currentUser(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos no válidos: "+err.Error())
		return
	}

	if err := s.Usuarios.ChangePassword(c.Request.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contraseña actualizada correctamente"})
}
