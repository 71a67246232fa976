package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/service"
)

type createUsuarioRequest struct {
	Username   string `json:"username" binding:"required,username"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	Nombre     string `json:"nombre"`
	Apellido   string `json:"apellido"`
	Rol        string `json:"rol" binding:"omitempty,oneof=admin user"`
	FotoPerfil string `json:"foto_perfil"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

func (s *Server) createUsuario(c *gin.Context) {
	var req createUsuarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos de usuario no válidos: "+err.Error())
		return
	}

	u, err := s.Usuarios.Create(c.Request.Context(), actor(c), service.NewUsuario{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Nombre:     req.Nombre,
		Apellido:   req.Apellido,
		Rol:        req.Rol,
		FotoPerfil: req.FotoPerfil,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) listUsuarios(activeOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.Usuarios.List(c.Request.Context(), activeOnly)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func (s *Server) getUsuario(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := s.Usuarios.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) updateUsuario(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch models.UsuarioPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Datos de usuario no válidos: "+err.Error())
		return
	}

	u, err := s.Usuarios.Update(c.Request.Context(), actor(c), id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) deleteUsuario(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Usuarios.Delete(c.Request.Context(), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": fmt.Sprintf("Usuario con ID=%d eliminado exitosamente", id)})
}

func (s *Server) toggleUsuario(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := s.Usuarios.ToggleActive(c.Request.Context(), actor(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	estado := "activado"
	if !u.Activo {
		estado = "desactivado"
	}
	c.JSON(http.StatusOK, gin.H{
		"mensaje": fmt.Sprintf("Usuario %s %s", u.Username, estado),
		"activo":  u.Activo,
	})
}

func (s *Server) resetPassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos no válidos: "+err.Error())
		return
	}

	if err := s.Usuarios.ResetPassword(c.Request.Context(), actor(c), id, req.NewPassword); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": fmt.Sprintf("Contraseña restablecida para el usuario con ID=%d", id)})
}

func (s *Server) usuarioHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cambios, err := s.Usuarios.History(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cambios)
}
