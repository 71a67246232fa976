package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/service"
)

// respondError maps err onto a status code and a {"detail": ...} body.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		verr   *inspector.ValidationError
		uerr   *service.UploadError
		status int
		detail any
	)

	switch {
	case errors.As(err, &uerr):
		status, detail = http.StatusBadRequest, uerr
	case errors.As(err, &verr):
		status, detail = http.StatusBadRequest, verr
	case errors.Is(err, service.ErrCSVFormat), errors.Is(err, inspector.ErrValidation):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, inspector.ErrNotFound):
		status, detail = http.StatusNotFound, "No encontrado"
	case errors.Is(err, inspector.ErrConflict):
		status, detail = http.StatusConflict, "El recurso ya existe"
	case errors.Is(err, inspector.ErrInactiveUser):
		status, detail = http.StatusUnauthorized, "Usuario deshabilitado"
	case errors.Is(err, inspector.ErrUnauthorized):
		status, detail = http.StatusUnauthorized, "Credenciales incorrectas"
	case errors.Is(err, inspector.ErrForbidden):
		status, detail = http.StatusForbidden, "No tienes permisos para realizar esta acción"
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		status, detail = http.StatusInternalServerError, "Error interno del servidor"
	}

	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// badRequest rejects a malformed request before it reaches a service.
func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": detail})
}
