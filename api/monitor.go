package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/cache"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// health reports liveness. A failing database ping turns it into 503.
func (s *Server) health(c *gin.Context) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			s.logger.Warn("health check: database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Base de datos no disponible",
				"version": inspector.Version,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Inspector API está funcionando correctamente",
		"version": inspector.Version,
	})
}

func (s *Server) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Estadísticas del cache obtenidas exitosamente",
		"stats":     s.Cache.Stats(),
		"timestamp": timestamp(),
	})
}

func (s *Server) cacheHealth(c *gin.Context) {
	h := cache.HealthStatus(s.Cache.Stats())
	c.JSON(http.StatusOK, gin.H{
		"status":         h.Status,
		"hit_rate":       h.HitRate,
		"total_requests": h.TotalRequests,
		"cache_size":     h.CacheSize,
		"checked_at":     timestamp(),
	})
}

func (s *Server) cacheClear(c *gin.Context) {
	s.Cache.Clear(c.Request.Context())
	s.logger.Info("cache cleared", zap.String("by", actor(c)))
	c.JSON(http.StatusOK, gin.H{
		"message":    "Cache limpiado exitosamente",
		"cleared_at": timestamp(),
	})
}

func (s *Server) cacheCleanup(c *gin.Context) {
	removed := s.Cache.CleanupExpired()
	c.JSON(http.StatusOK, gin.H{
		"message":                 "Limpieza de cache completada",
		"expired_entries_removed": removed,
		"cleaned_at":              timestamp(),
	})
}

var invalidateMessages = map[string]string{
	cache.TagRegistros:    "Cache de registros invalidado exitosamente",
	cache.TagEstadisticas: "Cache de estadísticas invalidado exitosamente",
}

func (s *Server) invalidateTag(tag string) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed := s.Invalidator.InvalidateTags(c.Request.Context(), tag)
		c.JSON(http.StatusOK, gin.H{
			"message":             invalidateMessages[tag],
			"invalidated_entries": removed,
			"invalidated_at":      timestamp(),
		})
	}
}
