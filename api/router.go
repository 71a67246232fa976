// Package api exposes the registros, usuarios, auth and cache monitor endpoints over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/huykn/inspector/auth"
	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/models"
	"github.com/huykn/inspector/service"
)

// Default upload bound, 5 MiB.
const DefaultMaxUploadSize = 5 << 20

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	DB          *sqlx.DB
	Cache       cache.Cache
	Queries     *service.Queries
	Registros   *service.Registros
	Importer    *service.Importer
	Usuarios    *service.Usuarios
	Invalidator *service.Invalidator
	Tokens      *auth.Tokens

	// Logger receives access logs and unexpected errors. Nil disables logging.
	Logger *zap.Logger

	// Metrics is served on GET /metrics when set.
	Metrics http.Handler

	// AllowedOrigins lists the CORS origins. Empty disables CORS headers.
	AllowedOrigins []string

	// MaxUploadSize bounds CSV upload bodies in bytes.
	MaxUploadSize int64

	// LoginPerMinute and LoginBurst throttle POST /auth/login per client IP.
	// Zero LoginPerMinute disables throttling.
	LoginPerMinute int
	LoginBurst     int
}

// Server holds the handlers. Build it with NewServer and serve Handler().
type Server struct {
	Deps
	logger *zap.Logger
	engine *gin.Engine
}

// NewServer wires every route onto a new gin engine.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = DefaultMaxUploadSize
	}

	registerValidations()
	s := &Server{Deps: deps, logger: deps.Logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors(deps.AllowedOrigins))
	}
	r.MaxMultipartMemory = deps.MaxUploadSize

	r.GET("/health", s.health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authenticated := auth.Authenticate(deps.Tokens)
	anyRole := auth.RequireRoles(models.RolAdmin, models.RolUser)
	adminOnly := auth.RequireRoles(models.RolAdmin)

	s.authRoutes(r, authenticated)

	reads := r.Group("", authenticated, anyRole)
	writes := r.Group("", authenticated, adminOnly)
	s.registroRoutes(reads, writes)
	s.usuarioRoutes(writes)
	s.cacheRoutes(writes.Group("/cache"))

	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) authRoutes(r *gin.Engine, authenticated gin.HandlerFunc) {
	g := r.Group("/auth")

	login := []gin.HandlerFunc{s.login}
	if s.LoginPerMinute > 0 {
		login = append([]gin.HandlerFunc{newLoginLimiter(s.LoginPerMinute, s.LoginBurst).middleware()}, login...)
	}

	g.POST("/register", s.register)
	g.POST("/login", login...)
	g.GET("/me", authenticated, s.me)
	g.PUT("/editar-perfil", authenticated, s.editProfile)
	g.POST("/cambiar-contrasena", authenticated, s.changePassword)
}

func (s *Server) registroRoutes(reads, writes *gin.RouterGroup) {
	reads.GET("/registros", s.listRegistros)
	reads.GET("/registros/total", s.countRegistros)
	reads.GET("/registros/unique_values", s.uniqueValues)
	reads.GET("/registros/:id", s.getRegistro)
	// :id carries the numero_inspector here; gin requires one wildcard name per segment.
	reads.GET("/registros/:id/historial", s.registroHistory)

	writes.POST("/registros", s.createRegistro)
	writes.PUT("/registros/:id", s.updateRegistro)
	writes.DELETE("/registros/:id", s.deleteRegistro)
	writes.GET("/registros/exportar", s.exportRaw)
	writes.GET("/export_excel", s.exportLabelled)
	writes.POST("/registros/cargar", s.uploadCSV)
	writes.POST("/upload_csv", s.uploadCSV)
	writes.GET("/historial-cambios/exportar", s.exportHistory)
}

func (s *Server) usuarioRoutes(writes *gin.RouterGroup) {
	g := writes.Group("/usuarios")
	g.POST("", s.createUsuario)
	g.GET("", s.listUsuarios(true))
	g.GET("/todos", s.listUsuarios(false))
	g.GET("/:id", s.getUsuario)
	g.PUT("/:id", s.updateUsuario)
	g.DELETE("/:id", s.deleteUsuario)
	g.PUT("/:id/toggle-activo", s.toggleUsuario)
	g.POST("/:id/restablecer-contrasena", s.resetPassword)
	g.GET("/:id/historial", s.usuarioHistory)
}

func (s *Server) cacheRoutes(g *gin.RouterGroup) {
	g.GET("/stats", s.cacheStats)
	g.GET("/health", s.cacheHealth)
	g.POST("/clear", s.cacheClear)
	g.POST("/cleanup", s.cacheCleanup)
	g.POST("/invalidate/registros", s.invalidateTag(cache.TagRegistros))
	g.POST("/invalidate/estadisticas", s.invalidateTag(cache.TagEstadisticas))
}

// actor returns the username of the authenticated caller.
func actor(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok {
		return claims.Username()
	}
	return ""
}
