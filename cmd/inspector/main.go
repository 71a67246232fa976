// Command inspector serves the inspector records API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/api"
	"github.com/huykn/inspector/auth"
	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/config"
	"github.com/huykn/inspector/repository"
	"github.com/huykn/inspector/service"
	"github.com/huykn/inspector/storage"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default: inspector.toml if present)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		info := inspector.GetVersionInfo()
		fmt.Printf("inspector %s (%s)\n", info.Version, info.GoVersion)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newZapLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("inspector stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cacheLogger := newCacheLogger(cfg, logger)

	db, err := storage.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		return err
	}
	logger.Info("database ready", zap.String("driver", db.DriverName()))

	cacheCfg := inspector.DefaultCacheConfig()
	cacheCfg.PodID = cfg.PodID
	cacheCfg.DefaultTTL = cfg.CacheDefaultTTL()
	cacheCfg.CleanupInterval = cfg.CleanupInterval()
	cacheCfg.Logger = cacheLogger
	cacheCfg.DebugMode = cfg.CacheDebug
	cacheCfg.OnError = func(err error) {
		logger.Warn("cache background error", zap.Error(err))
	}
	if cfg.RedisEnabled {
		rc, err := storage.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		cacheCfg.RedisEnabled = true
		cacheCfg.RedisAddr = rc.Addr
		cacheCfg.RedisPassword = rc.Password
		cacheCfg.RedisDB = rc.DB
		cacheCfg.InvalidationChannel = cfg.RedisChannel
		cacheCfg.SerializationFormat = cfg.SerializationFormat
	}
	queryCache, err := inspector.NewCache(cacheCfg)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer queryCache.Close()
	logger.Info("query cache ready",
		zap.Bool("enabled", cfg.CacheEnabled),
		zap.Bool("fan_out", cfg.RedisEnabled),
		zap.Duration("default_ttl", cacheCfg.DefaultTTL))

	tokens, err := auth.NewTokens(secretKey(cfg, logger), cfg.Algorithm, cfg.TokenTTL(),
		auth.NewTokenCache(1024, cfg.TokenTTL()))
	if err != nil {
		return err
	}

	invalidator := service.NewInvalidator(queryCache, cacheLogger)
	registros := service.NewRegistros(db, invalidator, cacheLogger)
	deps := api.Deps{
		DB:    db,
		Cache: queryCache,
		Queries: service.NewQueries(queryCache, repository.NewRegistros(db), repository.NewHistorial(db), service.QueriesConfig{
			Enabled:     cfg.CacheEnabled,
			HistoryDays: cfg.HistoryDays,
			Logger:      cacheLogger,
			DebugMode:   cfg.CacheDebug,
		}),
		Registros: registros,
		Importer:  service.NewImporter(registros, cfg.MaxFileSize),
		Usuarios: service.NewUsuarios(db, service.UsuariosConfig{
			Hasher:            auth.NewHasher(cfg.BcryptRounds),
			PasswordMinLength: cfg.PasswordMinLength,
			Logger:            cacheLogger,
		}),
		Invalidator:    invalidator,
		Tokens:         tokens,
		Logger:         logger,
		AllowedOrigins: cfg.Origins(),
		MaxUploadSize:  cfg.MaxFileSize,
		LoginPerMinute: cfg.LoginRatePerMinute,
		LoginBurst:     cfg.LoginBurst,
	}
	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			cache.NewCollector(queryCache),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewServer(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("version", inspector.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// secretKey returns SECRET_KEY. Outside production a missing key is replaced by
// a fixed development key so the service can start.
func secretKey(cfg *config.Config, logger *zap.Logger) string {
	if cfg.SecretKey != "" {
		return cfg.SecretKey
	}
	logger.Warn("SECRET_KEY not set, using the development key")
	return "inspector-development-secret"
}
