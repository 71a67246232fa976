package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/huykn/inspector/cache"
	"github.com/huykn/inspector/config"
)

// newZapLogger builds the process logger: JSON in production, console otherwise.
func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build(zap.Fields(zap.String("pod_id", cfg.PodID)))
}

// newCacheLogger returns the logger handed to the cache and the services.
// LOG_BACKEND=logrus routes them to logrus; the HTTP access log stays on zap.
func newCacheLogger(cfg *config.Config, zl *zap.Logger) cache.Logger {
	if cfg.LogBackend != config.LogBackendLogrus {
		return cache.NewZapLogger(zl.Named("cache"))
	}

	l := logrus.New()
	l.SetOutput(os.Stderr)
	if cfg.IsProduction() {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		l.SetLevel(level)
	}
	return cache.NewLogrusLogger(l)
}
