package cache

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// Debug logs a debug message (no-op).
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info logs an info message (no-op).
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn logs a warning message (no-op).
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error logs an error message (no-op).
func (n *NoOpLogger) Error(msg string, args ...any) {}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

type ConsoleLogger struct {
	prefix string
}

// Debug logs a debug message to console.
func (cl *ConsoleLogger) Debug(msg string, args ...any) {
	cl.print("DEBUG", msg, args)
}

// Info logs an info message to console.
func (cl *ConsoleLogger) Info(msg string, args ...any) {
	cl.print("INFO", msg, args)
}

// Warn logs a warning message to console.
func (cl *ConsoleLogger) Warn(msg string, args ...any) {
	cl.print("WARN", msg, args)
}

// Error logs an error message to console.
func (cl *ConsoleLogger) Error(msg string, args ...any) {
	cl.print("ERROR", msg, args)
}

func (cl *ConsoleLogger) print(level, msg string, args []any) {
	fmt.Printf("[%s] %s: %s", level, cl.prefix, msg)
	if len(args) > 0 {
		fmt.Printf(" %v", args)
	}
	fmt.Println()
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(prefix string) Logger {
	return &ConsoleLogger{prefix: prefix}
}

// ZapLogger adapts a zap.SugaredLogger. Args are alternating key/value pairs.
type ZapLogger struct {
	L *zap.SugaredLogger
}

// Debug logs a debug message.
func (z ZapLogger) Debug(msg string, args ...any) { z.L.Debugw(msg, args...) }

// Info logs an info message.
func (z ZapLogger) Info(msg string, args ...any) { z.L.Infow(msg, args...) }

// Warn logs a warning message.
func (z ZapLogger) Warn(msg string, args ...any) { z.L.Warnw(msg, args...) }

// Error logs an error message.
func (z ZapLogger) Error(msg string, args ...any) { z.L.Errorw(msg, args...) }

// NewZapLogger wraps a zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	return ZapLogger{L: l.Sugar()}
}

// LogrusLogger adapts a logrus entry. Args are alternating key/value pairs.
type LogrusLogger struct {
	E *logrus.Entry
}

// Debug logs a debug message.
func (l LogrusLogger) Debug(msg string, args ...any) { l.E.WithFields(fields(args)).Debug(msg) }

// Info logs an info message.
func (l LogrusLogger) Info(msg string, args ...any) { l.E.WithFields(fields(args)).Info(msg) }

// Warn logs a warning message.
func (l LogrusLogger) Warn(msg string, args ...any) { l.E.WithFields(fields(args)).Warn(msg) }

// Error logs an error message.
func (l LogrusLogger) Error(msg string, args ...any) { l.E.WithFields(fields(args)).Error(msg) }

// NewLogrusLogger wraps a logrus logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return LogrusLogger{E: logrus.NewEntry(l)}
}

// fields turns key/value pairs into logrus fields. A dangling key is kept under "arg".
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			f["arg"] = args[i]
			break
		}
		f[fmt.Sprint(args[i])] = args[i+1]
	}
	return f
}
