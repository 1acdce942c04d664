// Package logger owns the process-wide zap logger. Until Init runs every call
// is discarded, which keeps package tests quiet.
package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	current atomic.Pointer[zap.Logger]
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	current.Store(zap.NewNop())
}

// Options describe how Init builds the logger.
type Options struct {
	// Level is a zap level name. Unknown names mean info.
	Level string
	// Format is "json" (default) or "console".
	Format string
	// Fields are attached to every entry.
	Fields map[string]string
}

// Init builds the logger described by opts and installs it globally.
func Init(opts Options) error {
	SetLevel(opts.Level)

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "ts"
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Sampling = nil
	}
	if len(opts.Fields) > 0 {
		cfg.InitialFields = make(map[string]any, len(opts.Fields))
		for key, value := range opts.Fields {
			if value != "" {
				cfg.InitialFields[key] = value
			}
		}
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	current.Store(built)
	return nil
}

// SetLevel changes the minimum level of the installed logger at runtime.
func SetLevel(name string) {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

// Logger returns the installed logger.
func Logger() *zap.Logger {
	return current.Load()
}

// SetLogger installs l, or a no-op logger when l is nil.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// Sync flushes buffered entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger tagged with module.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
