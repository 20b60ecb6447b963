// Package logging builds the process logger and adapts it to the
// memorykeep Logger interface.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger at level ("debug", "info", "warn" or
// "error"). verbose forces debug.
func New(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Adapter exposes a zap logger through Debug/Info/Warn/Error(msg, keysAndValues...).
type Adapter struct {
	sugar *zap.SugaredLogger
}

// Adapt wraps logger. A nil logger discards everything.
func Adapt(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{sugar: logger.Sugar()}
}

// Named returns an adapter whose entries carry name.
func (a *Adapter) Named(name string) *Adapter {
	return &Adapter{sugar: a.sugar.Named(name)}
}

func (a *Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }
