// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tiffin/internal/config"
)

const serviceName = "tiffin"

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds the logger described by cfg. An unknown level falls back to info;
// an unknown format is an error.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zc, err := buildConfig(cfg)
	if err != nil {
		return nil, err
	}
	return zc.Build()
}

func buildConfig(cfg config.LogConfig) (zap.Config, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var zc zap.Config
	switch cfg.Format {
	case "", FormatJSON:
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case FormatConsole:
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(lvl)
	// Debug traces every change event folded into a screen; keep all of them.
	if lvl == zapcore.DebugLevel {
		zc.Sampling = nil
	}
	zc.InitialFields = map[string]interface{}{"service": serviceName}
	return zc, nil
}
