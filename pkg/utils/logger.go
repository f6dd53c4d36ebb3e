// Package utils provides the shared logger constructor.
package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger named "hikari". When debug is true it uses
// the development config (console, debug level); otherwise the production
// config (JSON, info level) with ISO8601 timestamps.
func NewLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("hikari"), nil
}

// ComponentLogger returns base scoped to a component when debug logging is
// on, and nil otherwise so components fall back to their no-op default.
func ComponentLogger(base *zap.Logger, debug bool, component string) *zap.Logger {
	if !debug || base == nil {
		return nil
	}
	return base.Named(component)
}
