// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/search-console-gateway/internal/config"
)

// New builds a zap.Logger configured for development or production. Fields
// are attached to every entry.
func New(cfg config.LoggingConfig, fields ...zap.Field) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build(zap.Fields(fields...))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ServiceFields tags entries with the service identity used by telemetry.
func ServiceFields(tcfg config.TelemetryConfig) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if tcfg.ServiceName != "" {
		fields = append(fields, zap.String("service", tcfg.ServiceName))
	}
	if tcfg.Version != "" {
		fields = append(fields, zap.String("version", tcfg.Version))
	}
	return fields
}

func parseLevel(raw string) (zapcore.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	return level, nil
}
