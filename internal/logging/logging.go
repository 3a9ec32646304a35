package logging

import (
	"go.uber.org/zap"

	"typerace/internal/config"
)

// New builds the process logger. "json" selects the production encoder,
// anything else a human-readable console encoder.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zc.Level = level

	return zc.Build()
}
