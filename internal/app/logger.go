// Package app provides logger initialization.
package app

import (
	"github.com/guttosm/campus-access/config"
	"github.com/guttosm/campus-access/internal/logger"
)

// InitializeLogger configures the global zerolog logger.
func InitializeLogger(cfg config.LogConfig) {
	logger.Init(cfg.Level, cfg.Pretty)
}
