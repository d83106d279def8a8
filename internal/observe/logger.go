package observe

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"billing-admin-backend/config"
)

// NewLogger builds the process logger from cfg and installs it as the zap
// global. The returned func flushes buffered entries.
func NewLogger(cfg config.LogConfig) (*zap.Logger, func()) {
	var zcfg zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)

	return logger, func() {
		// stdout/stderr sync errors are harmless
		_ = logger.Sync()
	}
}
