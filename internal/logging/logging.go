// Package logging provides the process-wide structured logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console, json
	OutputPath string // stderr, stdout, or a file path
}

// The logger defaults to a nop so library code can log unconditionally;
// commands replace it via Init before doing any work.
var globalLogger = zap.NewNop()

// Init builds and installs the global logger. Call once at startup,
// before anything logs.
func Init(cfg Config) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if cfg.OutputPath != "" {
		config.OutputPaths = []string{cfg.OutputPath}
	} else {
		config.OutputPaths = []string{"stderr"}
	}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	globalLogger = logger
	return nil
}

// L returns the global logger.
func L() *zap.Logger {
	return globalLogger
}

// S returns the global sugared logger.
func S() *zap.SugaredLogger {
	return globalLogger.Sugar()
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = globalLogger.Sync()
}
