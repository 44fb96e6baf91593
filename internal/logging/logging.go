// Package logging builds the CLI's zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config returns the zap configuration for format. JSON uses the production
// preset, console the development preset; both log at info unless verbose.
func Config(verbose bool, format string) (zap.Config, error) {
	var config zap.Config
	switch format {
	case "", FormatJSON:
		config = zap.NewProductionConfig()
	case FormatConsole:
		config = zap.NewDevelopmentConfig()
		config.Development = false
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatJSON, FormatConsole)
	}

	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	// Logs go to stderr; stdout carries the run summary.
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	return config, nil
}

// New builds a logger for the given verbosity and format.
func New(verbose bool, format string) (*zap.Logger, error) {
	config, err := Config(verbose, format)
	if err != nil {
		return nil, err
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
