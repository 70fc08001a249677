// Package observability provides the CLI logger.
//
// Library packages under pkg/ do not log. Commands log through CLILogger,
// which writes to stderr so that stdout stays reserved for results.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide command logger. It is a no-op until
// InitCLILogger or ConfigureCLILogger runs.
var CLILogger = zap.NewNop()

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// LoggerConfig configures the CLI logger.
type LoggerConfig struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	Level string

	// Format is FormatConsole or FormatJSON.
	Format string

	// Verbose forces debug level regardless of Level.
	Verbose bool
}

// InitCLILogger installs a console logger on stderr at info level, or debug
// level when verbose is set.
func InitCLILogger(appName string, verbose bool) {
	// Defaults cannot fail to build.
	_ = ConfigureCLILogger(appName, LoggerConfig{Level: "info", Format: FormatConsole, Verbose: verbose})
}

// ConfigureCLILogger replaces CLILogger according to cfg, writing to stderr.
func ConfigureCLILogger(appName string, cfg LoggerConfig) error {
	logger, err := NewLogger(appName, cfg, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// NewLogger builds a logger writing to ws.
func NewLogger(appName string, cfg LoggerConfig, ws zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case FormatJSON:
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q (supported: %s, %s)", cfg.Format, FormatConsole, FormatJSON)
	}

	core := zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(level))
	return zap.New(core).Named(appName), nil
}
