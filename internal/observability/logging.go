// Package observability wires the process-wide zap loggers.
package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is used by command implementations; ServerLogger by the HTTP
// server and job workers. Both default to no-ops until Init runs so unit
// tests stay quiet.
var (
	CLILogger    = zap.NewNop()
	ServerLogger = zap.NewNop()
)

// Init builds the loggers for the given level and profile.
//
// Profile "structured" emits JSON for log shippers; "console" is for a
// human watching the terminal.
func Init(level, profile string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if strings.EqualFold(profile, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	CLILogger = logger.Named("cli")
	ServerLogger = logger.Named("server")
	return nil
}

// Sync flushes buffered log entries. Best-effort on process exit.
func Sync() {
	_ = CLILogger.Sync()
	_ = ServerLogger.Sync()
}
