// Package logging builds the zap logger shared by the finsight
// binaries. The TUI owns stdout and stderr while it runs, so its logs
// go to a file; finctl logs to stderr with a console encoder.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/finsight/internal/config"
)

// New creates a logger from config. The returned flush function syncs
// buffered entries and is safe to defer.
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	sink := zapcore.Lock(os.Stderr)
	var closeFile func()
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.Lock(f)
		closeFile = func() { f.Close() }
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	logger := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))

	flush := func() {
		err := logger.Sync()
		// Sync on stderr returns EINVAL or ENOTTY on Linux; harmless.
		if err != nil && !isStdoutSyncError(err) {
			fmt.Fprintf(os.Stderr, "log sync failed: %v\n", err)
		}
		if closeFile != nil {
			closeFile()
		}
	}
	return logger, flush, nil
}

// newEncoder creates a JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// isStdoutSyncError checks if err is a harmless stdout/stderr sync
// error.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
