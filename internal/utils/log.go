// Package utils
package utils

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLogFile = "simple-executor.log"

type LogOptions struct {
	// File receives every record at Level and above. Empty disables the file sink.
	File string
	// Level is one of debug, info, warn, error.
	Level string
	// ConsoleLevel filters the stderr sink. Defaults to info.
	ConsoleLevel string
}

// NewLogger builds the process logger: JSON records with a "timestamp" key, teed to the
// log file and stderr. The caller owns the returned cleanup function.
func NewLogger(opts LogOptions) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(orDefault(opts.Level, "debug"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	consoleLevel, err := zapcore.ParseLevel(orDefault(opts.ConsoleLevel, "info"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid console log level %q: %w", opts.ConsoleLevel, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "event"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), consoleLevel),
	}

	closeFn := func() {}
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
		closeFn = func() { file.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	cleanup := func() {
		_ = logger.Sync()
		closeFn()
	}
	return logger, cleanup, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
