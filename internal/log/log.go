// Package log provides structured logging for the ledger emulator and the
// issuance protocol.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/oneshot/config"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Ledger   zerolog.Logger
	Protocol zerolog.Logger
	Mempool  zerolog.Logger
	Wallet   zerolog.Logger
	Storage  zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init initializes the logger. When file is non-empty, logs go to both the
// console (colored or JSON per jsonOutput) and the file, which always gets
// JSON.
func Init(level string, jsonOutput bool, file string) error {
	switch {
	case file != "":
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		var console io.Writer = os.Stderr
		if !jsonOutput {
			console = consoleWriter(os.Stderr)
		}
		Logger = newLogger(zerolog.MultiLevelWriter(console, f), level)
	case jsonOutput:
		Logger = NewJSONLogger(os.Stderr, level)
	default:
		Logger = NewConsoleLogger(os.Stderr, level)
	}
	initComponentLoggers()
	return nil
}

// InitFromConfig applies the [log] section of a configuration.
func InitFromConfig(cfg config.LogConfig) error {
	return Init(cfg.Level, cfg.JSON, cfg.File)
}

// SetOutput points every logger at w. Tests use it to capture or silence
// output.
func SetOutput(w io.Writer, level string) {
	Logger = NewJSONLogger(w, level)
	initComponentLoggers()
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(consoleWriter(w), level)
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(w, level)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// parseLevel falls back to info for empty or unknown levels.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func initComponentLoggers() {
	Ledger = WithComponent("ledger")
	Protocol = WithComponent("protocol")
	Mempool = WithComponent("mempool")
	Wallet = WithComponent("wallet")
	Storage = WithComponent("storage")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithRun returns the protocol logger tagged with an issuance run id.
func WithRun(runID string) zerolog.Logger {
	return Protocol.With().Str("run_id", runID).Logger()
}

// Benchmark logs the duration of an operation at debug level when the
// returned func is called.
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		Logger.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}
