// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Per-key operations (hit/miss, evictions, strategy matches)
//   - Tier fallthrough decisions
//   - Sweep and replay progress
//
// Info: Normal operation events
//   - Engine startup/shutdown
//   - Rehydration summary
//   - Connectivity transitions (offline queue engaged/drained)
//
// Warn: Warning conditions that don't prevent operation
//   - Secondary tier failures absorbed by the read/write path
//   - Offline queue overflow (oldest write dropped)
//   - Corrupt or undecodable cached payloads
//
// Error: Error conditions requiring attention
//   - Offline writes dropped after exhausting retries
//   - Persistent tier open/schema failures
//   - Configuration errors
//
// Context Fields:
//   - key: Cache key
//   - tier: Tier involved (memory, remote, persistent)
//   - policy: Active eviction policy
//   - op: Queued operation (set, delete)
//   - retries: Replay attempts for a queued write
//   - pending: Offline queue depth
//   - ttl: Entry TTL
