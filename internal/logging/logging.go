// Package logging wraps zerolog with the component-tagging conventions used
// across the workers, grounded on the pack's pkg/log package: a global
// configured logger plus small child-logger helpers.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger is the process-wide configured logger. Init must be called once at
// startup before any component logger is derived from it.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Config controls Init's output format and verbosity.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console; console is also forced when stderr is a TTY
}

// Init configures the global logger from a Config built from the
// environment (LOG_LEVEL, LOG_FORMAT): JSON output in production, console
// writer when LOG_FORMAT=console or stderr is attached to a TTY, matching
// the teacher's IsTerminal-gated styling (internal/ui in the teacher repo).
func Init(cfg Config) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	useConsole := strings.EqualFold(cfg.Format, "console") || term.IsTerminal(int(os.Stderr.Fd()))

	if useConsole {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger tagged with component=name, used by
// each worker (pin-sync, type-crawl, dir-expand, httpapi, tagger) so log
// lines are attributable to their source.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
