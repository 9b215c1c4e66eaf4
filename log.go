package sofctl

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "SOFCTL_LOG_LEVEL"

// NewLogger returns the logger used by Open. It writes to w at the given level,
// unless the SOFCTL_LOG_LEVEL environment variable selects another one.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, ok := parseLevel(os.Getenv(EnvLogLevel))
	if !ok {
		lvl, ok = parseLevel(level)
		if !ok {
			lvl = zerolog.WarnLevel
		}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "sofctl").Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.WarnLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.WarnLevel, false
	}
}
